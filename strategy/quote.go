package strategy

import (
	"errors"
	"fmt"
	"math"

	"hibachi-mm-go/order"
)

// 安全边际与波动率下限是有意的固定常数，不走配置：
// 前者防止极端 skew/偏置把报价推过 mid，后者防止 ATR 读数归零时价差退化。
const (
	volFloorPct  = 0.0005 // ATR 下限 = mid 的 0.05%
	minSpreadPct = 0.0015 // 报价距 mid 的最小偏移 = 0.15%
)

// Params 报价算法的可调参数，由配置层校验后传入。
type Params struct {
	BaseOrderPct float64 // 单笔基础下单占净值百分比
	InvBudgetPct float64 // 库存预算占净值百分比
	SlipGuardATR float64 // 真实波幅超过 ATR 的该倍数时本周期禁止报价；<=0 关闭
	LongBiasOnly bool    // 只允许多头方向建仓
	KATR         float64 // 半价差 = KATR × ATR（再夹在上下限之间）
	MinFullBps   float64 // 全价差下限（bps）
	MaxFullBps   float64 // 全价差上限（bps）
	SkewDamp     float64 // 库存偏移阻尼 [0,1]
	SizeAmp      float64 // 减仓侧的数量放大系数
	UseBullBias  bool
	BullBiasBps  float64
	RequoteBps   float64 // mid 变动超过该 bps 才触发重新报价
}

// Input 单个周期的全部输入；Compute 对其保持纯函数。
type Input struct {
	Mid         float64
	ATR         float64
	TrueRange   float64
	PrevMid     float64
	HasPrevMid  bool
	Equity      float64
	PositionQty float64
	Spec        order.ContractSpec
	Params      Params
}

// SideQuote 一侧的候选报价。
type SideQuote struct {
	Price    float64
	Qty      float64
	Eligible bool // 满足最小数量与最小名义
}

// Quote 报价计算结果。
type Quote struct {
	ShouldQuote bool
	Bid         SideQuote
	Ask         SideQuote
	Skew        float64
	HalfWidth   float64
	CanBuy      bool // 库存预算允许继续买入
	CanSell     bool
	BigMove     bool // 波动尖峰，本周期禁止报价
}

// ErrNoBudget 净值或库存预算配置导致 maxNotional<=0。
var ErrNoBudget = errors.New("non-positive max notional")

// Compute 由市场/账户状态生成双边候选报价。
// 纯函数：无 I/O、无隐藏状态，可单独单测。
func Compute(in Input) (Quote, error) {
	m := in.Mid
	p := in.Params
	var q Quote

	if m <= 0 {
		return q, fmt.Errorf("invalid mid price %.8f", m)
	}

	// 波动率下限
	atr := math.Max(in.ATR, m*volFloorPct)

	// 波动尖峰保护：真实波幅过大时本周期不重挂
	q.BigMove = p.SlipGuardATR > 0 && in.TrueRange > p.SlipGuardATR*atr

	// 重挂触发：无历史 mid 或变动超过 requoteBps
	midChanged := true
	if in.HasPrevMid {
		midChanged = math.Abs(m-in.PrevMid) > bpsToPrice(m, p.RequoteBps)
	}
	q.ShouldQuote = !q.BigMove && midChanged

	// 库存偏度
	positionNotional := in.PositionQty * m
	maxNotional := in.Equity * (p.InvBudgetPct / 100)
	if maxNotional <= 0 {
		return q, fmt.Errorf("%w: %.2f", ErrNoBudget, maxNotional)
	}
	q.Skew = clamp(positionNotional/maxNotional, -1, 1)

	// 半价差：KATR×ATR 夹在 [minFullBps/2, maxFullBps/2]
	halfFloor := bpsToPrice(m, p.MinFullBps*0.5)
	halfCeil := bpsToPrice(m, p.MaxFullBps*0.5)
	q.HalfWidth = clamp(p.KATR*atr, halfFloor, halfCeil)

	var bullShift float64
	if p.UseBullBias {
		bullShift = bpsToPrice(m, p.BullBiasBps)
	}

	// 库存偏移：把双边报价向促进减仓成交的方向平移
	offset := p.SkewDamp * math.Abs(q.Skew) * q.HalfWidth * sign(q.Skew)

	askPx := m + q.HalfWidth + bullShift - offset
	bidPx := m - q.HalfWidth + bullShift - offset

	// 安全边际：独立于上面的全部偏移，强制 bid < mid < ask
	minOffset := m * minSpreadPct
	if bidPx >= m-minOffset {
		bidPx = m - minOffset
	}
	if askPx <= m+minOffset {
		askPx = m + minOffset
	}

	// 数量：减仓侧放大
	baseUSD := in.Equity * (p.BaseOrderPct / 100)
	askMult := 1 + p.SizeAmp*math.Max(0, q.Skew)
	bidMult := 1 + p.SizeAmp*math.Max(0, -q.Skew)
	bidNotional := baseUSD * bidMult
	askNotional := baseUSD * askMult

	if bidPx <= 0 || askPx <= 0 {
		return q, fmt.Errorf("invalid raw prices: bid=%.8f ask=%.8f", bidPx, askPx)
	}

	bidQty := in.Spec.QuantizeQty(bidNotional / bidPx)
	askQty := in.Spec.QuantizeQty(askNotional / askPx)
	bidPxQ := in.Spec.QuantizePriceFloor(bidPx)
	askPxQ := in.Spec.QuantizePriceCeil(askPx)

	if bidPxQ <= 0 || askPxQ <= 0 {
		return q, fmt.Errorf("invalid quantized prices: bid=%.8f ask=%.8f", bidPxQ, askPxQ)
	}

	// 量化后的兜底：不允许量化把 bid/ask 推回 mid 的另一侧
	if bidPxQ >= m {
		bidPxQ = in.Spec.QuantizePriceFloor(m - minOffset)
	}
	if askPxQ <= m {
		askPxQ = in.Spec.QuantizePriceCeil(m + minOffset)
	}

	// 风险预算闸门
	q.CanBuy = positionNotional < maxNotional
	if p.LongBiasOnly {
		q.CanSell = in.PositionQty > 0
	} else {
		q.CanSell = positionNotional > -maxNotional
	}

	q.Bid = SideQuote{Price: bidPxQ, Qty: bidQty, Eligible: in.Spec.MeetsMinimums(bidPxQ, bidQty)}
	q.Ask = SideQuote{Price: askPxQ, Qty: askQty, Eligible: in.Spec.MeetsMinimums(askPxQ, askQty)}
	return q, nil
}

func bpsToPrice(px, bps float64) float64 {
	return px * (bps / 10000)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
