package order

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ContractSpec 合约交易约束，由网关在启动时拉取。
type ContractSpec struct {
	Symbol       string
	TickSize     float64
	StepSize     float64
	MinQty       float64
	MinNotional  float64
	ContractSize float64
}

// FloorToIncrement 把 v 向下量化到 step 的整数倍。
// 用 decimal 做除法和取整，避免 0.1+0.2 类的二进制浮点伪差
// 把本来对齐的价格判成不对齐。
func FloorToIncrement(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	d := decimal.NewFromFloat(v)
	s := decimal.NewFromFloat(step)
	out, _ := d.Div(s).Floor().Mul(s).Float64()
	return out
}

// CeilToIncrement 把 v 向上量化到 step 的整数倍。
func CeilToIncrement(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	d := decimal.NewFromFloat(v)
	s := decimal.NewFromFloat(step)
	out, _ := d.Div(s).Ceil().Mul(s).Float64()
	return out
}

// QuantizePriceFloor 买价向下对齐 tick，保证不越过目标价。
func (c ContractSpec) QuantizePriceFloor(price float64) float64 {
	return FloorToIncrement(price, c.TickSize)
}

// QuantizePriceCeil 卖价向上对齐 tick。
func (c ContractSpec) QuantizePriceCeil(price float64) float64 {
	return CeilToIncrement(price, c.TickSize)
}

// QuantizeQty 数量一律向下对齐 step，宁少勿多。
func (c ContractSpec) QuantizeQty(qty float64) float64 {
	return FloorToIncrement(qty, c.StepSize)
}

// PricePrecision 返回 tick 对应的小数位数，用于下单报文格式化。
func (c ContractSpec) PricePrecision() int {
	return precisionOf(c.TickSize)
}

// QtyPrecision 返回 step 对应的小数位数。
func (c ContractSpec) QtyPrecision() int {
	return precisionOf(c.StepSize)
}

// FormatPrice 按合约精度格式化价格。
func (c ContractSpec) FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', c.PricePrecision(), 64)
}

// FormatQty 按合约精度格式化数量。
func (c ContractSpec) FormatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', c.QtyPrecision(), 64)
}

func precisionOf(step float64) int {
	if step <= 0 {
		return 8
	}
	s := decimal.NewFromFloat(step).String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
