package posttrade

import (
	"time"

	"hibachi-mm-go/gateway"
	"hibachi-mm-go/order"
)

// Detector 用"挂单消失"探测成交：撤单步骤之前拉一次未成交列表，
// 被跟踪的订单号不在其中且不是我们撤的，按挂单价/量记一笔成交。
// 交易所不提供成交推送流时的 best-effort 记账，不是对账。
type Detector struct {
	Symbol string

	now func() time.Time
}

func NewDetector(symbol string) *Detector {
	return &Detector{Symbol: symbol, now: time.Now}
}

// Detect 对比两侧挂单记录与交易所未成交列表，返回疑似成交。
func (d *Detector) Detect(bid, ask order.SideOrder, open []gateway.OpenOrder) []Fill {
	openSet := make(map[string]struct{}, len(open))
	for _, o := range open {
		openSet[o.OrderID] = struct{}{}
	}

	var fills []Fill
	for _, side := range []struct {
		rec  order.SideOrder
		name string
	}{
		{bid, string(order.SideBuy)},
		{ask, string(order.SideSell)},
	} {
		if !side.rec.Resting() {
			continue
		}
		if _, ok := openSet[side.rec.OrderID]; ok {
			continue
		}
		// 手续费与已实现盈亏在该接口上不可得，记 0
		fills = append(fills, Fill{
			TS:      d.now(),
			Symbol:  d.Symbol,
			Side:    side.name,
			Price:   side.rec.Price,
			Qty:     side.rec.Qty,
			OrderID: side.rec.OrderID,
		})
	}
	return fills
}
