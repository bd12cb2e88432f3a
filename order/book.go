package order

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Side 订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ErrUnknownOrder 交易所返回 not found / unknown order 时由网关包装返回；
// 撤单路径把它视为成功（订单可能已成交或过期）。
var ErrUnknownOrder = errors.New("unknown order")

// Gateway 提供基础下单/撤单抽象；与 gateway.Client 对接。
type Gateway interface {
	PlaceLimitOrder(symbol string, side Side, price, qty float64, timeInForce string, postOnly bool, clientID string) (string, error)
	CancelOrder(symbol, orderID string) error
}

// SideOrder 每个方向当前的挂单记录；OrderID 为空表示该侧无挂单。
type SideOrder struct {
	ClientID string
	OrderID  string
	Price    float64
	Qty      float64
}

// Resting 该侧是否有挂单。
func (s SideOrder) Resting() bool { return s.OrderID != "" }

// Book 持有两侧挂单状态并执行 cancel-then-place 转换。
// 目标交易所不支持改单，先撤后挂把状态收敛为"每侧至多一单"，
// 代价是该侧在两次调用之间短暂无挂单。
type Book struct {
	symbol      string
	gw          Gateway
	spec        ContractSpec
	log         *zap.Logger
	timeInForce string
	postOnly    bool

	bid SideOrder
	ask SideOrder

	now  func() time.Time
	rand *rand.Rand
}

// BookConfig Book 的构造参数。
type BookConfig struct {
	Symbol      string
	Spec        ContractSpec
	TimeInForce string
	PostOnly    bool
}

func NewBook(cfg BookConfig, gw Gateway, log *zap.Logger) *Book {
	if cfg.TimeInForce == "" {
		cfg.TimeInForce = "GTC"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{
		symbol:      cfg.Symbol,
		gw:          gw,
		spec:        cfg.Spec,
		log:         log,
		timeInForce: cfg.TimeInForce,
		postOnly:    cfg.PostOnly,
		now:         time.Now,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Bid 返回买侧挂单快照。
func (b *Book) Bid() SideOrder { return b.bid }

// Ask 返回卖侧挂单快照。
func (b *Book) Ask() SideOrder { return b.ask }

// CancelBoth 无条件撤掉两侧挂单。撤单失败不阻断流程。
func (b *Book) CancelBoth() {
	b.cancelSide(SideBuy)
	b.cancelSide(SideSell)
}

func (b *Book) cancelSide(side Side) {
	st := &b.bid
	if side == SideSell {
		st = &b.ask
	}
	if !st.Resting() {
		return
	}
	err := b.gw.CancelOrder(b.symbol, st.OrderID)
	switch {
	case err == nil:
		b.log.Info("order canceled",
			zap.String("side", string(side)),
			zap.String("order_id", st.OrderID))
	case errors.Is(err, ErrUnknownOrder):
		// 订单已成交或已过期，等价于撤单成功
		b.log.Info("order already gone",
			zap.String("side", string(side)),
			zap.String("order_id", st.OrderID))
	default:
		b.log.Error("cancel failed",
			zap.String("side", string(side)),
			zap.String("order_id", st.OrderID),
			zap.Error(err))
	}
	*st = SideOrder{}
}

// Drop 清除一侧挂单记录而不发撤单请求；用于该单已被探测为成交。
func (b *Book) Drop(side Side) {
	if side == SideBuy {
		b.bid = SideOrder{}
	} else {
		b.ask = SideOrder{}
	}
}

// Place 挂出一侧新单；成功时登记挂单记录，失败保持该侧为空。
func (b *Book) Place(side Side, price, qty float64) error {
	if err := b.spec.Validate(price, qty); err != nil {
		b.log.Warn("order rejected by local constraints",
			zap.String("symbol", b.symbol),
			zap.String("side", string(side)),
			zap.Float64("price", price),
			zap.Float64("qty", qty),
			zap.Error(err))
		return fmt.Errorf("constraint: %w", err)
	}
	cid := b.newClientID()
	orderID, err := b.gw.PlaceLimitOrder(b.symbol, side, price, qty, b.timeInForce, b.postOnly, cid)
	if err != nil {
		b.log.Error("place failed",
			zap.String("symbol", b.symbol),
			zap.String("side", string(side)),
			zap.Float64("price", price),
			zap.Float64("qty", qty),
			zap.Error(err))
		return err
	}
	placed := SideOrder{ClientID: cid, OrderID: orderID, Price: price, Qty: qty}
	if side == SideBuy {
		b.bid = placed
	} else {
		b.ask = placed
	}
	b.log.Info("order placed",
		zap.String("side", string(side)),
		zap.String("price", b.spec.FormatPrice(price)),
		zap.String("qty", b.spec.FormatQty(qty)),
		zap.String("order_id", orderID))
	return nil
}

// newClientID 生成单调时间戳 + 随机后缀的 client id，便于幂等与追踪。
func (b *Book) newClientID() string {
	return fmt.Sprintf("mm_%d_%d", b.now().UnixMilli(), 1000+b.rand.Intn(9000))
}
