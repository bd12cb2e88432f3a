// Package engine 实现做市主循环：行情采样、ATR 跟踪、报价计算、
// 先撤后挂的订单生命周期，以及限流与风控闸门。
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"hibachi-mm-go/gateway"
	"hibachi-mm-go/market"
	"hibachi-mm-go/metrics"
	"hibachi-mm-go/order"
	"hibachi-mm-go/posttrade"
	"hibachi-mm-go/strategy"
)

// Gateway 引擎所需的全部交易所操作；gateway.Client 实现它，
// 测试用 mock 替换。
type Gateway interface {
	GetContractSpec(symbol string) (order.ContractSpec, error)
	SetLeverage(symbol string, leverage int) error
	CancelAllOrders(symbol string) error
	GetAccountInfo() (gateway.AccountInfo, error)
	GetPosition(symbol string) (*gateway.Position, error)
	GetTicker(symbol string) (*gateway.Ticker, error)
	GetMidPrice(symbol string) (float64, error)
	GetHistoricalBars(symbol, timeframe string, limit int) ([]gateway.OHLC, error)
	GetOpenOrders(symbol string) ([]gateway.OpenOrder, error)
	PlaceLimitOrder(symbol string, side order.Side, price, qty float64, timeInForce string, postOnly bool, clientID string) (string, error)
	CancelOrder(symbol, orderID string) error
}

// Config 引擎运行参数，由配置层映射而来。
type Config struct {
	Symbol          string
	Params          strategy.Params
	ATRLen          int
	ATRTimeframe    string
	Leverage        int
	LoopInterval    time.Duration
	MaxOrdersPerMin int
	TimeInForce     string
	PostOnly        bool
	MinNotional     float64 // 与交易所最小名义取较大值
}

// Deps 可选依赖；nil 项会被替换为空实现。
type Deps struct {
	Feed     *gateway.PriceFeed
	Metrics  *metrics.Collector
	TradeLog *posttrade.TradeLog
	Log      *zap.Logger
}

const (
	equityRefreshInterval = time.Minute
	shutdownPollInterval  = 500 * time.Millisecond
	fundingWarnThreshold  = 0.01 // 1% 资金费率告警
	warmupBarsExtra       = 10
	warmupBarsMax         = 100
)

// Engine 单线程做市引擎。所有交易所调用都在 Run 的 goroutine 上
// 顺序执行；唯一的跨线程入口是 ApplyParams。
type Engine struct {
	cfg  Config
	gw   Gateway
	feed *gateway.PriceFeed
	log  *zap.Logger
	met  *metrics.Collector
	tlog *posttrade.TradeLog
	det  *posttrade.Detector

	spec    order.ContractSpec
	book    *order.Book
	limiter *order.WindowLimiter
	atr     *strategy.ATR

	paramsMu sync.Mutex
	params   strategy.Params

	bar         market.Bar
	prevMid     float64
	hasPrevMid  bool
	equity      float64
	posQty      float64
	markPrice   float64
	lastAccount time.Time
	quoteCount  int

	shutdownOnce sync.Once
	now          func() time.Time
}

// New 构造引擎；真正的初始化在 Bootstrap 里完成。
func New(cfg Config, gw Gateway, deps Deps) *Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = 5 * time.Second
	}
	return &Engine{
		cfg:    cfg,
		gw:     gw,
		feed:   deps.Feed,
		log:    deps.Log,
		met:    deps.Metrics,
		tlog:   deps.TradeLog,
		params: cfg.Params,
		now:    time.Now,
	}
}

// ApplyParams 热更新策略参数；下一个周期生效。
func (e *Engine) ApplyParams(p strategy.Params) {
	e.paramsMu.Lock()
	e.params = p
	e.paramsMu.Unlock()
	e.log.Info("strategy params applied",
		zap.Float64("kATR", p.KATR),
		zap.Float64("minFullBps", p.MinFullBps),
		zap.Float64("maxFullBps", p.MaxFullBps),
		zap.Float64("requoteBps", p.RequoteBps))
}

func (e *Engine) currentParams() strategy.Params {
	e.paramsMu.Lock()
	defer e.paramsMu.Unlock()
	return e.params
}

// Bootstrap 完成启动序列：合约精度、杠杆、清场、ATR 预热、账户快照。
// 返回错误表示无法安全开始做市。
func (e *Engine) Bootstrap(ctx context.Context) error {
	// 合约精度是后续所有量化的依据，拿不到就不能启动
	var spec order.ContractSpec
	err := gateway.WithRetry(ctx, e.log, 3, time.Second, func() error {
		var err error
		spec, err = e.gw.GetContractSpec(e.cfg.Symbol)
		return err
	})
	if err != nil {
		return fmt.Errorf("contract spec: %w", err)
	}
	if e.cfg.MinNotional > spec.MinNotional {
		spec.MinNotional = e.cfg.MinNotional
	}
	e.spec = spec
	e.log.Info("contract spec loaded",
		zap.String("symbol", spec.Symbol),
		zap.Float64("tick_size", spec.TickSize),
		zap.Float64("step_size", spec.StepSize),
		zap.Float64("min_qty", spec.MinQty),
		zap.Float64("min_notional", spec.MinNotional))

	// 杠杆强制为 1：做市策略按全额名义预算控制库存
	if e.cfg.Leverage != 1 {
		e.log.Warn("leverage is forced to 1 for market making",
			zap.Int("configured", e.cfg.Leverage))
	}
	if err := e.gw.SetLeverage(e.cfg.Symbol, 1); err != nil {
		if errors.Is(err, gateway.ErrUnsupported) {
			e.log.Warn("leverage endpoint unsupported, assuming 1x")
		} else {
			return fmt.Errorf("set leverage: %w", err)
		}
	}

	// 清掉历史挂单；失败不致命，下一个周期的撤单会兜底
	if err := e.gw.CancelAllOrders(e.cfg.Symbol); err != nil {
		e.log.Warn("cancel all on startup failed", zap.Error(err))
	}

	atr, err := strategy.NewATR(e.cfg.ATRLen)
	if err != nil {
		return err
	}
	e.atr = atr
	e.warmupATR()

	// 账户快照：净值为 0 时风险预算无从谈起
	if err := e.refreshAccount(ctx, true); err != nil {
		return fmt.Errorf("account snapshot: %w", err)
	}
	if e.equity <= 0 {
		return fmt.Errorf("account equity %.2f, refusing to quote", e.equity)
	}

	e.book = order.NewBook(order.BookConfig{
		Symbol:      e.cfg.Symbol,
		Spec:        e.spec,
		TimeInForce: e.cfg.TimeInForce,
		PostOnly:    e.cfg.PostOnly,
	}, e.gw, e.log)
	e.limiter = order.NewWindowLimiter(e.cfg.MaxOrdersPerMin, time.Minute)
	e.det = posttrade.NewDetector(e.cfg.Symbol)

	e.log.Info("engine bootstrapped",
		zap.String("symbol", e.cfg.Symbol),
		zap.Float64("equity", e.equity),
		zap.Float64("position", e.posQty),
		zap.Int("atr_len", e.cfg.ATRLen),
		zap.String("atr_timeframe", e.cfg.ATRTimeframe))
	return nil
}

// warmupATR 用历史 K 线预热平滑值；拿不到历史就从实时数据冷启动。
func (e *Engine) warmupATR() {
	limit := e.cfg.ATRLen + warmupBarsExtra
	if limit > warmupBarsMax {
		limit = warmupBarsMax
	}
	bars, err := e.gw.GetHistoricalBars(e.cfg.Symbol, e.cfg.ATRTimeframe, limit)
	if err != nil {
		e.log.Warn("atr warmup skipped, no historical bars", zap.Error(err))
		return
	}
	for _, b := range bars {
		e.atr.Update(b.Open, b.High, b.Low, b.Close, true)
	}
	v, _ := e.atr.Value()
	e.log.Info("atr warmed up",
		zap.Int("bars", len(bars)),
		zap.Float64("atr", v))
}

// refreshAccount 刷新净值与持仓。force=false 时按 1 分钟节流。
func (e *Engine) refreshAccount(ctx context.Context, force bool) error {
	if !force && e.now().Sub(e.lastAccount) < equityRefreshInterval {
		return nil
	}
	err := gateway.WithRetry(ctx, e.log, 3, time.Second, func() error {
		acct, err := e.gw.GetAccountInfo()
		if err != nil {
			return err
		}
		pos, err := e.gw.GetPosition(e.cfg.Symbol)
		if err != nil {
			return err
		}
		e.equity = acct.Balance
		if pos != nil {
			e.posQty = pos.Quantity
			e.markPrice = pos.MarkPrice
		} else {
			e.posQty = 0
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.lastAccount = e.now()
	if e.met != nil {
		e.met.Equity.Set(e.equity)
		e.met.Position.Set(e.posQty)
	}
	return nil
}

// Run 以固定节奏执行 Step，直到 ctx 取消；退出前执行 Shutdown。
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine loop started",
		zap.Duration("interval", e.cfg.LoopInterval))
	for {
		start := e.now()
		if err := e.Step(ctx); err != nil {
			if e.met != nil {
				e.met.StepErrors.Inc()
			}
			e.log.Error("cycle skipped", zap.Error(err))
		}
		// 亚秒级响应退出信号，同时保持周期节奏
		for e.now().Sub(start) < e.cfg.LoopInterval {
			select {
			case <-ctx.Done():
				e.Shutdown()
				return nil
			case <-time.After(shutdownPollInterval):
			}
		}
	}
}

// Step 执行一个报价周期。返回错误表示本周期被放弃，状态未推进。
func (e *Engine) Step(ctx context.Context) error {
	params := e.currentParams()

	// 1. 行情采样：ws 推送优先，REST ticker 兜底
	last, funding := e.sampleTicker(ctx)
	if last > 0 {
		e.bar.Update(last)
	}
	if math.Abs(funding) > fundingWarnThreshold {
		e.log.Warn("funding rate elevated",
			zap.Float64("funding_rate", funding))
	}

	// 2. 参考中间价
	var mid float64
	err := gateway.WithRetry(ctx, e.log, 3, time.Second, func() error {
		var err error
		mid, err = e.gw.GetMidPrice(e.cfg.Symbol)
		return err
	})
	if err != nil {
		return fmt.Errorf("mid price: %w", err)
	}
	if mid <= 0 {
		return fmt.Errorf("mid price %.8f unusable", mid)
	}

	// 3. ATR：无 bar 数据时以 mid 的 0.1% 兜底，避免除零式价差
	var atrVal, tr float64
	if e.bar.Empty() {
		atrVal = mid * 0.001
	} else {
		atrVal, tr = e.atr.Update(e.bar.Open, e.bar.High, e.bar.Low, e.bar.Close, e.bar.Closed)
	}

	// 4. 账户状态（节流刷新；失败沿用上一次快照）
	if err := e.refreshAccount(ctx, false); err != nil {
		e.log.Warn("account refresh failed, using stale snapshot", zap.Error(err))
	}

	// 5. 成交探测：撤单之前对比交易所挂单列表
	e.detectFills()

	q, err := strategy.Compute(strategy.Input{
		Mid:         mid,
		ATR:         atrVal,
		TrueRange:   tr,
		PrevMid:     e.prevMid,
		HasPrevMid:  e.hasPrevMid,
		Equity:      e.equity,
		PositionQty: e.posQty,
		Spec:        e.spec,
		Params:      params,
	})
	if err != nil {
		return fmt.Errorf("quote compute: %w", err)
	}

	if e.met != nil {
		e.met.MidPrice.Set(mid)
		e.met.Skew.Set(q.Skew)
		e.met.HalfWidth.Set(q.HalfWidth)
	}

	if !q.ShouldQuote {
		if q.BigMove {
			e.log.Info("volatility spike, holding quotes",
				zap.Float64("true_range", tr),
				zap.Float64("atr", atrVal))
		} else {
			e.log.Debug("mid unchanged, keeping quotes",
				zap.Float64("mid", mid),
				zap.Float64("prev_mid", e.prevMid))
		}
		return nil
	}

	// 6. 限流：整周期闸门，不放行半边
	if !e.limiter.Allow() {
		if e.met != nil {
			e.met.RateLimited.Inc()
		}
		e.log.Warn("order rate limit reached, skipping cycle",
			zap.Int("window_count", e.limiter.Count()))
		return nil
	}

	// 7. 先撤后挂
	canceled := 0
	if e.book.Bid().Resting() {
		canceled++
	}
	if e.book.Ask().Resting() {
		canceled++
	}
	e.book.CancelBoth()
	if e.met != nil && canceled > 0 {
		e.met.Cancels.Add(float64(canceled))
	}

	e.placeSide(order.SideBuy, q.Bid, q.CanBuy)
	e.placeSide(order.SideSell, q.Ask, q.CanSell)

	// 只有真正执行了报价动作才推进 prevMid
	e.prevMid = mid
	e.hasPrevMid = true
	e.quoteCount++
	if e.met != nil {
		e.met.Quotes.Inc()
	}
	return nil
}

// sampleTicker 返回最新成交价与资金费率；都拿不到时返回零值。
func (e *Engine) sampleTicker(ctx context.Context) (last, funding float64) {
	if e.feed != nil {
		if px, ok := e.feed.Latest(); ok {
			last = px
		}
	}
	t, err := e.gw.GetTicker(e.cfg.Symbol)
	if err != nil {
		e.log.Warn("ticker fetch failed", zap.Error(err))
		return last, 0
	}
	if t == nil {
		return last, 0
	}
	if last == 0 {
		last = t.LastPrice
		if last == 0 {
			last = t.MarkPrice
		}
	}
	return last, t.FundingRate
}

// detectFills 对比本地挂单记录与交易所未成交列表，
// 消失的挂单按成交记入 trades.csv。
func (e *Engine) detectFills() {
	if !e.book.Bid().Resting() && !e.book.Ask().Resting() {
		return
	}
	open, err := e.gw.GetOpenOrders(e.cfg.Symbol)
	if err != nil {
		e.log.Warn("open orders fetch failed, fill detection skipped", zap.Error(err))
		return
	}
	fills := e.det.Detect(e.book.Bid(), e.book.Ask(), open)
	for _, f := range fills {
		e.log.Info("fill detected",
			zap.String("side", f.Side),
			zap.Float64("price", f.Price),
			zap.Float64("qty", f.Qty),
			zap.String("order_id", f.OrderID))
		if e.met != nil {
			e.met.Fills.Inc()
		}
		if e.tlog != nil {
			if err := e.tlog.Append(f); err != nil {
				e.log.Warn("trade log append failed", zap.Error(err))
			}
		}
		// 清掉本地记录，避免下个周期重复上报同一笔成交
		e.book.Drop(order.Side(f.Side))
	}
}

// placeSide 按风控闸门与最小量校验挂出一侧；跳过原因记日志。
func (e *Engine) placeSide(side order.Side, sq strategy.SideQuote, allowed bool) {
	if !allowed {
		e.log.Debug("side blocked by inventory budget",
			zap.String("side", string(side)),
			zap.Float64("position", e.posQty))
		return
	}
	if !sq.Eligible {
		e.log.Debug("side below minimums",
			zap.String("side", string(side)),
			zap.Float64("price", sq.Price),
			zap.Float64("qty", sq.Qty))
		return
	}
	err := e.book.Place(side, sq.Price, sq.Qty)
	e.limiter.RecordPlacement()
	if err != nil {
		return
	}
	if e.met != nil {
		e.met.Orders.WithLabelValues(string(side)).Inc()
	}
}

// Shutdown 撤掉两侧挂单并输出收尾快照；幂等。
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.log.Info("engine shutting down")
		if e.book != nil {
			e.book.CancelBoth()
		}
		if err := e.gw.CancelAllOrders(e.cfg.Symbol); err != nil {
			e.log.Warn("final cancel all failed", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.refreshAccount(ctx, true); err != nil {
			e.log.Warn("final account refresh failed", zap.Error(err))
		}
		e.log.Info("engine stopped",
			zap.Float64("equity", e.equity),
			zap.Float64("position", e.posQty),
			zap.Int("quote_cycles", e.quoteCount))
	})
}
