// Package metrics provides Prometheus metrics for the market maker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 引擎运行指标。
type Collector struct {
	MidPrice    prometheus.Gauge
	Equity      prometheus.Gauge
	Position    prometheus.Gauge
	Skew        prometheus.Gauge
	HalfWidth   prometheus.Gauge
	Quotes      prometheus.Counter
	Orders      *prometheus.CounterVec
	Cancels     prometheus.Counter
	StepErrors  prometheus.Counter
	RateLimited prometheus.Counter
	Fills       prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		MidPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mm_mid_price",
			Help: "策略使用的 mid 价格",
		}),
		Equity: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mm_equity_usd",
			Help: "账户净值（USD）",
		}),
		Position: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mm_position_qty",
			Help: "当前净仓位（合约数，带符号）",
		}),
		Skew: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mm_inventory_skew",
			Help: "归一化库存偏度 [-1,1]",
		}),
		HalfWidth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mm_half_width",
			Help: "当前半价差（价格单位）",
		}),
		Quotes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mm_quote_cycles_total",
			Help: "执行的报价周期数",
		}),
		Orders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mm_orders_placed_total",
			Help: "下单数量",
		}, []string{"side"}),
		Cancels: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mm_orders_canceled_total",
			Help: "撤单数量",
		}),
		StepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mm_step_errors_total",
			Help: "被跳过的周期数（错误分类见日志）",
		}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mm_rate_limited_total",
			Help: "因滑动窗口限流被整体跳过的周期数",
		}),
		Fills: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mm_detected_fills_total",
			Help: "通过挂单消失探测到的成交笔数",
		}),
	}
}

// Serve 在 addr 上暴露 /metrics；addr 为空则不启动。
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
