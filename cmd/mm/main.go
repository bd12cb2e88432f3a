package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"hibachi-mm-go/config"
	"hibachi-mm-go/gateway"
	"hibachi-mm-go/internal/engine"
	"hibachi-mm-go/metrics"
	"hibachi-mm-go/posttrade"

	"hibachi-mm-go/infrastructure/logger"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置；留空用配置值")
	wsFeed := flag.Bool("wsFeed", true, "启用 websocket 行情推送（配置 feed.enabled 也需为 true）")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	lg.Info("market maker starting",
		zap.String("symbol", cfg.Bot.Symbol),
		zap.String("api", cfg.API.APIURL),
		zap.String("atr_timeframe", cfg.Bot.ATRTimeframe))

	client := &gateway.Client{
		APIURL:     cfg.API.APIURL,
		DataAPIURL: cfg.API.DataAPIURL,
		APIKey:     cfg.API.APIKey,
		AccountID:  cfg.API.AccountID,
		PrivateKey: cfg.API.PrivateKey,
		HTTPClient: gateway.NewDefaultHTTPClient(),
	}

	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	col := metrics.NewCollector()
	metrics.Serve(addr)

	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = "logs"
	}
	tlog, err := posttrade.NewTradeLog(logDir)
	if err != nil {
		lg.Fatal("初始化成交日志失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var feed *gateway.PriceFeed
	if *wsFeed && cfg.Feed.Enabled {
		feed = gateway.NewPriceFeed(cfg.Feed.Endpoint, cfg.Bot.Symbol, lg.Logger)
		go feed.Run(ctx)
	}

	eng := engine.New(engine.Config{
		Symbol:          cfg.Bot.Symbol,
		Params:          cfg.Bot.StrategyParams(),
		ATRLen:          cfg.Bot.ATRLen,
		ATRTimeframe:    cfg.Bot.ATRTimeframe,
		Leverage:        cfg.Bot.Leverage,
		LoopInterval:    time.Duration(cfg.Bot.LoopIntervalSec) * time.Second,
		MaxOrdersPerMin: cfg.Bot.MaxOrdersPerMin,
		TimeInForce:     cfg.Bot.TimeInForce,
		PostOnly:        cfg.Bot.PostOnly,
		MinNotional:     cfg.Bot.MinNotional,
	}, client, engine.Deps{
		Feed:     feed,
		Metrics:  col,
		TradeLog: tlog,
		Log:      lg.Logger,
	})

	if err := eng.Bootstrap(ctx); err != nil {
		lg.Fatal("启动失败", zap.Error(err))
	}

	// systemd Type=notify 下通知就绪；非 systemd 环境静默忽略
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Debug("sd_notify skipped", zap.Error(err))
	}

	// 配置热更新：只接受策略参数段的变化
	watcher := &config.Watcher{Path: *cfgPath, Log: lg.Logger}
	go func() {
		if err := watcher.Start(ctx, func(next config.AppConfig) {
			eng.ApplyParams(next.Bot.StrategyParams())
		}); err != nil && ctx.Err() == nil {
			lg.Warn("config watcher exited", zap.Error(err))
		}
	}()

	if err := eng.Run(ctx); err != nil {
		lg.Error("engine exited with error", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("market maker stopped")
}
