package config

import "fmt"

var validTimeframes = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "12h": {}, "1d": {},
}

// Validate 检查参数取值范围；任何一项越界都拒绝启动。
func Validate(cfg AppConfig) error {
	b := cfg.Bot
	if b.Symbol == "" {
		return fmt.Errorf("bot.symbol is required")
	}
	if b.BaseOrderPct < 0.1 || b.BaseOrderPct > 100 {
		return fmt.Errorf("bot.baseOrderPct must be in [0.1, 100], got %v", b.BaseOrderPct)
	}
	if b.InvBudgetPct < 10 || b.InvBudgetPct > 100 {
		return fmt.Errorf("bot.invBudgetPct must be in [10, 100], got %v", b.InvBudgetPct)
	}
	if b.SlipGuardATR < 0 {
		return fmt.Errorf("bot.slipGuardATR must be >= 0, got %v", b.SlipGuardATR)
	}
	if b.ATRLen < 1 {
		return fmt.Errorf("bot.atrLen must be >= 1, got %d", b.ATRLen)
	}
	if _, ok := validTimeframes[b.ATRTimeframe]; !ok {
		return fmt.Errorf("bot.atrTimeframe %q is not supported", b.ATRTimeframe)
	}
	if b.KATR < 0.1 {
		return fmt.Errorf("bot.kATR must be >= 0.1, got %v", b.KATR)
	}
	if b.MinFullBps < 10 {
		return fmt.Errorf("bot.minFullBps must be >= 10, got %v", b.MinFullBps)
	}
	if b.MaxFullBps <= b.MinFullBps {
		return fmt.Errorf("bot.maxFullBps (%v) must be greater than minFullBps (%v)", b.MaxFullBps, b.MinFullBps)
	}
	if b.SkewDamp < 0 || b.SkewDamp > 1 {
		return fmt.Errorf("bot.skewDamp must be in [0, 1], got %v", b.SkewDamp)
	}
	if b.SizeAmp < 0.5 {
		return fmt.Errorf("bot.sizeAmp must be >= 0.5, got %v", b.SizeAmp)
	}
	if b.UseBullBias && b.BullBiasBps >= b.MinFullBps {
		return fmt.Errorf("bot.bullBiasBps (%v) must be less than minFullBps (%v)", b.BullBiasBps, b.MinFullBps)
	}
	if b.RequoteBps < 1 || b.RequoteBps > 100 {
		return fmt.Errorf("bot.requoteBps must be in [1, 100], got %v", b.RequoteBps)
	}
	if b.Leverage < 1 || b.Leverage > 100 {
		return fmt.Errorf("bot.leverage must be in [1, 100], got %d", b.Leverage)
	}
	if b.MinNotional < 1 {
		return fmt.Errorf("bot.minNotional must be >= 1, got %v", b.MinNotional)
	}
	if b.TimeInForce != "GTC" && b.TimeInForce != "IOC" && b.TimeInForce != "FOK" {
		return fmt.Errorf("bot.timeInForce must be GTC, IOC or FOK, got %q", b.TimeInForce)
	}
	if b.LoopIntervalSec < 1 {
		return fmt.Errorf("bot.loopIntervalSec must be >= 1, got %d", b.LoopIntervalSec)
	}
	if b.MaxOrdersPerMin < 1 {
		return fmt.Errorf("bot.maxOrdersPerMin must be >= 1, got %d", b.MaxOrdersPerMin)
	}
	if cfg.Feed.Enabled && cfg.Feed.Endpoint == "" {
		return fmt.Errorf("feed.endpoint is required when feed.enabled is true")
	}
	return nil
}
