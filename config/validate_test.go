package config

import (
	"strings"
	"testing"
)

func validConfig() AppConfig {
	cfg := AppConfig{}
	cfg.Bot = BotConfig{
		Symbol:          "BTC/USDT-P",
		BaseOrderPct:    1,
		InvBudgetPct:    30,
		ATRLen:          14,
		ATRTimeframe:    "5m",
		KATR:            0.75,
		MinFullBps:      50,
		MaxFullBps:      400,
		SkewDamp:        0.3,
		SizeAmp:         1.5,
		BullBiasBps:     25,
		RequoteBps:      10,
		TimeInForce:     "GTC",
		MinNotional:     10,
		Leverage:        1,
		LoopIntervalSec: 5,
		MaxOrdersPerMin: 30,
	}
	return cfg
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"missing symbol", func(c *AppConfig) { c.Bot.Symbol = "" }, "symbol"},
		{"baseOrderPct low", func(c *AppConfig) { c.Bot.BaseOrderPct = 0.05 }, "baseOrderPct"},
		{"baseOrderPct high", func(c *AppConfig) { c.Bot.BaseOrderPct = 101 }, "baseOrderPct"},
		{"invBudget low", func(c *AppConfig) { c.Bot.InvBudgetPct = 5 }, "invBudgetPct"},
		{"atrLen", func(c *AppConfig) { c.Bot.ATRLen = 0 }, "atrLen"},
		{"timeframe", func(c *AppConfig) { c.Bot.ATRTimeframe = "7m" }, "atrTimeframe"},
		{"kATR", func(c *AppConfig) { c.Bot.KATR = 0.01 }, "kATR"},
		{"minFullBps", func(c *AppConfig) { c.Bot.MinFullBps = 5 }, "minFullBps"},
		{"spread inverted", func(c *AppConfig) { c.Bot.MaxFullBps = 40 }, "maxFullBps"},
		{"skewDamp", func(c *AppConfig) { c.Bot.SkewDamp = 1.5 }, "skewDamp"},
		{"sizeAmp", func(c *AppConfig) { c.Bot.SizeAmp = 0.1 }, "sizeAmp"},
		{"bull bias too wide", func(c *AppConfig) {
			c.Bot.UseBullBias = true
			c.Bot.BullBiasBps = 60
		}, "bullBiasBps"},
		{"requoteBps", func(c *AppConfig) { c.Bot.RequoteBps = 0.5 }, "requoteBps"},
		{"leverage", func(c *AppConfig) { c.Bot.Leverage = 0 }, "leverage"},
		{"minNotional", func(c *AppConfig) { c.Bot.MinNotional = 0.5 }, "minNotional"},
		{"timeInForce", func(c *AppConfig) { c.Bot.TimeInForce = "DAY" }, "timeInForce"},
		{"feed endpoint", func(c *AppConfig) { c.Feed.Enabled = true }, "feed.endpoint"},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := Validate(cfg)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestBullBiasOnlyCheckedWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Bot.UseBullBias = false
	cfg.Bot.BullBiasBps = 500
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled bull bias should not be range-checked: %v", err)
	}
}
