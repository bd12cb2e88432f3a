package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hibachi-mm-go/infrastructure/logger"
	"hibachi-mm-go/strategy"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	API     APIConfig     `yaml:"api"`
	Bot     BotConfig     `yaml:"bot"`
	Logging logger.Config `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Feed    FeedConfig    `yaml:"feed"`
}

type APIConfig struct {
	APIURL     string `yaml:"apiUrl"`
	DataAPIURL string `yaml:"dataApiUrl"`
	APIKey     string `yaml:"apiKey"`
	AccountID  string `yaml:"accountId"`
	PrivateKey string `yaml:"privateKey"`
}

// BotConfig 做市参数；取值范围见 Validate。
type BotConfig struct {
	Symbol       string  `yaml:"symbol"`
	BaseOrderPct float64 `yaml:"baseOrderPct"`
	InvBudgetPct float64 `yaml:"invBudgetPct"`
	SlipGuardATR float64 `yaml:"slipGuardATR"`
	MinVol       int     `yaml:"minVol"`
	LongBiasOnly bool    `yaml:"longBiasOnly"`
	ATRLen       int     `yaml:"atrLen"`
	ATRTimeframe string  `yaml:"atrTimeframe"`
	KATR         float64 `yaml:"kATR"`
	MinFullBps   float64 `yaml:"minFullBps"`
	MaxFullBps   float64 `yaml:"maxFullBps"`
	SkewDamp     float64 `yaml:"skewDamp"`
	SizeAmp      float64 `yaml:"sizeAmp"`
	UseBullBias  bool    `yaml:"useBullBias"`
	BullBiasBps  float64 `yaml:"bullBiasBps"`
	RequoteBps   float64 `yaml:"requoteBps"`
	PostOnly     bool    `yaml:"postOnly"`
	TimeInForce  string  `yaml:"timeInForce"`
	MinNotional  float64 `yaml:"minNotional"`
	Leverage     int     `yaml:"leverage"`

	LoopIntervalSec int `yaml:"loopIntervalSec"`
	MaxOrdersPerMin int `yaml:"maxOrdersPerMin"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空关闭 /metrics
}

type FeedConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// StrategyParams 把配置映射为报价算法参数。
func (b BotConfig) StrategyParams() strategy.Params {
	return strategy.Params{
		BaseOrderPct: b.BaseOrderPct,
		InvBudgetPct: b.InvBudgetPct,
		SlipGuardATR: b.SlipGuardATR,
		LongBiasOnly: b.LongBiasOnly,
		KATR:         b.KATR,
		MinFullBps:   b.MinFullBps,
		MaxFullBps:   b.MaxFullBps,
		SkewDamp:     b.SkewDamp,
		SizeAmp:      b.SizeAmp,
		UseBullBias:  b.UseBullBias,
		BullBiasBps:  b.BullBiasBps,
		RequoteBps:   b.RequoteBps,
	}
}

// Load reads YAML config from path, applies defaults and validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config, pre-loading .env if present, then
// overrides credentials from environment variables.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	_ = godotenv.Load() // .env 不存在时忽略
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("HIBACHI_API_ENDPOINT"); v != "" {
		cfg.API.APIURL = v
	}
	if v := os.Getenv("HIBACHI_DATA_API_ENDPOINT"); v != "" {
		cfg.API.DataAPIURL = v
	}
	if v := os.Getenv("HIBACHI_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("HIBACHI_ACCOUNT_ID"); v != "" {
		cfg.API.AccountID = v
	}
	if v := os.Getenv("HIBACHI_PRIVATE_KEY"); v != "" {
		cfg.API.PrivateKey = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	b := &cfg.Bot
	if cfg.API.APIURL == "" {
		cfg.API.APIURL = "https://api.hibachi.xyz"
	}
	if cfg.API.DataAPIURL == "" {
		cfg.API.DataAPIURL = "https://data-api.hibachi.xyz"
	}
	if b.BaseOrderPct == 0 {
		b.BaseOrderPct = 1.0
	}
	if b.InvBudgetPct == 0 {
		b.InvBudgetPct = 30.0
	}
	if b.ATRLen == 0 {
		b.ATRLen = 14
	}
	if b.ATRTimeframe == "" {
		b.ATRTimeframe = "5m"
	}
	if b.KATR == 0 {
		b.KATR = 0.75
	}
	if b.MinFullBps == 0 {
		b.MinFullBps = 50.0
	}
	if b.MaxFullBps == 0 {
		b.MaxFullBps = 400.0
	}
	if b.SkewDamp == 0 {
		b.SkewDamp = 0.30
	}
	if b.SizeAmp == 0 {
		b.SizeAmp = 1.5
	}
	if b.BullBiasBps == 0 {
		b.BullBiasBps = 25.0
	}
	if b.RequoteBps == 0 {
		b.RequoteBps = 10.0
	}
	if b.TimeInForce == "" {
		b.TimeInForce = "GTC"
	}
	if b.MinNotional == 0 {
		b.MinNotional = 10.0
	}
	if b.Leverage == 0 {
		b.Leverage = 1
	}
	if b.LoopIntervalSec == 0 {
		b.LoopIntervalSec = 5
	}
	if b.MaxOrdersPerMin == 0 {
		b.MaxOrdersPerMin = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging = logger.DefaultConfig()
	}
}
