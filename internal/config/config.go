// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/monitor"
	"github.com/rovshanmuradov/coinbot/internal/sniping"
)

type Config struct {
	PrivateKey          string `mapstructure:"private_key"`
	WalletFile          string `mapstructure:"wallet_file"`
	WalletName          string `mapstructure:"wallet_name"`
	TelegramBotToken    string `mapstructure:"telegram_bot_token"`
	TelegramAllowedUser int64  `mapstructure:"telegram_allowed_user"`
	RPCHTTPS            string `mapstructure:"rpc_https"`

	JitoTip      uint64  `mapstructure:"jito_tip"`
	BuyAmountSOL float64 `mapstructure:"buy_amount_sol"`
	SlippagePct  float64 `mapstructure:"slippage_pct"`

	MaxAgeSeconds      int     `mapstructure:"max_age_seconds"`
	MinLiquidityUSD    float64 `mapstructure:"min_liquidity_usd"`
	MinHolders         int     `mapstructure:"min_holders"`
	MaxDevHoldingPct   float64 `mapstructure:"max_dev_holding_pct"`
	MaxTop10HoldingPct float64 `mapstructure:"max_top10_holding_pct"`
	MinVolumeUSD       float64 `mapstructure:"min_volume_usd"`
	Min5mPumpPct       float64 `mapstructure:"min_5m_pump_pct"`

	HardStopLossPct     float64 `mapstructure:"hard_stop_loss_pct"`
	TrailingStopLossPct float64 `mapstructure:"trailing_stop_loss_pct"`
	SolPriceProbeRatio  float64 `mapstructure:"sol_price_probe_ratio"`

	PollIntervalMS  int `mapstructure:"poll_interval_ms"`
	FeedRetryMS     int `mapstructure:"feed_retry_ms"`
	ProbeIntervalMS int `mapstructure:"probe_interval_ms"`
	ProbeRetryMS    int `mapstructure:"probe_retry_ms"`

	RetryFailedExits bool `mapstructure:"retry_failed_exits"`

	JupiterQuoteURL string  `mapstructure:"jupiter_quote_url"`
	JupiterSwapURL  string  `mapstructure:"jupiter_swap_url"`
	FeedURL         string  `mapstructure:"feed_url"`
	JitoURL         string  `mapstructure:"jito_url"`
	HTTPTimeoutMS   int     `mapstructure:"http_timeout_ms"`
	HTTPRetries     int     `mapstructure:"http_retries"`
	HTTPRatePerSec  float64 `mapstructure:"http_rate_per_sec"`

	JournalPath  string `mapstructure:"journal_path"`
	AdminAddr    string `mapstructure:"admin_addr"`
	AdminToken   string `mapstructure:"admin_token"`
	LogFile      string `mapstructure:"log_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	AutoStart    bool   `mapstructure:"auto_start"`
}

const (
	DefaultRPC        = "https://api.mainnet-beta.solana.com"
	DefaultJitoTip    = 10000
	DefaultBuyAmount  = 0.5
	DefaultQuoteURL   = "https://quote-api.jup.ag/v6/quote"
	DefaultSwapURL    = "https://quote-api.jup.ag/v6/swap"
	DefaultFeedURL    = "https://pump.fun/api/launches?limit=50"
	DefaultJitoURL    = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"
	DefaultWalletName = "main"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"private_key":            "",
		"wallet_file":            "",
		"wallet_name":            DefaultWalletName,
		"telegram_bot_token":     "",
		"telegram_allowed_user":  0,
		"rpc_https":              DefaultRPC,
		"jito_tip":               DefaultJitoTip,
		"buy_amount_sol":         DefaultBuyAmount,
		"slippage_pct":           1.0,
		"max_age_seconds":        900,
		"min_liquidity_usd":      20000.0,
		"min_holders":            50,
		"max_dev_holding_pct":    20.0,
		"max_top10_holding_pct":  60.0,
		"min_volume_usd":         10000.0,
		"min_5m_pump_pct":        5.0,
		"hard_stop_loss_pct":     0.3,
		"trailing_stop_loss_pct": 0.25,
		"sol_price_probe_ratio":  0.01,
		"poll_interval_ms":       2800,
		"feed_retry_ms":          3000,
		"probe_interval_ms":      4000,
		"probe_retry_ms":         3000,
		"retry_failed_exits":     false,
		"jupiter_quote_url":      DefaultQuoteURL,
		"jupiter_swap_url":       DefaultSwapURL,
		"feed_url":               DefaultFeedURL,
		"jito_url":               DefaultJitoURL,
		"http_timeout_ms":        15000,
		"http_retries":           5,
		"http_rate_per_sec":      10.0,
		"journal_path":           "trades.db",
		"admin_addr":             "127.0.0.1:8080",
		"admin_token":            "",
		"log_file":               "coinbot.log",
		"debug_logging":          false,
		"auto_start":             false,
	}
}

// LoadConfig reads .env (if present), then the optional config file at path,
// then environment variables named after the upper-cased keys.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.PrivateKey = strings.TrimSpace(cfg.PrivateKey)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.BuyAmountSOL <= 0 {
		return errors.New("buy_amount_sol must be positive")
	}
	if cfg.SlippagePct <= 0 || cfg.SlippagePct > 100 {
		return errors.New("slippage_pct must be in (0, 100]")
	}
	if cfg.MaxAgeSeconds <= 0 {
		return errors.New("invalid max_age_seconds")
	}
	if cfg.MinHolders < 0 {
		return errors.New("invalid min_holders")
	}
	for name, pct := range map[string]float64{
		"max_dev_holding_pct":   cfg.MaxDevHoldingPct,
		"max_top10_holding_pct": cfg.MaxTop10HoldingPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be in [0, 100]", name)
		}
	}
	for name, frac := range map[string]float64{
		"hard_stop_loss_pct":     cfg.HardStopLossPct,
		"trailing_stop_loss_pct": cfg.TrailingStopLossPct,
		"sol_price_probe_ratio":  cfg.SolPriceProbeRatio,
	} {
		if frac <= 0 || frac >= 1 {
			return fmt.Errorf("%s must be in (0, 1)", name)
		}
	}
	for name, ms := range map[string]int{
		"poll_interval_ms":  cfg.PollIntervalMS,
		"feed_retry_ms":     cfg.FeedRetryMS,
		"probe_interval_ms": cfg.ProbeIntervalMS,
		"probe_retry_ms":    cfg.ProbeRetryMS,
		"http_timeout_ms":   cfg.HTTPTimeoutMS,
	} {
		if ms <= 0 {
			return fmt.Errorf("invalid %s", name)
		}
	}
	if cfg.HTTPRetries < 0 {
		return errors.New("invalid http_retries")
	}
	if cfg.HTTPRatePerSec < 0 {
		return errors.New("invalid http_rate_per_sec")
	}
	for name, raw := range map[string]string{
		"rpc_https":         cfg.RPCHTTPS,
		"jupiter_quote_url": cfg.JupiterQuoteURL,
		"jupiter_swap_url":  cfg.JupiterSwapURL,
		"feed_url":          cfg.FeedURL,
		"jito_url":          cfg.JitoURL,
	} {
		if err := validateURL(raw, "http"); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// EntryLamports returns the per-trade entry amount in lamports.
func (c *Config) EntryLamports() uint64 {
	return uint64(math.Round(c.BuyAmountSOL * domain.LamportsPerSOL))
}

// Filter returns the admission thresholds.
func (c *Config) Filter() sniping.Filter {
	return sniping.Filter{
		MinLiquidityUSD:    c.MinLiquidityUSD,
		MinHolders:         c.MinHolders,
		MaxDevHoldingPct:   c.MaxDevHoldingPct,
		MaxTop10HoldingPct: c.MaxTop10HoldingPct,
		MinVolumeUSD:       c.MinVolumeUSD,
		Min5mPumpPct:       c.Min5mPumpPct,
	}
}

// Stops returns the stop-loss fractions.
func (c *Config) Stops() monitor.Stops {
	return monitor.Stops{
		HardStopLossPct:     c.HardStopLossPct,
		TrailingStopLossPct: c.TrailingStopLossPct,
	}
}

// Scanner returns the discovery loop settings.
func (c *Config) Scanner() sniping.Config {
	return sniping.Config{
		PollInterval:  ms(c.PollIntervalMS),
		RetryInterval: ms(c.FeedRetryMS),
		MaxAge:        time.Duration(c.MaxAgeSeconds) * time.Second,
	}
}

// Monitor returns the exit policy for new positions.
func (c *Config) Monitor() monitor.Config {
	return monitor.Config{
		ProbeRatio:    c.SolPriceProbeRatio,
		SlippagePct:   c.SlippagePct,
		ProbeInterval: ms(c.ProbeIntervalMS),
		RetryInterval: ms(c.ProbeRetryMS),
		Ladder:        monitor.DefaultLadder(),
		Stops:         c.Stops(),

		RetryFailedExits: c.RetryFailedExits,
	}
}

// HTTPTimeout returns the per-request timeout for external APIs.
func (c *Config) HTTPTimeout() time.Duration {
	return ms(c.HTTPTimeoutMS)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
