package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config represents the complete configuration for the trading agent
type Config struct {
	// Account settings
	Account AccountConfig `json:"account"`

	// Risk management limits
	Risk RiskConfig `json:"risk"`

	// Market session settings
	Market MarketConfig `json:"market"`

	// Per-strategy enablement
	Strategies StrategiesConfig `json:"strategies"`

	// Notification configuration (optional)
	Notifications *NotificationConfig `json:"notifications,omitempty"`

	// Reporting output directory for trade journals
	ReportDir string `json:"report_dir,omitempty"`

	// Prometheus metrics listen address (empty disables the endpoint)
	MetricsAddr string `json:"metrics_addr,omitempty"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level,omitempty"`
}

// AccountConfig holds account-level settings
type AccountConfig struct {
	Capital float64 `json:"capital"` // Starting capital in USD (paper trading)
}

// RiskConfig holds the circuit breaker and validation limits
type RiskConfig struct {
	MaxDailyLossPct        float64 `json:"max_daily_loss_pct"`       // Daily loss limit as % of capital
	MaxWeeklyLossPct       float64 `json:"max_weekly_loss_pct"`      // Weekly loss limit as % of capital
	MaxMonthlyDrawdownPct  float64 `json:"max_monthly_drawdown_pct"` // Monthly drawdown limit as % of capital
	MaxPositionSizePct     float64 `json:"max_position_size_pct"`    // Single position cap as % of equity
	MaxRiskPerTradePct     float64 `json:"max_risk_per_trade_pct"`   // Risk budget per trade as % of equity
	MaxConcurrentPositions int     `json:"max_concurrent_positions"` // Open position cap across strategies
	MaxTradesPerDay        int     `json:"max_trades_per_day"`       // Daily trade count cap
	MaxConsecutiveLosses   int     `json:"max_consecutive_losses"`   // Per-strategy auto-disable threshold
}

// MarketConfig holds the exchange session window
type MarketConfig struct {
	Timezone          string `json:"timezone"`            // Exchange-local timezone
	OpenHour          int    `json:"open_hour"`           // Session open hour
	OpenMinute        int    `json:"open_minute"`         // Session open minute
	CloseHour         int    `json:"close_hour"`          // Session close hour
	CloseMinute       int    `json:"close_minute"`        // Session close minute
	AvoidFirstMinutes int    `json:"avoid_first_minutes"` // Skip the first N minutes after open
	AvoidLastMinutes  int    `json:"avoid_last_minutes"`  // Skip the last N minutes before close
}

// StrategiesConfig toggles the five rule engines
type StrategiesConfig struct {
	ORB           bool `json:"orb"`
	VWAPReversion bool `json:"vwap_reversion"`
	MomentumScalp bool `json:"momentum_scalp"`
	GapAndGo      bool `json:"gap_and_go"`
	EODReversal   bool `json:"eod_reversal"`
}

// NotificationConfig holds Telegram alert settings. Token and chat ID are
// read from the environment, never from the config file.
type NotificationConfig struct {
	Enabled bool `json:"enabled"`
}

// Default returns a configuration with the standard limits applied.
func Default() *Config {
	return &Config{
		Account: AccountConfig{Capital: 100000},
		Risk: RiskConfig{
			MaxDailyLossPct:        2.0,
			MaxWeeklyLossPct:       5.0,
			MaxMonthlyDrawdownPct:  10.0,
			MaxPositionSizePct:     15.0,
			MaxRiskPerTradePct:     1.0,
			MaxConcurrentPositions: 10,
			MaxTradesPerDay:        30,
			MaxConsecutiveLosses:   5,
		},
		Market: MarketConfig{
			Timezone:          "America/New_York",
			OpenHour:          9,
			OpenMinute:        30,
			CloseHour:         16,
			CloseMinute:       0,
			AvoidFirstMinutes: 5,
			AvoidLastMinutes:  5,
		},
		Strategies: StrategiesConfig{
			ORB:           true,
			VWAPReversion: true,
			MomentumScalp: true,
			GapAndGo:      true,
			EODReversal:   true,
		},
		ReportDir: "reports",
		LogLevel:  "info",
	}
}

// Load reads a JSON config file and merges it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks all thresholds at load time so bad configuration fails
// fast instead of surfacing mid-session.
func (c *Config) Validate() error {
	if c.Account.Capital <= 0 {
		return fmt.Errorf("account capital must be positive, got %.2f", c.Account.Capital)
	}

	pcts := map[string]float64{
		"max_daily_loss_pct":       c.Risk.MaxDailyLossPct,
		"max_weekly_loss_pct":      c.Risk.MaxWeeklyLossPct,
		"max_monthly_drawdown_pct": c.Risk.MaxMonthlyDrawdownPct,
		"max_position_size_pct":    c.Risk.MaxPositionSizePct,
		"max_risk_per_trade_pct":   c.Risk.MaxRiskPerTradePct,
	}
	for name, v := range pcts {
		if v <= 0 || v > 100 {
			return fmt.Errorf("%s must be in (0, 100], got %.2f", name, v)
		}
	}

	if c.Risk.MaxConcurrentPositions < 1 {
		return fmt.Errorf("max_concurrent_positions must be at least 1, got %d", c.Risk.MaxConcurrentPositions)
	}
	if c.Risk.MaxTradesPerDay < 1 {
		return fmt.Errorf("max_trades_per_day must be at least 1, got %d", c.Risk.MaxTradesPerDay)
	}
	if c.Risk.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("max_consecutive_losses must be at least 1, got %d", c.Risk.MaxConsecutiveLosses)
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("invalid market timezone %q: %w", c.Market.Timezone, err)
	}
	if c.Market.OpenHour < 0 || c.Market.OpenHour > 23 || c.Market.CloseHour < 0 || c.Market.CloseHour > 23 {
		return fmt.Errorf("market hours out of range: open %d close %d", c.Market.OpenHour, c.Market.CloseHour)
	}
	if c.Market.OpenMinute < 0 || c.Market.OpenMinute > 59 || c.Market.CloseMinute < 0 || c.Market.CloseMinute > 59 {
		return fmt.Errorf("market minutes out of range: open %d close %d", c.Market.OpenMinute, c.Market.CloseMinute)
	}
	if c.Market.AvoidFirstMinutes < 0 || c.Market.AvoidLastMinutes < 0 {
		return fmt.Errorf("avoid_first_minutes and avoid_last_minutes must not be negative")
	}

	return nil
}

// Location returns the exchange-local timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		panic(fmt.Sprintf("unvalidated market timezone %q: %v", c.Market.Timezone, err))
	}
	return loc
}
