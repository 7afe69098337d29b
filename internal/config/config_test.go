package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100000.0, cfg.Account.Capital)
	assert.Equal(t, 2.0, cfg.Risk.MaxDailyLossPct)
	assert.Equal(t, 10, cfg.Risk.MaxConcurrentPositions)
	assert.Equal(t, "America/New_York", cfg.Market.Timezone)
	assert.True(t, cfg.Strategies.ORB)
	assert.True(t, cfg.Strategies.EODReversal)
	assert.Equal(t, "reports", cfg.ReportDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"account": {"capital": 50000},
		"risk": {"max_daily_loss_pct": 1.5},
		"strategies": {"gap_and_go": false},
		"log_level": "debug"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.Account.Capital)
	assert.Equal(t, 1.5, cfg.Risk.MaxDailyLossPct)
	assert.False(t, cfg.Strategies.GapAndGo)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched keys stay at their defaults
	assert.Equal(t, 5.0, cfg.Risk.MaxWeeklyLossPct)
	assert.Equal(t, 9, cfg.Market.OpenHour)
	assert.Equal(t, 30, cfg.Market.OpenMinute)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"account": {`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero capital",
			mutate:  func(c *Config) { c.Account.Capital = 0 },
			wantErr: "capital must be positive",
		},
		{
			name:    "negative daily loss pct",
			mutate:  func(c *Config) { c.Risk.MaxDailyLossPct = -1 },
			wantErr: "must be in (0, 100]",
		},
		{
			name:    "position size over 100",
			mutate:  func(c *Config) { c.Risk.MaxPositionSizePct = 120 },
			wantErr: "must be in (0, 100]",
		},
		{
			name:    "zero concurrent positions",
			mutate:  func(c *Config) { c.Risk.MaxConcurrentPositions = 0 },
			wantErr: "max_concurrent_positions must be at least 1",
		},
		{
			name:    "zero trades per day",
			mutate:  func(c *Config) { c.Risk.MaxTradesPerDay = 0 },
			wantErr: "max_trades_per_day must be at least 1",
		},
		{
			name:    "zero consecutive losses",
			mutate:  func(c *Config) { c.Risk.MaxConsecutiveLosses = 0 },
			wantErr: "max_consecutive_losses must be at least 1",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Market.Timezone = "Mars/Olympus" },
			wantErr: "invalid market timezone",
		},
		{
			name:    "open hour out of range",
			mutate:  func(c *Config) { c.Market.OpenHour = 24 },
			wantErr: "market hours out of range",
		},
		{
			name:    "close minute out of range",
			mutate:  func(c *Config) { c.Market.CloseMinute = 75 },
			wantErr: "market minutes out of range",
		},
		{
			name:    "negative open buffer",
			mutate:  func(c *Config) { c.Market.AvoidFirstMinutes = -1 },
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocationResolvesTimezone(t *testing.T) {
	cfg := Default()
	loc := cfg.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "America/New_York", loc.String())
}
