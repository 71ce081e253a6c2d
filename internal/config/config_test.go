package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRPC, cfg.RPCHTTPS)
	assert.Equal(t, uint64(DefaultJitoTip), cfg.JitoTip)
	assert.Equal(t, uint64(500_000_000), cfg.EntryLamports())
	assert.Equal(t, 900*time.Second, cfg.Scanner().MaxAge)
	assert.Equal(t, 2800*time.Millisecond, cfg.Scanner().PollInterval)
	assert.Equal(t, 4*time.Second, cfg.Monitor().ProbeInterval)
	assert.Equal(t, 0.01, cfg.Monitor().ProbeRatio)
	assert.Equal(t, 0.3, cfg.Stops().HardStopLossPct)
	assert.Equal(t, 0.25, cfg.Stops().TrailingStopLossPct)

	f := cfg.Filter()
	assert.Equal(t, 20000.0, f.MinLiquidityUSD)
	assert.Equal(t, 50, f.MinHolders)
	assert.Equal(t, 20.0, f.MaxDevHoldingPct)
	assert.Equal(t, 60.0, f.MaxTop10HoldingPct)
	assert.Equal(t, 10000.0, f.MinVolumeUSD)
	assert.Equal(t, 5.0, f.Min5mPumpPct)

	assert.Empty(t, cfg.AdminToken)
	assert.False(t, cfg.Monitor().RetryFailedExits)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BUY_AMOUNT_SOL", "0.25")
	t.Setenv("JITO_TIP", "25000")
	t.Setenv("MIN_HOLDERS", "75")
	t.Setenv("TELEGRAM_ALLOWED_USER", "123456789")
	t.Setenv("AUTO_START", "true")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("RETRY_FAILED_EXITS", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, uint64(250_000_000), cfg.EntryLamports())
	assert.Equal(t, uint64(25000), cfg.JitoTip)
	assert.Equal(t, 75, cfg.MinHolders)
	assert.Equal(t, int64(123456789), cfg.TelegramAllowedUser)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.True(t, cfg.Monitor().RetryFailedExits)
}

func TestLoadConfig_DotEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("MAX_AGE_SECONDS=600\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MAX_AGE_SECONDS") })

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_volume_usd: 5000\nadmin_addr: \"\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 600*time.Second, cfg.Scanner().MaxAge)
	assert.Equal(t, 5000.0, cfg.MinVolumeUSD)
	assert.Empty(t, cfg.AdminAddr)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := map[string]string{
		"BUY_AMOUNT_SOL":         "0",
		"HARD_STOP_LOSS_PCT":     "1.5",
		"TRAILING_STOP_LOSS_PCT": "0",
		"SOL_PRICE_PROBE_RATIO":  "-0.1",
		"MAX_DEV_HOLDING_PCT":    "120",
		"PROBE_INTERVAL_MS":      "0",
		"FEED_URL":               "ftp://example.com/feed",
	}

	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(env, value)
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := LoadConfig("does-not-exist.yaml")
	assert.Error(t, err)
}
