package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("ALPACA_API_KEY", "key")
	t.Setenv("ALPACA_SECRET_KEY", "secret")
	t.Setenv("SYMPHONY_NAME", "Steady Eddies")
	t.Setenv("SIGNAL_FILE", "testdata/signals.csv")
	t.Setenv("REBALANCER_DATA_DIR", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://paper-api.alpaca.markets", cfg.AlpacaBaseURL)
	assert.Equal(t, "https://data.alpaca.markets", cfg.AlpacaDataURL)
	assert.Equal(t, 1.0, cfg.CashWeight)
	assert.Equal(t, 1.0, cfg.MinOrderQty)
	assert.Equal(t, 60, int(cfg.Timeout.Seconds()))
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_CashWeightFromDecimalString(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CASH_WEIGHT", "1.15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 1.15, cfg.CashWeight, 1e-9)
}

func TestLoad_InvalidCashWeight(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CASH_WEIGHT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{
		SymphonyName: "Steady Eddies",
		SignalFile:   "signals.csv",
		CashWeight:   1.0,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALPACA_API_KEY")
}

func TestValidate_MissingSignalSource(t *testing.T) {
	cfg := &Config{
		AlpacaAPIKey:    "key",
		AlpacaAPISecret: "secret",
		SymphonyName:    "Steady Eddies",
		CashWeight:      1.0,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal source")
}

func TestValidate_BucketWithoutKey(t *testing.T) {
	cfg := &Config{
		AlpacaAPIKey:    "key",
		AlpacaAPISecret: "secret",
		SymphonyName:    "Steady Eddies",
		SignalBucket:    "signals",
		CashWeight:      1.0,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_NonPositiveCashWeight(t *testing.T) {
	cfg := &Config{
		AlpacaAPIKey:    "key",
		AlpacaAPISecret: "secret",
		SymphonyName:    "Steady Eddies",
		SignalFile:      "signals.csv",
		CashWeight:      0,
	}
	assert.Error(t, cfg.Validate())
}
