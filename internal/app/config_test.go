package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Pricing.PrepBuffer)
	assert.Equal(t, 1500*time.Millisecond, cfg.Simulation.AuthDelay)
	assert.Equal(t, time.Second, cfg.Simulation.OTPDelay)
	assert.Equal(t, 3*time.Second, cfg.Simulation.PaymentDelay)
	assert.Equal(t, 10*time.Second, cfg.Simulation.PaymentTimeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)

	fee, err := cfg.Pricing.Fee()
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("BITE_ADDR", "127.0.0.1:9000")
	t.Setenv("BITE_PRICING_DELIVERY_FEE", "12.50")
	t.Setenv("BITE_SIMULATION_PAYMENT_DELAY", "0s")
	t.Setenv("BITE_PROMO_FILE", "/tmp/promos.json")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "/tmp/promos.json", cfg.PromoFile)
	assert.Zero(t, cfg.Simulation.PaymentDelay)

	fee, err := cfg.Pricing.Fee()
	require.NoError(t, err)
	assert.Equal(t, "12.5", fee.String())
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://bite@db/bite")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr)
	assert.Equal(t, "postgres://bite@db/bite", cfg.DatabaseURL)

	t.Setenv("BITE_DATABASE_URL", "postgres://explicit/bite")
	t.Setenv("BITE_ADDR", "127.0.0.1:8081")
	cfg, err = loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr, "explicit address wins over PORT")
	assert.Equal(t, "postgres://explicit/bite", cfg.DatabaseURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("BITE_PRICING_DELIVERY_FEE", "-5")
	_, err := loadConfig([]string{})
	require.Error(t, err)

	t.Setenv("BITE_PRICING_DELIVERY_FEE", "ten")
	_, err = loadConfig([]string{})
	require.Error(t, err)
}

func TestPricingConfig_Fee(t *testing.T) {
	fee, err := PricingConfig{}.Fee()
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}
