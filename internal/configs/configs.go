/*
Package configs loads and validates the relay's configuration.

Settings come from environment variables (read through viper with defaults), so the
relay runs with no configuration at all: it listens on port 7070 in development mode
with the presence journal disabled.
*/
package configs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultPort            = 7070
	DefaultMaxMessageBytes = 5000
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	RegisterRate   float64
	RegisterBurst  int
	ConnectRate    float64
	ConnectBurst   int

	// Protocol Settings
	MaxMessageBytes int

	// Presence journal; empty disables it.
	DatabaseDSN string
}

// IsDevelopment reports whether the relay runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("REGISTER_RATE", 1.0)
	v.SetDefault("REGISTER_BURST", 5)
	v.SetDefault("CONNECT_RATE", 2.0)
	v.SetDefault("CONNECT_BURST", 20)
	v.SetDefault("MAX_MESSAGE_BYTES", DefaultMaxMessageBytes)
	v.SetDefault("DATABASE_URL", "")

	return v
}

// LoadConfig reads the configuration from environment variables, applying defaults
// and validating ranges.
func LoadConfig() (*AppConfig, error) {
	return load(newViper())
}

func load(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = strings.TrimSpace(v.GetString("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := parseInt(v, "PORT")
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the valid range (1-65535)", port)
	}
	cfg.Port = port

	// --- Security Settings ---
	for _, origin := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{}
	}

	if cfg.RegisterRate, cfg.RegisterBurst, err = parseLimit(v, "REGISTER"); err != nil {
		return nil, err
	}
	if cfg.ConnectRate, cfg.ConnectBurst, err = parseLimit(v, "CONNECT"); err != nil {
		return nil, err
	}

	// --- Protocol Settings ---
	maxBytes, err := parseInt(v, "MAX_MESSAGE_BYTES")
	if err != nil {
		return nil, err
	}
	if maxBytes < 1 {
		return nil, fmt.Errorf("MAX_MESSAGE_BYTES must be at least 1, got %d", maxBytes)
	}
	cfg.MaxMessageBytes = maxBytes

	// --- Presence Journal ---
	cfg.DatabaseDSN = strings.TrimSpace(v.GetString("DATABASE_URL"))

	return cfg, nil
}

// parseLimit reads the <prefix>_RATE and <prefix>_BURST pair of a rate limiter.
func parseLimit(v *viper.Viper, prefix string) (float64, int, error) {
	rateKey, burstKey := prefix+"_RATE", prefix+"_BURST"

	rate, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(rateKey)), 64)
	if err != nil || rate <= 0 {
		return 0, 0, fmt.Errorf("%s must be a positive number, got %q", rateKey, v.GetString(rateKey))
	}

	burst, err := parseInt(v, burstKey)
	if err != nil {
		return 0, 0, err
	}
	if burst < 1 {
		return 0, 0, fmt.Errorf("%s must be at least 1, got %d", burstKey, burst)
	}

	return rate, burst, nil
}

// parseInt reads key as an integer. viper's GetInt silently maps garbage to 0, which
// would hide a typo in PORT.
func parseInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}
