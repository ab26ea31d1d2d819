package impl

import (
	"log/slog"
	"time"

	"geodex/config"
)

// testConfig returns a config with the defaults the services expect.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Directory = &config.DirectoryConfig{
		MaxBboxResults: 500,
		MaxCategories:  10,
	}
	cfg.Subscription = &config.SubscriptionConfig{
		RequireSubscriptionConfirmation: true,
		TokenTTL:                        48 * time.Hour,
		IndexCellSizeDeg:                5.0,
	}
	cfg.Dispatch = &config.DispatchConfig{
		Workers:        2,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		BatchSize:      50,
		RatePerSecond:  1000,
		DrainTimeout:   time.Second,
	}
	cfg.Notifier = &config.NotifierConfig{
		Provider: "log",
		BaseURL:  "https://maps.example.org",
	}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.Default()
}
