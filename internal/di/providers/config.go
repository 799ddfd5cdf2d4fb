// Package providers contains dependency injection providers for the soundswap background.
package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/remowork/soundswap/internal/config"
	"github.com/remowork/soundswap/internal/logger"
)

// defaultShutdownTimeout applies when the config leaves the timeout unset.
const defaultShutdownTimeout = 30 * time.Second

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting soundswap background",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"asset_base_url", cfg.Sounds.AssetBaseURL,
		"data_path", cfg.Storage.DataPath,
		"preset_path", cfg.Sounds.PresetPath,
		"page_origin", cfg.Page.Origin,
	)

	return log, nil
}
