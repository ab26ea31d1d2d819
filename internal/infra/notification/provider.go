package notification

import (
	"log/slog"

	"geodex/config"
	"geodex/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Supported notifier providers.
const (
	ProviderSMTP = "smtp"
	ProviderLog  = "log"
)

// Params holds dependencies for the Notifier, injected by Fx
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewNotifier creates a Notifier based on configuration.
func NewNotifier(params Params) (service.Notifier, error) {
	cfg := params.Config.Notifier
	logger := params.Logger

	switch cfg.Provider {
	case "", ProviderLog:
		logger.Info("Using log notifier")

		return NewLogNotifier(cfg.BaseURL, logger), nil

	case ProviderSMTP:
		if cfg.SMTP == nil || cfg.SMTP.Host == "" {
			return nil, errors.New("smtp host is required for smtp provider")
		}
		if cfg.SMTP.From == "" {
			return nil, errors.New("smtp from address is required for smtp provider")
		}
		logger.Info("Using SMTP notifier",
			slog.String("host", cfg.SMTP.Host),
			slog.Int("port", cfg.SMTP.Port),
		)

		return NewSMTPNotifier(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.From,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.BaseURL,
			logger,
		), nil

	default:
		return nil, errors.Errorf("unknown notifier provider: %s", cfg.Provider)
	}
}

// Module provides the notification FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewNotifier),
)
