package external

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"outagewatch/internal/config"
)

// ClientRegistry holds every vendor client the service talks to.
type ClientRegistry struct {
	Weather WeatherProvider
	Email   EmailProvider
	SMS     SMSProvider
}

// NewClientRegistry initializes vendor clients. When cfg.UsesStubs() is true
// (test mode or APP_ENV=local) stubs are returned that need no credentials.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, clock clockwork.Clock) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.UsesStubs() {
		logger.Info("initializing external clients in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		stubLogger := logger.With("mode", "stub")
		return &ClientRegistry{
			Weather: NewStubWeatherProvider(stubLogger, clock),
			Email:   NewStubEmailProvider(stubLogger),
			SMS:     NewStubSMSProvider(stubLogger),
		}, nil
	}

	logger.Info("initializing external clients in PRODUCTION mode", "environment", cfg.Environment)

	return &ClientRegistry{
		Weather: NewOpenWeatherClient(&http.Client{Timeout: cfg.Weather.Timeout}, OpenWeatherClientConfig{
			APIKey:  cfg.Weather.APIKey.Unmask(),
			BaseURL: cfg.Weather.BaseURL,
			Logger:  logger.With("client", "openweather"),
			Clock:   clock,
		}),
		Email: NewSendGridClient(&http.Client{Timeout: 10 * time.Second}, SendGridClientConfig{
			APIKey:      cfg.Email.SendGridAPIKey.Unmask(),
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			Logger:      logger.With("client", "sendgrid"),
		}),
		SMS: NewTwilioClient(&http.Client{Timeout: 10 * time.Second}, TwilioClientConfig{
			AccountSID: cfg.SMS.AccountSID.Unmask(),
			AuthToken:  cfg.SMS.AuthToken.Unmask(),
			FromNumber: cfg.SMS.FromNumber,
			BaseURL:    cfg.SMS.BaseURL,
			Logger:     logger.With("client", "twilio"),
		}),
	}, nil
}
