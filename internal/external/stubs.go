package external

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"outagewatch/internal/types"
)

// Stub implementations let the service boot in local/test mode without
// vendor credentials. They log every call and return predictable values.

// StubWeatherProvider synthesizes mild, coordinate-dependent conditions.
type StubWeatherProvider struct {
	logger *slog.Logger
	clock  clockwork.Clock
}

// NewStubWeatherProvider creates a new StubWeatherProvider.
func NewStubWeatherProvider(logger *slog.Logger, clock clockwork.Clock) *StubWeatherProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StubWeatherProvider{logger: logger, clock: clock}
}

func (s *StubWeatherProvider) Current(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	s.logger.InfoContext(ctx, "stub: Current weather called", "lat", lat, "lon", lon)
	seed := math.Abs(math.Sin(lat*12.9898 + lon*78.233)) // stable per coordinate
	return &types.WeatherObservation{
		Timestamp:             s.clock.Now().UTC(),
		Latitude:              lat,
		Longitude:             lon,
		Temperature:           18 + 10*seed,
		Humidity:              50 + 40*seed,
		WindSpeed:             2 + 10*seed,
		PrecipitationLastHour: math.Round(5*seed*10) / 10,
		CloudCover:            math.Round(100 * seed),
		Condition:             "Clouds",
		Description:           "stub conditions",
	}, nil
}

// StubEmailProvider logs emails instead of sending them.
type StubEmailProvider struct {
	logger *slog.Logger
	sent   atomic.Int64
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	n := s.sent.Add(1)
	s.logger.InfoContext(ctx, "stub: Send email called", "to", msg.To, "subject", msg.Subject)
	return fmt.Sprintf("email_stub_%d", n), nil
}

// StubSMSProvider logs text messages instead of sending them.
type StubSMSProvider struct {
	logger *slog.Logger
	sent   atomic.Int64
}

// NewStubSMSProvider creates a new StubSMSProvider.
func NewStubSMSProvider(logger *slog.Logger) *StubSMSProvider {
	return &StubSMSProvider{logger: logger}
}

func (s *StubSMSProvider) Send(ctx context.Context, msg SMSMessage) (string, error) {
	n := s.sent.Add(1)
	s.logger.InfoContext(ctx, "stub: Send SMS called", "to", msg.To, "length", len(msg.Body))
	return fmt.Sprintf("SMstub%d", n), nil
}

var (
	_ WeatherProvider = (*StubWeatherProvider)(nil)
	_ EmailProvider   = (*StubEmailProvider)(nil)
	_ SMSProvider     = (*StubSMSProvider)(nil)
)
