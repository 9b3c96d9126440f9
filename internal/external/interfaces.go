package external

import (
	"context"

	"outagewatch/internal/types"
)

// WeatherProvider returns current conditions for a coordinate.
type WeatherProvider interface {
	// Current fetches the latest observation. Failures are reported as
	// types.ErrCodeUpstreamWeather (or another upstream_* code) and are
	// never replaced by a synthesized value.
	Current(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error)
}

// EmailMessage is a pre-rendered plain-text email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// EmailProvider transmits email. It returns the provider's message ID.
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) (providerMsgID string, err error)
}

// SMSMessage is a pre-rendered text message.
type SMSMessage struct {
	To   string
	Body string
}

// SMSProvider transmits text messages. It returns the provider's message ID.
type SMSProvider interface {
	Send(ctx context.Context, msg SMSMessage) (providerMsgID string, err error)
}
