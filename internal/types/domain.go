package types

import "time"

// WeatherObservation is a point-in-time weather reading for a coordinate.
// Observations are immutable once recorded. Numeric fields that the upstream
// source omits are stored as zero.
type WeatherObservation struct {
	ID                    int64     `json:"id,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
	Latitude              float64   `json:"latitude"`
	Longitude             float64   `json:"longitude"`
	Temperature           float64   `json:"temperature"`             // °C
	Humidity              float64   `json:"humidity"`                // %
	WindSpeed             float64   `json:"wind_speed"`              // m/s
	PrecipitationLastHour float64   `json:"precipitation_last_hour"` // mm
	CloudCover            float64   `json:"cloud_cover"`             // %
	Condition             string    `json:"condition,omitempty"`
	Description           string    `json:"description,omitempty"`
}

// OutageEvent records a loss of connectivity at a site. EndTime is nil and
// Active is true until the outage is resolved.
type OutageEvent struct {
	ID        int64      `json:"id"`
	SiteID    int64      `json:"site_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Active    bool       `json:"active"`
	Cause     string     `json:"cause,omitempty"`
}

// Resolved reports whether the outage has been closed.
func (o OutageEvent) Resolved() bool {
	return !o.Active && o.EndTime != nil
}

// Site is a monitored physical location (a school) with its alert contacts.
type Site struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	CreatedAt    time.Time `json:"created_at"`
}

// RiskTier is the coarse label derived from a continuous risk probability.
type RiskTier string

const (
	RiskTierLow         RiskTier = "low"
	RiskTierModerate    RiskTier = "moderate"
	RiskTierHigh        RiskTier = "high"
	RiskTierUnavailable RiskTier = "unavailable"
)

// RiskAssessment is the result of scoring one observation.
//
// When ModelAvailable is false the score and confidence carry the 0.5 / 0.0
// sentinel and must not be read as a real estimate.
type RiskAssessment struct {
	RiskScore      float64            `json:"risk_score"`
	Confidence     float64            `json:"confidence"`
	Tier           RiskTier           `json:"tier"`
	Message        string             `json:"message"`
	ModelAvailable bool               `json:"model_available"`
	Observation    WeatherObservation `json:"current_weather"`
}

// AlertOutcome reports which notification channels fired for an assessment.
type AlertOutcome struct {
	EmailSent bool    `json:"email_sent"`
	SMSSent   bool    `json:"sms_sent"`
	RiskLevel float64 `json:"risk_level"`
}

// AlertChannel identifies a notification transport.
type AlertChannel string

const (
	ChannelEmail AlertChannel = "email"
	ChannelSMS   AlertChannel = "sms"
)

// AlertEvent is the record published after every escalation.
type AlertEvent struct {
	EventID    string    `json:"event_id"`
	SiteID     int64     `json:"site_id"`
	SiteName   string    `json:"site_name"`
	RiskScore  float64   `json:"risk_score"`
	Tier       RiskTier  `json:"tier"`
	EmailSent  bool      `json:"email_sent"`
	SMSSent    bool      `json:"sms_sent"`
	Test       bool      `json:"test"`
	OccurredAt time.Time `json:"occurred_at"`
}
