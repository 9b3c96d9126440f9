// Package alerts converts a risk assessment into notification actions.
//
// Escalation is tiered on the risk score:
//
//	score < 0.4          nothing
//	0.4 <= score < 0.7   email
//	score >= 0.7         email, then SMS
//
// Channel failures are logged and reported as false in the outcome. They are
// never returned to the caller and never retried here.
package alerts

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/jonboulle/clockwork"

	"outagewatch/internal/external"
	"outagewatch/internal/observability"
	"outagewatch/internal/types"
)

// Escalation thresholds.
const (
	EmailThreshold = 0.4
	SMSThreshold   = 0.7
)

const timeLayout = "2006-01-02 15:04:05"

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))

// messageData is the struct passed into templates for rendering.
type messageData struct {
	SiteName    string
	Time        string
	RiskPercent string
	Message     string
	Temperature float64
	Humidity    float64
	WindSpeed   float64
}

// Config holds the collaborators of an Escalator.
type Config struct {
	Email    external.EmailProvider
	SMS      external.SMSProvider
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Recorder observability.Recorder
}

// Escalator dispatches alerts for a single assessment.
type Escalator struct {
	email    external.EmailProvider
	sms      external.SMSProvider
	clock    clockwork.Clock
	logger   *slog.Logger
	recorder observability.Recorder
}

// NewEscalator creates an Escalator. Clock, Logger and Recorder default to
// the real clock, slog.Default and a no-op recorder.
func NewEscalator(cfg Config) *Escalator {
	e := &Escalator{
		email:    cfg.Email,
		sms:      cfg.SMS,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.recorder == nil {
		e.recorder = observability.Nop{}
	}
	return e
}

// Escalate fires the channels the assessment's score calls for. An
// assessment without a trained model never fires.
func (e *Escalator) Escalate(ctx context.Context, siteName, email, phone string, a types.RiskAssessment) types.AlertOutcome {
	out := types.AlertOutcome{RiskLevel: a.RiskScore}
	if !a.ModelAvailable || a.RiskScore < EmailThreshold {
		return out
	}

	data := messageData{
		SiteName:    siteName,
		Time:        e.clock.Now().Format(timeLayout),
		RiskPercent: fmt.Sprintf("%.1f", a.RiskScore*100),
		Message:     a.Message,
		Temperature: a.Observation.Temperature,
		Humidity:    a.Observation.Humidity,
		WindSpeed:   a.Observation.WindSpeed,
	}
	log := e.logger.With("site", siteName, "risk_score", a.RiskScore)

	out.EmailSent = e.sendEmail(ctx, log, email, data)
	if a.RiskScore >= SMSThreshold {
		out.SMSSent = e.sendSMS(ctx, log, phone, data)
	}
	return out
}

func (e *Escalator) sendEmail(ctx context.Context, log *slog.Logger, to string, data messageData) bool {
	sent := false
	defer func() { e.recorder.AlertDelivery(ctx, types.ChannelEmail, sent) }()

	if to == "" {
		log.WarnContext(ctx, "email alert skipped: site has no contact email")
		return false
	}
	body, err := render("email.txt", data)
	if err != nil {
		log.ErrorContext(ctx, "failed to render email alert", "error", err)
		return false
	}
	id, err := e.email.Send(ctx, external.EmailMessage{
		To:      to,
		Subject: "Network Outage Risk Alert - " + data.SiteName,
		Body:    body,
	})
	if err != nil {
		log.ErrorContext(ctx, "email alert failed", "error", err)
		return false
	}
	log.InfoContext(ctx, "email alert sent", "message_id", id)
	sent = true
	return true
}

func (e *Escalator) sendSMS(ctx context.Context, log *slog.Logger, to string, data messageData) bool {
	sent := false
	defer func() { e.recorder.AlertDelivery(ctx, types.ChannelSMS, sent) }()

	if to == "" {
		log.WarnContext(ctx, "sms alert skipped: site has no contact phone")
		return false
	}
	body, err := render("sms.txt", data)
	if err != nil {
		log.ErrorContext(ctx, "failed to render sms alert", "error", err)
		return false
	}
	id, err := e.sms.Send(ctx, external.SMSMessage{To: to, Body: body})
	if err != nil {
		log.ErrorContext(ctx, "sms alert failed", "error", err)
		return false
	}
	log.InfoContext(ctx, "sms alert sent", "message_id", id)
	sent = true
	return true
}

func render(name string, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
