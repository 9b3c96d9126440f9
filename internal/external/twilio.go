package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"outagewatch/internal/types"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioClientConfig holds the configuration for creating a TwilioClient.
type TwilioClientConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string // defaults to twilioAPIBase
	Logger     *slog.Logger
}

// TwilioClient implements SMSProvider with the Twilio Messages resource.
type TwilioClient struct {
	base       *BaseClient
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	logger     *slog.Logger
}

// NewTwilioClient creates a TwilioClient. Sends are never retried.
func NewTwilioClient(httpClient *http.Client, cfg TwilioClientConfig) *TwilioClient {
	return NewTwilioClientWithBase(NewBaseClient(httpClient, "twilio", NoRetryPolicy()), cfg)
}

// NewTwilioClientWithBase creates a TwilioClient with a pre-configured BaseClient.
func NewTwilioClientWithBase(base *BaseClient, cfg TwilioClientConfig) *TwilioClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TwilioClient{
		base:       base,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

type twilioMessageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts the message as a form to
// /2010-04-01/Accounts/{sid}/Messages.json. Twilio answers 201 Created on
// success; the response sid is returned as the message ID.
func (c *TwilioClient) Send(ctx context.Context, msg SMSMessage) (string, error) {
	form := url.Values{}
	form.Set("From", c.fromNumber)
	form.Set("To", msg.To)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Twilio request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.base.Do(req)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return "", appErr
		}
		return "", types.NewAppError(types.ErrCodeUpstreamSMSProvider, "Twilio request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamSMSProvider, "failed to read Twilio response", err)
	}

	if resp.StatusCode != http.StatusCreated {
		message := string(body)
		var twErr twilioErrorResponse
		if jsonErr := json.Unmarshal(body, &twErr); jsonErr == nil && twErr.Message != "" {
			message = twErr.Message
		}
		return "", types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamSMSProvider,
			fmt.Sprintf("Twilio error (%d): %s", resp.StatusCode, message),
			nil,
			map[string]any{"status": resp.StatusCode, "twilio_code": twErr.Code},
		)
	}

	var out twilioMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.logger.WarnContext(ctx, "twilio accepted message but response was unparseable", "error", err)
		return "", nil
	}
	return out.SID, nil
}

var _ SMSProvider = (*TwilioClient)(nil)
