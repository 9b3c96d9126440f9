package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"outagewatch/internal/types"
)

func newTestTwilioClient(t *testing.T, serverURL string) *TwilioClient {
	t.Helper()
	return NewTwilioClientWithBase(newTestClient(t, NoRetryPolicy()), TwilioClientConfig{
		AccountSID: "AC0123456789",
		AuthToken:  "tw-secret",
		FromNumber: "+15550001111",
		BaseURL:    serverURL,
	})
}

func TestTwilioSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/2010-04-01/Accounts/AC0123456789/Messages.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC0123456789" || pass != "tw-secret" {
			t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("From") != "+15550001111" || r.PostForm.Get("To") != "+254700000001" {
			t.Errorf("form = %v", r.PostForm)
		}
		if r.PostForm.Get("Body") != "URGENT: High risk" {
			t.Errorf("Body = %q", r.PostForm.Get("Body"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	sid, err := newTestTwilioClient(t, server.URL).Send(context.Background(), SMSMessage{
		To:   "+254700000001",
		Body: "URGENT: High risk",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid != "SM123" {
		t.Errorf("sid = %q", sid)
	}
}

func TestTwilioSend_OKIsNotCreated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer server.Close()

	_, err := newTestTwilioClient(t, server.URL).Send(context.Background(), SMSMessage{To: "+1"})

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamSMSProvider {
		t.Fatalf("expected %s, got %v", types.ErrCodeUpstreamSMSProvider, err)
	}
}

func TestTwilioSend_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer server.Close()

	_, err := newTestTwilioClient(t, server.URL).Send(context.Background(), SMSMessage{To: "bogus"})

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeUpstreamSMSProvider {
		t.Errorf("code = %s", appErr.Code)
	}
	if appErr.Details["twilio_code"] != 21211 {
		t.Errorf("twilio_code = %v", appErr.Details["twilio_code"])
	}
}

func TestTwilioSend_ServerErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewTwilioClient(server.Client(), TwilioClientConfig{
		AccountSID: "AC0123456789",
		AuthToken:  "tw-secret",
		FromNumber: "+15550001111",
		BaseURL:    server.URL,
	})
	_, err := client.Send(context.Background(), SMSMessage{To: "+254700000001", Body: "URGENT: High risk"})

	if err == nil {
		t.Fatal("expected error for 502")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected exactly one delivery attempt, got %d", got)
	}
}
