package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"outagewatch/internal/observability"
	"outagewatch/internal/types"
)

func TestMountRoutes_HealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMountRoutes_MetricsEndpoint(t *testing.T) {
	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.Metrics = observability.NewMetricsForTesting()
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", w.Code)
	}
}

func TestMountRoutes_NoMetricsEndpointWithoutMetrics(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", w.Code)
	}
}

func TestMountRoutes_RequestIDGenerated(t *testing.T) {
	var seen string
	s := newTestServer(t, func(r chi.Router) {
		r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
			seen = types.GetRequestID(r.Context())
		})
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/echo", nil))

	header := w.Header().Get("X-Request-Id")
	if header == "" {
		t.Fatal("expected X-Request-Id response header")
	}
	if seen != header {
		t.Errorf("context id %q does not match header %q", seen, header)
	}
}

func TestMountRoutes_RequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-Id", "client-supplied")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-Id"); got != "client-supplied" {
		t.Errorf("expected propagated id, got %q", got)
	}
}

func TestMountRoutes_RecovererCatchesHandlerPanics(t *testing.T) {
	s := newTestServer(t, func(r chi.Router) {
		r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestMountRoutes_ContextDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	s := newTestServer(t, func(r chi.Router) {
		r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
		})
	})

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/slow", nil))

	if !ok {
		t.Fatal("expected request context to carry a deadline")
	}
	if remaining := time.Until(deadline); remaining > 5*time.Second {
		t.Errorf("deadline exceeds configured timeout: %v", remaining)
	}
}

func TestContextTimeoutMiddleware_Cancellation(t *testing.T) {
	handler := ContextTimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			if r.Context().Err() != context.DeadlineExceeded {
				t.Errorf("expected deadline exceeded, got %v", r.Context().Err())
			}
		case <-time.After(time.Second):
			t.Error("context was not cancelled")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestTimeout_Default(t *testing.T) {
	s := &Server{}
	if got := s.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("expected default %v, got %v", defaultRequestTimeout, got)
	}
}
