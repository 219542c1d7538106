package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/config"
	"github.com/telcprep/exam-session/internal/handler"
	"github.com/telcprep/exam-session/internal/middleware"
	"github.com/telcprep/exam-session/internal/service"
)

func newTestRouter(t *testing.T, submitLimit int) http.Handler {
	t.Helper()
	sessions := service.NewSessionService(nil, nil, nil, nil,
		clockwork.NewFakeClock(), service.DefaultTimerDurations, zerolog.Nop())
	t.Cleanup(sessions.Shutdown)

	limiter := middleware.NewRateLimiter(clockwork.NewFakeClock(), submitLimit, time.Minute, middleware.BySessionParam)
	handlers := &Handlers{
		Session: handler.NewSessionHandler(sessions),
		WS:      handler.NewWSHandler(sessions, limiter, zerolog.Nop(), nil),
	}
	return SetupRouter(handlers, limiter, &config.Config{GinMode: "test"}, zerolog.Nop())
}

func TestSetupRouter(t *testing.T) {
	r := newTestRouter(t, 1)
	const unknown = "/api/v1/sessions/6f1c7a5e-2b1d-4c4e-8f0a-9d3b2e1c0a77"

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		noStore    bool
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, false},
		{"unknown route", http.MethodGet, "/api/v2/nothing", http.StatusNotFound, false},
		{"session state is not cached", http.MethodGet, unknown, http.StatusNotFound, true},
		{"first submit reaches the handler", http.MethodPost, unknown + "/submit", http.StatusNotFound, true},
		{"second submit is limited", http.MethodPost, unknown + "/submit", http.StatusTooManyRequests, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Cache-Control") == "no-store"; got != tt.noStore {
				t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}
