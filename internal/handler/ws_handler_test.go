package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/middleware"
	"github.com/telcprep/exam-session/internal/response"
)

type wsMessage struct {
	Event     string          `json:"event"`
	Action    string          `json:"action"`
	Error     string          `json:"error"`
	Retryable bool            `json:"retryable"`
	State     json.RawMessage `json:"state"`
}

func dialStream(t *testing.T, f *apiFixture, limiter SubmitLimiter, sessionID string) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws/v1/sessions/:id/stream", NewWSHandler(f.sessions, limiter, zerolog.Nop(), nil).SessionStream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/sessions/" + sessionID + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v (resp %v)", err, resp)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(wsMessage) bool) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWSHandler_SessionStream(t *testing.T) {
	f := newAPIFixture(t)
	sess, err := f.sessions.Open(context.Background(), 1, "")
	if err != nil {
		t.Fatal(err)
	}
	conn := dialStream(t, f, nil, sess.ID())

	first := readUntil(t, conn, "initial state", func(m wsMessage) bool { return true })
	if first.Event != "state" || len(first.State) == 0 {
		t.Fatalf("first message = %+v", first)
	}

	send := func(v interface{}) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatal(err)
		}
	}

	send(gin.H{"action": "ping"})
	readUntil(t, conn, "pong", func(m wsMessage) bool { return m.Event == "pong" })

	send(gin.H{"action": "navigate", "section": "leseverstehen"})
	refusal := readUntil(t, conn, "navigate error", func(m wsMessage) bool { return m.Event == "error" })
	if refusal.Action != "navigate" || refusal.Error != "Bitte starten Sie zuerst die Prüfung." {
		t.Errorf("refusal = %+v", refusal)
	}

	send(gin.H{"action": "autosave", "section": "sprachbausteine_teil1", "index": 2, "value": "c"})
	readUntil(t, conn, "answer_saved event", func(m wsMessage) bool { return m.Event == "answer_saved" })
	readUntil(t, conn, "autosave ack", func(m wsMessage) bool { return m.Event == "ack" && m.Action == "autosave" })

	send(gin.H{"action": "submit"})
	failed := readUntil(t, conn, "submit error", func(m wsMessage) bool { return m.Event == "error" })
	if failed.Action != "submit" || failed.Error != "Bitte geben Sie Ihren Namen ein." {
		t.Errorf("submit error = %+v", failed)
	}

	send(gin.H{"action": "teleport"})
	readUntil(t, conn, "unknown action error", func(m wsMessage) bool {
		return m.Event == "error" && m.Action == "teleport"
	})

	if err := f.sessions.Close(sess.ID()); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, "closed event", func(m wsMessage) bool { return m.Event == "closed" })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("after close: %v", err)
	}
}

func TestWSHandler_SubmitSharesRateLimit(t *testing.T) {
	f := newAPIFixture(t)
	sess, err := f.sessions.Open(context.Background(), 1, "")
	if err != nil {
		t.Fatal(err)
	}
	limiter := middleware.NewRateLimiter(clockwork.NewFakeClock(), 1, time.Minute, middleware.BySessionParam)
	if !limiter.Allow(middleware.SessionKey(sess.ID())) {
		t.Fatal("first HTTP-side charge refused")
	}

	conn := dialStream(t, f, limiter, sess.ID())
	readUntil(t, conn, "initial state", func(m wsMessage) bool { return m.Event == "state" })

	if err := conn.WriteJSON(gin.H{"action": "submit"}); err != nil {
		t.Fatal(err)
	}
	limited := readUntil(t, conn, "submit error", func(m wsMessage) bool { return m.Event == "error" })
	if limited.Action != "submit" || !limited.Retryable || limited.Error != response.GetMessage(response.ErrRateLimitExceeded) {
		t.Errorf("limited submit = %+v", limited)
	}
	if len(f.backend.submits) != 0 {
		t.Error("rate limited submit reached the backend")
	}
}

func TestWSHandler_RejectsUnknownSession(t *testing.T) {
	f := newAPIFixture(t)
	r := gin.New()
	r.GET("/ws/v1/sessions/:id/stream", NewWSHandler(f.sessions, nil, zerolog.Nop(), nil).SessionStream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/v1/sessions/0b8f3c52-7c1e-4d8e-9a57-3d0c2f1e9b11/stream", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestBuildUpgrader_CheckOrigin(t *testing.T) {
	up := buildUpgrader([]string{"http://localhost:3000"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"HTTP://LOCALHOST:3000", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", tt.origin)
		if got := up.CheckOrigin(r); got != tt.want {
			t.Errorf("CheckOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	if !buildUpgrader(nil).CheckOrigin(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Error("empty allow list should permit all origins")
	}
}
