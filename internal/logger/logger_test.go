package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_Formats(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		format   string
		isTTY    bool
		wantJSON bool
	}{
		{"json", true, true},
		{"pretty", false, false},
		{"auto", true, false},
		{"auto", false, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		log := New(&buf, "info", tt.format, tt.isTTY)
		log.Info().Str("phase", "teil1-3").Msg("Phase changed")

		var fields map[string]any
		isJSON := json.Unmarshal(buf.Bytes(), &fields) == nil
		if isJSON != tt.wantJSON {
			t.Errorf("format %q tty=%v: json=%v, output %q", tt.format, tt.isTTY, isJSON, buf.String())
		}
		if !strings.Contains(buf.String(), "Phase changed") {
			t.Errorf("format %q: message missing from %q", tt.format, buf.String())
		}
	}
}

func TestNew_Level(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	log := New(&buf, "warn", "json", false)
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}

	log = New(&buf, "bogus", "json", false)
	log.Info().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("unknown level did not fall back to info")
	}
}
