package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/previewd/preview/event"
)

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	if err := s.SendConsole(context.Background(), event.Console{
		Generation: 1, Kind: event.KindLog, Message: "hi", TimestampMs: 5,
	}); err != nil {
		t.Fatalf("SendConsole: %v", err)
	}
	if err := s.SendNetwork(context.Background(), event.Network{
		Generation: 1, Method: "GET", URL: "https://x", Status: event.StatusErr,
	}); err != nil {
		t.Fatalf("SendNetwork: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal line 0: %v", err)
	}
	if first.Type != event.TypeConsole {
		t.Errorf("line 0 type: got %q, want %q", first.Type, event.TypeConsole)
	}
	if !strings.Contains(lines[1], `"ERR"`) {
		t.Errorf("network line should carry the ERR sentinel: %s", lines[1])
	}
}

func TestRouter_FanOutContinuesOnError(t *testing.T) {
	bad := NewCallback(func(context.Context, event.Console) error {
		return errors.New("sink down")
	}, nil)

	var delivered int
	good := NewCallback(func(context.Context, event.Console) error {
		delivered++
		return nil
	}, nil)

	r := NewRouter(nil, bad, good)
	err := r.SendConsole(context.Background(), event.Console{Kind: event.KindLog})
	if err == nil {
		t.Error("SendConsole: got nil, want first error returned")
	}
	if delivered != 1 {
		t.Errorf("second sink deliveries: got %d, want 1", delivered)
	}
}

func TestCallback_NilHandlers(t *testing.T) {
	c := NewCallback(nil, nil)
	if err := c.SendConsole(context.Background(), event.Console{}); err != nil {
		t.Errorf("SendConsole with nil handler: %v", err)
	}
	if err := c.SendNetwork(context.Background(), event.Network{}); err != nil {
		t.Errorf("SendNetwork with nil handler: %v", err)
	}
}
