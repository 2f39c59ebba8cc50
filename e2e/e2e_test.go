// Package e2e tests the full preview chain through a real browser: build
// pipeline → served sandbox document → headless Chrome frame → bridge
// binding → host consumer.
//
// The tests launch a local Chrome via rod's launcher and skip when no
// browser binary is available, so the rest of the suite stays hermetic.
package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/hazyhaar/previewd/preview"
)

// entryTemplate exercises the instrumentation shim from project code: a
// circular structure through the patched console, a plain string, and a
// fetch against a dead endpoint. No imports, so everything runs without
// reaching the CDN.
const entryTemplate = `
const cyc = {};
cyc.self = cyc;
console.log(cyc);
console.log("bridge check");
fetch(%q).catch(function () {});
export default function App() { return null; }
`

func countLogs(c *preview.Consumer, message string) int {
	n := 0
	for _, l := range c.Logs() {
		if l.Message == message {
			n++
		}
	}
	return n
}

// deadEndpoint returns a URL nothing listens on.
func deadEndpoint(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return "http://" + addr + "/unreachable"
}

func TestE2E_BridgeInstrumentation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, has := launcher.LookPath(); !has {
		t.Skip("no chrome binary found")
	}

	cfg := preview.Default()
	e := preview.NewEngine(cfg)

	srv := httptest.NewServer(preview.NewServer(e, nil).Handler())
	defer srv.Close()
	cfg.HTTP.SandboxURL = srv.URL + "/sandbox/current"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Start(ctx); err != nil {
		t.Skipf("browser did not start: %v", err)
	}
	defer e.Close()

	deadURL := deadEndpoint(t)
	project := preview.ProjectMap{"App.jsx": fmt.Sprintf(entryTemplate, deadURL)}
	if err := e.Update(ctx, project); err != nil {
		t.Fatalf("Update: %v", err)
	}

	c := e.Consumer()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.Requests()) >= 1 &&
			countLogs(c, "bridge check") >= 1 &&
			countLogs(c, "[object Object]") >= 1 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// The circular structure must not break logging: structured
	// serialization fails, the shim coerces, exactly one event arrives.
	if got := countLogs(c, "[object Object]"); got != 1 {
		t.Errorf("circular-value log events: got %d, want 1", got)
	}
	if got := countLogs(c, "bridge check"); got != 1 {
		t.Errorf("plain-string log events: got %d, want 1", got)
	}

	matched := 0
	for _, r := range c.Requests() {
		if !strings.Contains(r.URL, "/unreachable") {
			continue
		}
		matched++
		if !r.Status.Failed() {
			t.Errorf("status: got %d, want the ERR sentinel", r.Status)
		}
		if r.DurationMs < 0 {
			t.Errorf("durationMs: got %d, want >= 0", r.DurationMs)
		}
		if r.Method != "GET" {
			t.Errorf("method: got %q, want GET", r.Method)
		}
		if r.Generation != 1 {
			t.Errorf("generation stamp: got %d, want 1", r.Generation)
		}
	}
	if matched != 1 {
		t.Fatalf("failed-fetch network events: got %d, want 1", matched)
	}
}
