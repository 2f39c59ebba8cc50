package sandbox

import (
	"sync/atomic"
	"testing"
	"time"
)

// Recycle must invoke the callbacks with the manager lock released: the
// engine's hooks take its own lock, which a concurrent rebuild holds
// while calling Browser() here. Re-entering the manager from the callback
// checks that: it blocks forever if Recycle still holds m.mu.
func TestManager_RecycleCallbacksRunUnlocked(t *testing.T) {
	m := NewManager(Config{RemoteURL: "ws://127.0.0.1:1"})

	var reentered atomic.Bool
	m.SetRecycleCallback(&RecycleCallback{
		BeforeRecycle: func() {
			done := make(chan struct{})
			go func() {
				m.Browser()
				close(done)
			}()
			select {
			case <-done:
				reentered.Store(true)
			case <-time.After(5 * time.Second):
			}
		},
	})

	// Relaunch against a dead control URL fails, but the callback has
	// already run by then.
	if err := m.Recycle(); err == nil {
		t.Fatal("Recycle with unreachable control URL: got nil error, want error")
	}
	if !reentered.Load() {
		t.Error("BeforeRecycle could not re-enter the manager")
	}
}

func TestManager_RecycleAfterClose(t *testing.T) {
	m := NewManager(Config{RemoteURL: "ws://127.0.0.1:1"})
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Recycle(); err == nil {
		t.Error("Recycle after Close: got nil error, want error")
	}
}

func TestMount_NoBrowser(t *testing.T) {
	if _, err := Mount(nil, nil, 1, "http://127.0.0.1:0/doc", nil, nil); err == nil {
		t.Fatal("Mount without a browser: got nil error, want error")
	}
}
