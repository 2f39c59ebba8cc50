package preview

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Entry != "App.jsx" {
		t.Errorf("Entry: got %q, want App.jsx", cfg.Entry)
	}
	if cfg.Stylesheet != "styles.css" {
		t.Errorf("Stylesheet: got %q, want styles.css", cfg.Stylesheet)
	}
	if cfg.Imports["react"] == "" {
		t.Error("react import pin missing from defaults")
	}
	if cfg.Imports["react/jsx-runtime"] == "" {
		t.Error("react/jsx-runtime pin missing; transpiled JSX cannot resolve without it")
	}
	if cfg.HTTP.SandboxURL != "http://127.0.0.1:8777/sandbox/current" {
		t.Errorf("SandboxURL: got %q", cfg.HTTP.SandboxURL)
	}
	if cfg.Store.Debounce != 300*time.Millisecond {
		t.Errorf("Debounce: got %v", cfg.Store.Debounce)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "previewd.yaml")
	data := `
entry: main.tsx
http:
  addr: "127.0.0.1:9000"
store:
  path: /tmp/project.db
browser:
  disabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Entry != "main.tsx" {
		t.Errorf("Entry: got %q, want main.tsx", cfg.Entry)
	}
	if cfg.HTTP.SandboxURL != "http://127.0.0.1:9000/sandbox/current" {
		t.Errorf("SandboxURL derived: got %q", cfg.HTTP.SandboxURL)
	}
	if !cfg.Browser.Disabled {
		t.Error("Browser.Disabled not parsed")
	}
	// Untouched fields still get defaults.
	if cfg.Stylesheet != "styles.css" {
		t.Errorf("Stylesheet default: got %q", cfg.Stylesheet)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile accepted malformed YAML")
	}
}
