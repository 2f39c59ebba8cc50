package preview

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level previewd configuration.
type Config struct {
	// Entry is the designated mount entry path inside the project.
	Entry string `yaml:"entry"`
	// Stylesheet is the designated global stylesheet carried verbatim
	// into the sandbox document.
	Stylesheet string `yaml:"stylesheet"`
	// Imports pins well-known runtime dependency names to fixed
	// resolution targets in the sandbox import map.
	Imports map[string]string `yaml:"imports"`

	HTTP    HTTPConfig    `yaml:"http"`
	Browser BrowserConfig `yaml:"browser"`
	Store   StoreConfig   `yaml:"store"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	Fixer   FixerConfig   `yaml:"fixer"`
}

// HTTPConfig controls the daemon's control surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// SandboxURL is the absolute URL the sandbox frame navigates to for
	// the current document. Derived from Addr when empty.
	SandboxURL string `yaml:"sandbox_url"`
}

// BrowserConfig controls the sandbox host's Chrome lifecycle.
type BrowserConfig struct {
	// Disabled skips the headless frame entirely; the document is still
	// built and served for an external iframe to execute.
	Disabled        bool          `yaml:"disabled"`
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
}

// StoreConfig locates the SQLite project store written by the editor.
type StoreConfig struct {
	Path         string        `yaml:"path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// SinkConfig defines an additional telemetry backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// FixerConfig points at the AI auto-fix collaborator.
type FixerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills every unset field. Called by LoadFile; call it again
// after overriding Addr so the derived SandboxURL follows.
func (c *Config) ApplyDefaults() {
	if c.Entry == "" {
		c.Entry = "App.jsx"
	}
	if c.Stylesheet == "" {
		c.Stylesheet = "styles.css"
	}
	if c.Imports == nil {
		c.Imports = map[string]string{
			"react":             "https://esm.sh/react@18.3.1",
			"react-dom":         "https://esm.sh/react-dom@18.3.1",
			"react-dom/client":  "https://esm.sh/react-dom@18.3.1/client",
			"react/jsx-runtime": "https://esm.sh/react@18.3.1/jsx-runtime",
		}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8777"
	}
	if c.HTTP.SandboxURL == "" {
		host := c.HTTP.Addr
		if strings.HasPrefix(host, ":") {
			host = "127.0.0.1" + host
		}
		c.HTTP.SandboxURL = "http://" + host + "/sandbox/current"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Store.PollInterval <= 0 {
		c.Store.PollInterval = 200 * time.Millisecond
	}
	if c.Store.Debounce <= 0 {
		c.Store.Debounce = 300 * time.Millisecond
	}
	if c.Fixer.Timeout <= 0 {
		c.Fixer.Timeout = 60 * time.Second
	}
}
