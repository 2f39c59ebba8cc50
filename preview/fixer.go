package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPFixer calls an external fix service: POST a runtime error plus the
// current entry source, get back a proposed replacement.
type HTTPFixer struct {
	url    string
	client *http.Client
}

// NewHTTPFixer creates an HTTPFixer from config.
func NewHTTPFixer(cfg FixerConfig) *HTTPFixer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFixer{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

type fixRequest struct {
	Error  string `json:"error"`
	Source string `json:"source"`
}

type fixResponse struct {
	Source string `json:"source"`
}

// Fix implements the Fixer interface.
func (f *HTTPFixer) Fix(ctx context.Context, errorMessage, source string) (string, error) {
	body, err := json.Marshal(fixRequest{Error: errorMessage, Source: source})
	if err != nil {
		return "", fmt.Errorf("fixer: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fixer: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fixer: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fixer: status %d", resp.StatusCode)
	}

	var out fixResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("fixer: decode: %w", err)
	}
	if out.Source == "" {
		return "", fmt.Errorf("fixer: empty proposal")
	}
	return out.Source, nil
}
