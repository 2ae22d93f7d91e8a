package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSink POSTs each payload to a URL.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink for url. A nil client gets a 5s timeout client.
func NewHTTPSink(url string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSink{url: url, client: client}
}

func (s *HTTPSink) Send(ctx context.Context, payload []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %s", s.url, resp.Status)
	}
	return nil
}

// Close is a no-op; the client is shared.
func (s *HTTPSink) Close() error { return nil }
