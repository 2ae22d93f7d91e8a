package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mockfogload/internal/logging"
	"mockfogload/internal/nodemap"
)

// maxReportSize bounds the body read from an agent.
const maxReportSize = 16 << 20

// Collector pulls each (stage, host) report at most once.
type Collector struct {
	client *http.Client
	writer Writer
	run    string
	fatal  func(error)

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewCollector creates a collector writing to w. fatal is called when a pull
// fails; a nil fatal only logs.
func NewCollector(client *http.Client, w Writer, run string, fatal func(error)) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if fatal == nil {
		fatal = func(err error) { slog.Error("report collection failed", "err", err) }
	}
	return &Collector{client: client, writer: w, run: run, fatal: fatal, seen: make(map[string]struct{})}
}

// Register reports whether (stage, host) has not been registered before.
func (c *Collector) Register(stage, host string) bool {
	key := stage + "\x00" + host
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	return true
}

// Pull fetches the report and appends it. Any failure goes to the fatal hook,
// except when ctx was cancelled, which ends the run anyway.
func (c *Collector) Pull(ctx context.Context, stage string, host nodemap.Entry, url string) {
	log := logging.FromContext(ctx)
	r, err := c.Fetch(ctx, stage, host, url)
	if err == nil {
		err = c.writer.Write(r)
	}
	if err != nil && ctx.Err() != nil {
		log.Warn("report pull abandoned", "stage", stage, "host", host.ID, "err", err)
		return
	}
	if err != nil {
		c.fatal(fmt.Errorf("report for stage %s from %s: %w", stage, host.ID, err))
		return
	}
	log.Info("report collected", "stage", stage, "host", host.ID)
}

// Fetch GETs url and annotates the document.
func (c *Collector) Fetch(ctx context.Context, stage string, host nodemap.Entry, url string) (Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Report{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReportSize))
	if err != nil {
		return Report{}, fmt.Errorf("read report: %w", err)
	}
	doc, err := Annotate(raw, stage, host.ID)
	if err != nil {
		return Report{}, err
	}
	return Report{Run: c.run, Stage: stage, Host: host.ID, CollectedAt: time.Now().UTC(), Document: doc}, nil
}
