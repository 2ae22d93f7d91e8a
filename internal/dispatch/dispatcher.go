package dispatch

import (
	"bytes"
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

// ReportPuller collects the stage reports of the node agents.
type ReportPuller interface {
	// Register reports whether the (stage, host) pair is new.
	Register(stage, host string) bool
	Pull(ctx context.Context, stage string, host nodemap.Entry, url string)
}

// Dispatcher fires the actions of a Schedule at their time.
type Dispatcher struct {
	client  *http.Client
	reports ReportPuller
	now     func() time.Time
}

// NewDispatcher creates a dispatcher. A nil client gets a 10s timeout client;
// a nil puller skips report actions.
func NewDispatcher(client *http.Client, reports ReportPuller) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Dispatcher{client: client, reports: reports, now: time.Now}
}

// Run arms one timer per action and blocks until every action has fired and
// finished, or ctx is cancelled. Send failures are logged and not retried.
func (d *Dispatcher) Run(ctx context.Context, s *Schedule) error {
	log := logging.FromContext(ctx)
	log.Info("run scheduled", "start", s.Start.Format(time.RFC3339Nano), "actions", len(s.Actions))

	var (
		wg     sync.WaitGroup
		timers []*time.Timer
	)
	for _, a := range s.Actions {
		if a.Kind == ActionReport && d.reports == nil {
			continue
		}
		if a.Kind == ActionReport && !d.reports.Register(a.Stage, a.Host.ID) {
			continue
		}
		a := a
		wg.Add(1)
		t := time.AfterFunc(a.At.Sub(d.now()), func() {
			defer wg.Done()
			d.fire(ctx, log, a)
		})
		timers = append(timers, t)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("run finished")
		return nil
	case <-ctx.Done():
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) fire(ctx context.Context, log *slog.Logger, a Action) {
	switch a.Kind {
	case ActionStage:
		log.Info("stage started", "stage", a.Stage, "at", d.now().Format(time.RFC3339Nano))
	case ActionSend:
		if err := d.post(ctx, a.URL, a.Body); err != nil {
			log.Warn("dispatch failed", "stage", a.Stage, "host", a.Host.ID, "url", a.URL, "err", err)
			return
		}
		log.Debug("dispatched", "stage", a.Stage, "host", a.Host.ID, "url", a.URL)
	case ActionReport:
		d.reports.Pull(ctx, a.Stage, a.Host, a.URL)
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
