package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mockfogload/internal/generator"
	"mockfogload/internal/plan"
	"mockfogload/internal/transport"
)

type nopSink struct{}

func (nopSink) Send(context.Context, []byte, string) error { return nil }
func (nopSink) Close() error                               { return nil }

func newTestServer(t *testing.T) (*Server, *generator.Registry) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := generator.NewRegistry(generator.Options{
		Logger:   log,
		OpenSink: func(plan.Protocol, string) (transport.Sink, error) { return nopSink{}, nil },
	})
	t.Cleanup(reg.Close)
	return NewServer(reg, log), reg
}

func TestHandleConfig(t *testing.T) {
	srv, reg := newTestServer(t)
	body := `[{"type":"modify","timestamp":"0","data":{"id":"g1","kind":"Power","frequency":100}}]`
	req := httptest.NewRequest(http.MethodPost, "/config", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body)
	}
	st, ok := reg.Get("g1")
	if !ok || st.Kind != "Power" || st.Frequency != 100 {
		t.Fatalf("generator not configured: %+v", st)
	}
}

func TestHandleConfigRejectsGarbage(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/config", strings.NewReader(`{"type":`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHandleConfigMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHandleGenerators(t *testing.T) {
	srv, reg := newTestServer(t)
	_ = reg.Apply(generator.Event{Type: generator.EventModify, Data: &plan.GeneratorChange{ID: "b", Kind: plan.String("HeartRate")}})
	_ = reg.Apply(generator.Event{Type: generator.EventModify, Data: &plan.GeneratorChange{ID: "a", Kind: plan.String("Power")}})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators", nil))
	var got []generator.Status
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestHandleIndexAndHealth(t *testing.T) {
	srv, reg := newTestServer(t)
	_ = reg.Apply(generator.Event{Type: generator.EventModify, Data: &plan.GeneratorChange{ID: "g1", Kind: plan.String("Power")}})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "g1") {
		t.Fatalf("index status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
}

func TestHandleSample(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/power/sample", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body)
	}
	var one map[string]any
	if err := json.NewDecoder(w.Body).Decode(&one); err != nil {
		t.Fatalf("single sample is not an object: %v", err)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/HeartRate/sample?amount=5&seed=7", nil))
	var many []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&many); err != nil {
		t.Fatal(err)
	}
	if len(many) != 5 {
		t.Fatalf("samples=%d, want 5", len(many))
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/HeartRate/sample?amount=5&seed=7", nil))
	var again []map[string]any
	_ = json.NewDecoder(w.Body).Decode(&again)
	if fmt.Sprint(again) != fmt.Sprint(many) {
		t.Fatal("same seed must give the same samples")
	}
}

func TestHandleSampleBounds(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/Weather/sample", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Temperature") {
		t.Fatalf("unknown kind: status=%d body=%s", w.Code, w.Body)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/Power/sample?amount=bogus", nil))
	var got []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil || len(got) != 1 {
		t.Fatalf("non-numeric amount falls back to 1: %v %d", err, len(got))
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/Power/sample?amount=5000", nil))
	got = nil
	_ = json.NewDecoder(w.Body).Decode(&got)
	if len(got) != maxSamples {
		t.Fatalf("samples=%d, want cap %d", len(got), maxSamples)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generators/Power/sample?seed=x", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad seed status=%d", w.Code)
	}
}
