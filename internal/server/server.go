// Package server exposes a node's generator registry over HTTP.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mockfogload/internal/datagen"
	"mockfogload/internal/generator"
)

//go:embed templates/index.html
var content embed.FS

// maxBody bounds a /config request.
const maxBody = 1 << 20

// maxSamples bounds one sample request.
const maxSamples = 1000

// Registry is what the server needs from the generator registry.
type Registry interface {
	Schedule(generator.Event) error
	Snapshot() []generator.Status
	Pending() int
}

// Server serves the generator runtime API and a status page.
type Server struct {
	reg Registry
	log *slog.Logger
	tpl *template.Template
	mux *http.ServeMux
}

// NewServer wires the routes over reg. A nil log uses slog.Default.
func NewServer(reg Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{reg: reg, log: log, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /config", s.handleConfig)
	s.mux.HandleFunc("GET /generators", s.handleGenerators)
	s.mux.HandleFunc("GET /generators/{kind}/sample", s.handleSample)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("generator runtime listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleConfig accepts a JSON array of events and schedules each one.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var events []generator.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&events); err != nil {
		http.Error(w, "invalid event batch: "+err.Error(), http.StatusBadRequest)
		return
	}
	accepted := 0
	for _, ev := range events {
		if err := s.reg.Schedule(ev); err != nil {
			s.log.Warn("event rejected", "type", ev.Type, "err", err)
			continue
		}
		accepted++
	}
	s.log.Debug("events received", "count", len(events), "accepted", accepted)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"received": len(events), "accepted": accepted})
}

func (s *Server) handleGenerators(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.reg.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Generators []generator.Status
		Pending    int
	}{
		Generators: s.reg.Snapshot(),
		Pending:    s.reg.Pending(),
	}
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Warn("render index failed", "err", err)
	}
}

// handleSample returns values drawn from a fresh source of the requested kind,
// independent of the registry. Without amount a single object is returned,
// otherwise an array. seed and virtual_time (epoch ms) are optional.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	kind, ok := lookupKind(r.PathValue("kind"))
	if !ok {
		http.Error(w, "unknown kind, known kinds: "+strings.Join(datagen.Kinds(), ", "), http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	seed := int64(generator.DefaultSeed)
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid seed", http.StatusBadRequest)
			return
		}
		seed = n
	}
	clock := generator.DefaultClock
	if v := q.Get("virtual_time"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid virtual_time", http.StatusBadRequest)
			return
		}
		clock = time.UnixMilli(ms).UTC()
	}
	amount := 1
	if v := q.Get("amount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			n = 1
		}
		amount = min(n, maxSamples)
	}

	src, err := datagen.New(kind, seed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	values := make([]datagen.Value, 0, amount)
	for range amount {
		values = append(values, src.Next(clock))
		clock = clock.Add(generator.DefaultGranularity)
	}
	w.Header().Set("Content-Type", "application/json")
	if !q.Has("amount") {
		json.NewEncoder(w).Encode(values[0])
		return
	}
	json.NewEncoder(w).Encode(values)
}

// lookupKind matches name against the known kinds ignoring case.
func lookupKind(name string) (string, bool) {
	for _, k := range datagen.Kinds() {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}
