package generator

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"mockfogload/internal/plan"
	"mockfogload/internal/transport"
)

// SinkOpener opens the transport for a protocol and endpoint.
type SinkOpener func(protocol plan.Protocol, endpoint string) (transport.Sink, error)

// Options configure a Registry. Zero values get working defaults.
type Options struct {
	Logger *slog.Logger
	// Client is used by the default HTTP sinks.
	Client *http.Client
	// OpenSink overrides transport.Open.
	OpenSink SinkOpener
	// Fatal is called with errors that must stop the process. Defaults to
	// logging the error.
	Fatal func(error)
	Now   func() time.Time
}

// Registry owns every generator of a node and their periodic tasks.
type Registry struct {
	log      *slog.Logger
	openSink SinkOpener
	fatal    func(error)
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	generators map[string]*Generator
	timers     map[uint64]*time.Timer
	nextTimer  uint64

	running  atomic.Int32
	inflight atomic.Int32
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OpenSink == nil {
		client := opts.Client
		opts.OpenSink = func(p plan.Protocol, endpoint string) (transport.Sink, error) {
			return transport.Open(p, endpoint, client)
		}
	}
	if opts.Fatal == nil {
		log := opts.Logger
		opts.Fatal = func(err error) { log.Error("fatal generator error", "err", err) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		log:        opts.Logger,
		openSink:   opts.OpenSink,
		fatal:      opts.Fatal,
		now:        opts.Now,
		ctx:        ctx,
		cancel:     cancel,
		generators: make(map[string]*Generator),
		timers:     make(map[uint64]*time.Timer),
	}
}

// Snapshot returns the state of every generator ordered by id.
func (r *Registry) Snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.generators))
	for _, g := range r.generators {
		out = append(out, g.status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the state of one generator.
func (r *Registry) Get(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.generators[id]
	if !ok {
		return Status{}, false
	}
	return g.status(), true
}

// Close stops every task and pending event, marks every generator inactive,
// closes all transports and waits for in-flight sends to return.
func (r *Registry) Close() {
	r.mu.Lock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	for _, g := range r.generators {
		r.stop(g)
		g.Active = false
		if err := g.closeSink(); err != nil {
			r.log.Warn("closing transport failed", "generator", g.ID, "err", err)
		}
	}
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

// setActive moves g to the requested state. Requires r.mu.
func (r *Registry) setActive(g *Generator, active bool) {
	if g.Active == active {
		return
	}
	g.Active = active
	if active {
		r.start(g)
	} else {
		r.stop(g)
	}
}

// restart replaces the task of an active generator. Requires r.mu.
func (r *Registry) restart(g *Generator) {
	if !g.Active {
		return
	}
	r.stop(g)
	r.start(g)
}

// start launches the periodic task. Requires r.mu.
func (r *Registry) start(g *Generator) {
	g.generation++
	ctx, cancel := context.WithCancel(r.ctx)
	g.cancel = cancel
	r.wg.Add(1)
	go r.run(ctx, g, g.generation, g.Frequency)
	r.log.Debug("generator started", "generator", g.ID, "frequency", g.Frequency)
}

// stop cancels the periodic task. Requires r.mu; once it returns no tick of
// the cancelled task emits.
func (r *Registry) stop(g *Generator) {
	if g.cancel == nil {
		return
	}
	g.cancel()
	g.cancel = nil
	g.generation++
	r.log.Debug("generator stopped", "generator", g.ID)
}

func (r *Registry) run(ctx context.Context, g *Generator, generation uint64, every time.Duration) {
	defer r.wg.Done()
	r.running.Add(1)
	defer r.running.Add(-1)

	if !r.tick(ctx, g, generation) {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.tick(ctx, g, generation) {
				return
			}
		}
	}
}

// tick encodes one datapoint and hands it to a detached send bound to the
// task ctx. It reports false once the task is stale.
func (r *Registry) tick(ctx context.Context, g *Generator, generation uint64) bool {
	r.mu.Lock()
	if g.generation != generation || !g.Active {
		r.mu.Unlock()
		return false
	}
	value := g.source.Next(g.Clock)
	g.Clock = g.Clock.Add(g.Granularity)
	payload, contentType, err := Encode(value, g.Encoding, g.Template)
	if err != nil {
		r.mu.Unlock()
		g.failed.Add(1)
		r.log.Warn("encoding datapoint failed", "generator", g.ID, "err", err)
		return true
	}
	if g.sink == nil {
		g.sink, err = r.openSink(g.Protocol, g.Endpoint)
	}
	sink, endpoint := g.sink, g.Endpoint
	if err == nil {
		r.wg.Add(1)
		r.inflight.Add(1)
	}
	r.mu.Unlock()

	if err != nil {
		g.failed.Add(1)
		r.log.Warn("opening transport failed", "generator", g.ID, "endpoint", endpoint, "err", err)
		return true
	}
	go r.send(ctx, g, sink, endpoint, payload, contentType)
	return true
}

// send delivers one payload. Failures are counted and logged, never retried.
func (r *Registry) send(ctx context.Context, g *Generator, sink transport.Sink, endpoint string, payload []byte, contentType string) {
	defer r.wg.Done()
	defer r.inflight.Add(-1)
	if ctx.Err() != nil {
		return
	}
	if err := sink.Send(ctx, payload, contentType); err != nil {
		if ctx.Err() != nil {
			return
		}
		g.failed.Add(1)
		r.log.Warn("sending datapoint failed", "generator", g.ID, "endpoint", endpoint, "err", err)
		return
	}
	g.emitted.Add(1)
}
