package generator

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"mockfogload/internal/datagen"
	"mockfogload/internal/plan"
)

// EventType names a reconfiguration event.
type EventType string

const (
	EventStopAll   EventType = "stop_all"
	EventResumeAll EventType = "resume_all"
	EventModify    EventType = "modify"
)

// ErrMissingKind is returned when a modify event names an unknown generator
// without giving its kind.
var ErrMissingKind = errors.New("generator kind is required")

// Event is one timestamped reconfiguration. Timestamp is in epoch
// milliseconds; Data is only used by modify.
type Event struct {
	Type      EventType             `json:"type"`
	Timestamp plan.Number           `json:"timestamp"`
	Data      *plan.GeneratorChange `json:"data,omitempty"`
}

// FireAt returns the wall-clock time the event is due.
func (e Event) FireAt() (time.Time, error) {
	ms, err := e.Timestamp.Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// IsFatal reports whether err from Apply means the event referenced a
// generator that could not be created.
func IsFatal(err error) bool {
	return errors.Is(err, datagen.ErrUnknownKind) || errors.Is(err, ErrMissingKind)
}

// Schedule applies ev at its timestamp, or right away when that has passed.
// Fatal errors go to the fatal hook, anything else is logged.
func (r *Registry) Schedule(ev Event) error {
	at, err := ev.FireAt()
	if err != nil {
		return err
	}
	fire := func() {
		if err := r.Apply(ev); err != nil {
			if IsFatal(err) {
				r.fatal(err)
				return
			}
			r.log.Warn("generator event applied with errors", "type", ev.Type, "err", err)
		}
	}
	delay := at.Sub(r.now())
	if delay <= 0 {
		fire()
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return fmt.Errorf("registry closed")
	}
	r.nextTimer++
	id := r.nextTimer
	r.timers[id] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, id)
		r.mu.Unlock()
		fire()
	})
	r.log.Debug("generator event scheduled", "type", ev.Type, "at", at)
	return nil
}

// Pending returns the number of scheduled events that have not fired.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Apply runs ev now. A modify reports every malformed field it skipped,
// joined; the remaining fields are still applied.
func (r *Registry) Apply(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Type {
	case EventStopAll:
		for _, g := range r.generators {
			r.setActive(g, false)
		}
		r.log.Info("all generators stopped", "count", len(r.generators))
		return nil
	case EventResumeAll:
		for _, g := range r.generators {
			r.setActive(g, true)
		}
		r.log.Info("all generators resumed", "count", len(r.generators))
		return nil
	case EventModify:
		if ev.Data == nil {
			return fmt.Errorf("modify event without data")
		}
		return r.modify(*ev.Data)
	}
	return fmt.Errorf("unknown event type %q", ev.Type)
}

// modify applies c field by field. Requires r.mu.
func (r *Registry) modify(c plan.GeneratorChange) error {
	if c.ID == "" {
		return fmt.Errorf("generator id is required")
	}
	g, ok := r.generators[c.ID]
	if !ok {
		if c.Kind == nil || *c.Kind == "" {
			return fmt.Errorf("generator %s: %w", c.ID, ErrMissingKind)
		}
		var err error
		g, err = newGenerator(c.ID, *c.Kind, seedOf(c.Seed))
		if err != nil {
			return fmt.Errorf("generator %s: %w", c.ID, err)
		}
		r.generators[c.ID] = g
		r.log.Info("generator created", "generator", g.ID, "kind", g.Kind, "seed", g.Seed)
	}

	var errs []error
	fail := func(field string, err error) {
		errs = append(errs, fmt.Errorf("generator %s: %s: %w", g.ID, field, err))
	}
	restart := false

	if c.Endpoint != nil && *c.Endpoint != g.Endpoint {
		g.Endpoint = *c.Endpoint
		r.dropSink(g)
	}

	switch {
	case c.Frequency != nil:
		if d, err := positiveMillis(*c.Frequency); err != nil {
			fail("frequency", err)
		} else if d != g.Frequency {
			g.Frequency = d
			restart = true
		}
	case c.EventsPerSecond != nil:
		n, err := c.EventsPerSecond.Int64()
		switch {
		case err != nil:
			fail("events_per_second", err)
		case n <= 0 || n > plan.MaxEventsPerSecond:
			fail("events_per_second", fmt.Errorf("%d is out of range", n))
		default:
			if d := time.Duration(1000/n) * time.Millisecond; d != g.Frequency {
				g.Frequency = d
				restart = true
			}
		}
	}

	switch {
	case c.Granularity != nil:
		if d, err := positiveMillis(*c.Granularity); err != nil {
			fail("granularity", err)
		} else {
			g.Granularity = d
		}
	case c.GranularitySeconds != nil:
		n, err := c.GranularitySeconds.Int64()
		switch {
		case err != nil:
			fail("granularity_seconds", err)
		case n <= 0:
			fail("granularity_seconds", fmt.Errorf("%d must be positive", n))
		default:
			g.Granularity = time.Duration(n) * time.Second
		}
	}

	if c.VirtualTime != nil {
		if ms, err := c.VirtualTime.Int64(); err != nil {
			fail("virtual_time", err)
		} else {
			g.Clock = time.UnixMilli(ms).UTC()
		}
	}

	if c.FormatString != nil {
		g.Encoding = EncodingFormat
		g.Template = *c.FormatString
	} else {
		g.Encoding = EncodingJSON
		g.Template = ""
	}

	if c.Protocol != nil {
		if p, err := plan.ParseProtocol(*c.Protocol); err != nil {
			fail("protocol", err)
		} else if p != g.Protocol {
			g.Protocol = p
			r.dropSink(g)
		}
	}

	switch {
	case c.Active != nil && *c.Active != g.Active:
		r.setActive(g, *c.Active)
	case restart:
		r.restart(g)
	}

	if len(errs) > 0 {
		for _, err := range errs {
			r.log.Warn("skipping malformed generator field", "err", err)
		}
		return errors.Join(errs...)
	}
	return nil
}

func (r *Registry) dropSink(g *Generator) {
	if err := g.closeSink(); err != nil {
		r.log.Warn("closing transport failed", "generator", g.ID, "err", err)
	}
}

func positiveMillis(n plan.Number) (time.Duration, error) {
	v, err := n.Int64()
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%d must be positive", v)
	}
	return time.Duration(v) * time.Millisecond, nil
}

// seedOf returns the numeric seed, a hash of a non-numeric one, or
// DefaultSeed when none is given.
func seedOf(n *plan.Number) int64 {
	if n == nil || *n == "" {
		return DefaultSeed
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(*n))
	return int64(h.Sum64())
}
