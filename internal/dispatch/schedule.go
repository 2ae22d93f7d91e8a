// Package dispatch turns a test plan into timed, host-resolved requests and
// sends them.
package dispatch

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"time"

	"mockfogload/internal/nodemap"
	"mockfogload/internal/plan"
)

// ActionKind tells the dispatcher what to do when an action fires.
type ActionKind int

const (
	// ActionStage only logs the start of a stage.
	ActionStage ActionKind = iota
	// ActionSend POSTs Body to URL.
	ActionSend
	// ActionReport pulls the stage report from Host.
	ActionReport
)

func (k ActionKind) String() string {
	switch k {
	case ActionStage:
		return "stage"
	case ActionSend:
		return "send"
	case ActionReport:
		return "report"
	}
	return "unknown"
}

// Action is one timed step of a run.
type Action struct {
	Kind  ActionKind
	At    time.Time
	Stage string
	Host  nodemap.Entry
	URL   string
	Body  []byte
}

// Schedule is the full, time-ordered plan of a run.
type Schedule struct {
	Start   time.Time
	Actions []Action
}

// Count returns the number of actions of kind k.
func (s *Schedule) Count(k ActionKind) int {
	n := 0
	for _, a := range s.Actions {
		if a.Kind == k {
			n++
		}
	}
	return n
}

// End is the fire time of the last action.
func (s *Schedule) End() time.Time {
	if len(s.Actions) == 0 {
		return s.Start
	}
	return s.Actions[len(s.Actions)-1].At
}

// Options are the fixed ports and the report grace period.
type Options struct {
	AgentPort     int
	GeneratorPort int
	ReportGrace   time.Duration
}

// Build computes every action of a run starting at start. It does no I/O. An
// instruction or endpoint naming a node missing from nodes is an error.
func Build(p *plan.TestPlan, nodes *nodemap.Map, opts Options, start time.Time) (*Schedule, error) {
	s := &Schedule{Start: start}
	var cumulative time.Duration
	for _, stage := range p.Stages {
		cumulative += time.Duration(stage.Time) * time.Millisecond
		fire := start.Add(cumulative)
		ts := Timestamp(fire)
		s.Actions = append(s.Actions, Action{Kind: ActionStage, At: fire, Stage: stage.ID})

		reported := map[string]bool{}
		for _, inst := range stage.Nodes {
			hosts, err := nodes.Select(inst.ID)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", stage.ID, err)
			}
			for _, host := range hosts {
				for _, app := range inst.Applications {
					a, err := send(stage.ID, fire, host, agentURL(host, opts.AgentPort, "application"),
						Envelope{ID: stage.ID, Timestamp: ts, Data: app})
					if err != nil {
						return nil, err
					}
					s.Actions = append(s.Actions, a)
				}
				for _, iface := range inst.Interfaces {
					a, err := send(stage.ID, fire, host, agentURL(host, opts.AgentPort, "interface"),
						Envelope{ID: stage.ID, Timestamp: ts, Data: iface})
					if err != nil {
						return nil, err
					}
					s.Actions = append(s.Actions, a)
				}
				for _, g := range inst.Generators {
					resolved, err := ResolveEndpoint(g, nodes)
					if err != nil {
						return nil, fmt.Errorf("stage %s generator %s: %w", stage.ID, g.ID, err)
					}
					a, err := send(stage.ID, fire, host, agentURL(host, opts.GeneratorPort, "config"),
						Envelope{Type: TypeModify, Timestamp: ts, Data: resolved})
					if err != nil {
						return nil, err
					}
					s.Actions = append(s.Actions, a)
				}
				if inst.HasAgentChanges() && !reported[host.ID] {
					reported[host.ID] = true
					s.Actions = append(s.Actions, Action{
						Kind:  ActionReport,
						At:    fire.Add(opts.ReportGrace),
						Stage: stage.ID,
						Host:  host,
						URL:   agentURL(host, opts.AgentPort, "reports/"+url.PathEscape(stage.ID)),
					})
				}
			}
		}
	}
	sort.SliceStable(s.Actions, func(i, j int) bool { return s.Actions[i].At.Before(s.Actions[j].At) })
	return s, nil
}

func send(stage string, at time.Time, host nodemap.Entry, target string, env Envelope) (Action, error) {
	body, err := env.Encode()
	if err != nil {
		return Action{}, fmt.Errorf("stage %s: encode envelope: %w", stage, err)
	}
	return Action{Kind: ActionSend, At: at, Stage: stage, Host: host, URL: target, Body: body}, nil
}

func agentURL(host nodemap.Entry, port int, path string) string {
	return "http://" + net.JoinHostPort(host.Address, strconv.Itoa(port)) + "/" + path
}

// ResolveEndpoint rewrites a generator's logical endpoint node into an
// address: http://addr:port/ for HTTP (or no protocol), addr:port otherwise.
// The port is consumed. A change without endpoint is returned as is.
func ResolveEndpoint(g plan.GeneratorChange, nodes *nodemap.Map) (plan.GeneratorChange, error) {
	if g.Endpoint == nil {
		return g, nil
	}
	e, err := nodes.Resolve(*g.Endpoint)
	if err != nil {
		return g, err
	}
	port := ""
	if g.EndpointPort != nil {
		port = *g.EndpointPort
	}
	addr := net.JoinHostPort(e.Address, port)
	if g.IsHTTP() {
		addr = "http://" + addr + "/"
	}
	g.Endpoint = &addr
	g.EndpointPort = nil
	return g, nil
}
