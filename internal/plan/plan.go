// Package plan models a staged test plan: an ordered list of stages, each
// carrying per-node application, interface and generator changes.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mockfogload/internal/nodemap"
)

// TestPlan is the root of a test plan document.
type TestPlan struct {
	Name   string  `yaml:"testName,omitempty" json:"testName,omitempty"`
	Stages []Stage `yaml:"stages" json:"stages"`
}

// Stage is one timed phase. Time is in milliseconds and relative to the end
// of the previous stage.
type Stage struct {
	ID    string            `yaml:"id" json:"id"`
	Time  int64             `yaml:"time" json:"time"`
	Nodes []NodeInstruction `yaml:"node,omitempty" json:"node,omitempty"`
}

// NodeInstruction groups the changes for one node, or for every node when ID
// is the wildcard "all".
type NodeInstruction struct {
	ID           string            `yaml:"id" json:"id"`
	Applications []AppChange       `yaml:"applications,omitempty" json:"applications,omitempty"`
	Interfaces   []IfaceChange     `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Generators   []GeneratorChange `yaml:"generators,omitempty" json:"generators,omitempty"`
}

// Broadcast reports whether the instruction targets every node.
func (n NodeInstruction) Broadcast() bool { return n.ID == nodemap.Wildcard }

// HasAgentChanges reports whether the instruction carries application or
// interface changes, which are the ones that produce stage reports.
func (n NodeInstruction) HasAgentChanges() bool {
	return len(n.Applications) > 0 || len(n.Interfaces) > 0
}

// AppChange is a partial update of an application's resource limits. It is
// passed through to the node agent untouched.
type AppChange struct {
	Name   string   `yaml:"name" json:"name"`
	CPU    *float64 `yaml:"cpu,omitempty" json:"cpu,omitempty"`
	Memory *string  `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// IfaceChange is a partial update of a network interface. It is passed
// through to the node agent untouched.
type IfaceChange struct {
	ID        string  `yaml:"id" json:"id"`
	Active    *bool   `yaml:"active,omitempty" json:"active,omitempty"`
	Bandwidth *string `yaml:"bandwidth,omitempty" json:"bandwidth,omitempty"`
	Delay     *string `yaml:"delay,omitempty" json:"delay,omitempty"`
	Loss      *string `yaml:"loss,omitempty" json:"loss,omitempty"`
}

// Load reads a YAML (or JSON) test plan from disk.
func Load(path string) (*TestPlan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test plan: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML (or JSON) test plan.
func Parse(b []byte) (*TestPlan, error) {
	var p TestPlan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse test plan: %w", err)
	}
	return &p, nil
}

// Validate checks the plan for errors that would otherwise surface on a
// remote node mid-run. isKind reports whether a generator kind is known.
func (p *TestPlan) Validate(isKind func(string) bool) error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("test plan has no stages")
	}
	seen := make(map[string]bool, len(p.Stages))
	for i, s := range p.Stages {
		if s.ID == "" {
			return fmt.Errorf("stage %d: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("stage %s: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if s.Time < 0 {
			return fmt.Errorf("stage %s: negative time %d", s.ID, s.Time)
		}
		for j, n := range s.Nodes {
			if n.ID == "" {
				return fmt.Errorf("stage %s node %d: id is required", s.ID, j)
			}
			for _, a := range n.Applications {
				if a.Name == "" {
					return fmt.Errorf("stage %s node %s: application name is required", s.ID, n.ID)
				}
			}
			for _, g := range n.Generators {
				if err := g.Validate(isKind); err != nil {
					return fmt.Errorf("stage %s node %s: %w", s.ID, n.ID, err)
				}
			}
		}
	}
	return nil
}

// NodeIDs returns every non-wildcard node id referenced by the plan, either as
// a target or as a generator endpoint.
func (p *TestPlan) NodeIDs() []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id == "" || id == nodemap.Wildcard || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, s := range p.Stages {
		for _, n := range s.Nodes {
			add(n.ID)
			for _, g := range n.Generators {
				if g.Endpoint != nil {
					add(*g.Endpoint)
				}
			}
		}
	}
	return ids
}
