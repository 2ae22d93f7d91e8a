// Package nodemap resolves logical node ids to network addresses.
package nodemap

import (
	"errors"
	"fmt"
)

// Wildcard selects every node in the map.
const Wildcard = "all"

// ErrUnknownNode is returned when a node id is not present in the map.
var ErrUnknownNode = errors.New("node does not exist in map")

// Entry is one logical node and its address.
type Entry struct {
	ID      string `yaml:"id" json:"id"`
	Address string `yaml:"ip" json:"ip"`
}

// Document is the on-disk node map layout.
type Document struct {
	Nodes []Entry `yaml:"nodes" json:"nodes"`
}

// Map is an immutable id -> address table that keeps document order.
type Map struct {
	entries []Entry
	byID    map[string]int
}

// New builds a Map, rejecting empty and duplicate ids.
func New(entries []Entry) (*Map, error) {
	m := &Map{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("node %d: id is required", i)
		}
		if e.ID == Wildcard {
			return nil, fmt.Errorf("node %d: id %q is reserved", i, Wildcard)
		}
		if e.Address == "" {
			return nil, fmt.Errorf("node %s: ip is required", e.ID)
		}
		if _, dup := m.byID[e.ID]; dup {
			return nil, fmt.Errorf("node %s: duplicate id", e.ID)
		}
		m.byID[e.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// Resolve returns the entry for id.
func (m *Map) Resolve(id string) (Entry, error) {
	i, ok := m.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return m.entries[i], nil
}

// Select resolves a node selector: the wildcard yields every entry, anything
// else must name a known node.
func (m *Map) Select(selector string) ([]Entry, error) {
	if selector == Wildcard {
		return m.All(), nil
	}
	e, err := m.Resolve(selector)
	if err != nil {
		return nil, err
	}
	return []Entry{e}, nil
}

// All returns a copy of the entries in document order.
func (m *Map) All() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len reports the number of nodes.
func (m *Map) Len() int { return len(m.entries) }
