package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mockfogload/internal/generator"
	"mockfogload/internal/plan"
)

func fixedSnapshot(states *[]generator.Status) SnapshotFunc {
	return func() []generator.Status { return *states }
}

func TestViewListsGenerators(t *testing.T) {
	states := []generator.Status{
		{ID: "g1", Kind: "Power", Active: true, Frequency: 100, Protocol: plan.ProtocolHTTP, Endpoint: "http://10.0.0.5:9000/", Emitted: 12},
		{ID: "g2", Kind: "HeartRate", Frequency: 250, Protocol: plan.ProtocolUDP},
	}
	m := New("node-a", fixedSnapshot(&states))
	view := m.View()
	for _, want := range []string{"node-a", "g1", "g2", "2 generators, 1 active"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRefreshAndPause(t *testing.T) {
	states := []generator.Status{{ID: "g1", Kind: "Power"}}
	m := New("n", fixedSnapshot(&states))

	states = append(states, generator.Status{ID: "g2", Kind: "Power", Active: true})
	mi, cmd := m.Update(refreshMsg(time.Now()))
	m = mi.(Model)
	if cmd == nil {
		t.Fatal("refresh must schedule the next tick")
	}
	if len(m.rows) != 2 {
		t.Fatalf("rows=%d after refresh", len(m.rows))
	}

	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = mi.(Model)
	if !m.paused || !strings.Contains(m.View(), "[paused]") {
		t.Fatal("pause not toggled")
	}
	states = states[:1]
	mi, _ = m.Update(refreshMsg(time.Now()))
	m = mi.(Model)
	if len(m.rows) != 2 {
		t.Fatal("paused model must not refresh")
	}
}

func TestQuit(t *testing.T) {
	var states []generator.Status
	m := New("n", fixedSnapshot(&states))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected QuitMsg")
	}
}

func TestWindowResizeWrapsFooter(t *testing.T) {
	var states []generator.Status
	m := New("n", fixedSnapshot(&states))
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 30})
	m = mi.(Model)
	if m.width != 20 {
		t.Fatalf("width=%d", m.width)
	}
	if !strings.Contains(m.View(), "q quit") {
		t.Fatal("footer missing")
	}
}
