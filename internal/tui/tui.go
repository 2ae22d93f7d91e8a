// Package tui renders a live table of the local generators.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"mockfogload/internal/generator"
)

const refreshInterval = 500 * time.Millisecond

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// SnapshotFunc returns the current generator states.
type SnapshotFunc func() []generator.Status

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run shows the status table until the user quits or ctx is done.
func Run(ctx context.Context, title string, snapshot SnapshotFunc) error {
	p := tea.NewProgram(New(title, snapshot), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && (ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled)) {
		return nil
	}
	return err
}

type refreshMsg time.Time

// Model is the bubbletea model of the status view.
type Model struct {
	title    string
	snapshot SnapshotFunc
	table    table.Model
	rows     []generator.Status
	width    int
	paused   bool
	updated  time.Time
}

var columns = []table.Column{
	{Title: "ID", Width: 12},
	{Title: "Kind", Width: 12},
	{Title: "State", Width: 8},
	{Title: "Freq ms", Width: 8},
	{Title: "Proto", Width: 6},
	{Title: "Endpoint", Width: 28},
	{Title: "Virtual time", Width: 19},
	{Title: "Sent", Width: 8},
	{Title: "Failed", Width: 7},
}

// New creates the model.
func New(title string, snapshot SnapshotFunc) Model {
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(10))
	m := Model{title: title, snapshot: snapshot, table: t}
	m.refresh(time.Now())
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width)
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	case refreshMsg:
		if !m.paused {
			m.refresh(time.Time(msg))
		}
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
			return m, nil
		case "r":
			m.refresh(time.Now())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) refresh(now time.Time) {
	m.rows = m.snapshot()
	rows := make([]table.Row, 0, len(m.rows))
	for _, s := range m.rows {
		state := inactiveStyle.Render("idle")
		if s.Active {
			state = activeStyle.Render("active")
		}
		rows = append(rows, table.Row{
			s.ID,
			s.Kind,
			state,
			strconv.FormatInt(s.Frequency, 10),
			string(s.Protocol),
			s.Endpoint,
			s.VirtualTime.Format(time.DateTime),
			strconv.FormatUint(s.Emitted, 10),
			strconv.FormatUint(s.Failed, 10),
		})
	}
	m.table.SetRows(rows)
	m.updated = now
}

func (m Model) View() string {
	active := 0
	for _, s := range m.rows {
		if s.Active {
			active++
		}
	}
	header := titleStyle.Render(m.title) + fmt.Sprintf("  %d generators, %d active, updated %s",
		len(m.rows), active, m.updated.Format(time.TimeOnly))
	if m.paused {
		header += " " + pausedStyle.Render("[paused]")
	}
	footer := "q quit  p pause refresh  r refresh now  arrows scroll"
	if m.width > 0 {
		footer = wordwrap.String(footer, m.width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.table.View(), "", footerStyle.Render(footer))
}
