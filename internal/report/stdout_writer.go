// Writer implementations printing reports to STDOUT
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	hostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// StdoutWriter prints one line per report, styled when color is enabled.
type StdoutWriter struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(color bool) *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, color: color}
}

// Write outputs a single report.
func (w *StdoutWriter) Write(r Report) error {
	data, err := r.JSON()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.color {
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	}
	_, err = fmt.Fprintf(w.out, "%s %s %s %s\n",
		timeStyle.Render("["+r.CollectedAt.Format(time.RFC3339)+"]"),
		stageStyle.Render("stage="+r.Stage),
		hostStyle.Render("host="+r.Host),
		string(data))
	return err
}
