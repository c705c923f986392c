package logpanel

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const panelTitle = "Log Panel"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1)
	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Panel is the operator-facing, append-only log surface. It starts detached;
// Attach binds it to a writer and renders the panel header. Append calls made
// before Attach never fail or write anywhere visible — they only leave a local
// diagnostic.
type Panel struct {
	mu       sync.Mutex
	w        io.Writer
	log      *slog.Logger
	attached bool
}

// New returns a detached Panel. log may be nil.
func New(log *slog.Logger) *Panel {
	return &Panel{log: log}
}

// Attach binds the panel to w and renders its header. Attaching twice is a
// no-op.
func (p *Panel) Attach(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		return
	}
	p.w = w
	p.attached = true
	fmt.Fprintln(w, titleStyle.Render(panelTitle))
	fmt.Fprintln(w, ruleStyle.Render(strings.Repeat("─", 40)))
}

// Append writes one line of status text plus a trailing newline. Called
// before Attach, it records a diagnostic and drops the line.
func (p *Panel) Append(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		if p.log != nil {
			p.log.Debug("log panel not attached, dropping line", "line", line)
		}
		return
	}
	fmt.Fprintln(p.w, line)
}

// Attached reports whether the panel has been bound to a writer.
func (p *Panel) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attached
}
