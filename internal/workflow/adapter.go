package workflow

import (
	"strings"

	"github.com/mitodl/nbpublish/internal/kernel"
	"github.com/mitodl/nbpublish/internal/logpanel"
)

// Adapter turns kernel messages into log panel lines. It is invoked once per
// arriving message, on the submission's dispatch path, and must therefore stay
// cheap: classify, derive text, append, return.
type Adapter struct {
	panel *logpanel.Panel
}

// NewAdapter returns an Adapter feeding the given panel.
func NewAdapter(panel *logpanel.Panel) *Adapter {
	return &Adapter{panel: panel}
}

// HandleMessage derives at most one panel line from msg. Stream chunks are
// echoed as-is, errors render as "Name: Value" followed by the traceback
// lines, and execute results contribute their plain-text form when present.
// Anything else produces nothing.
func (a *Adapter) HandleMessage(msg kernel.Message) {
	switch m := msg.(type) {
	case kernel.Stream:
		a.panel.Append(strings.TrimSuffix(m.Text, "\n"))
	case kernel.Error:
		parts := make([]string, 0, len(m.Traceback)+1)
		parts = append(parts, m.Name+": "+m.Value)
		parts = append(parts, m.Traceback...)
		a.panel.Append(strings.Join(parts, "\n"))
	case kernel.ExecuteResult:
		if text, ok := m.Text(); ok {
			a.panel.Append(strings.TrimSuffix(text, "\n"))
		}
	}
}
