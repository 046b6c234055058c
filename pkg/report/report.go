// Package report delivers menu evaluation failures to the people who can
// fix them, without interrupting the render that produced them.
package report

import (
	"log/slog"
	"sync"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/menu"
)

// Log writes each report as a structured warning.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a reporter writing to l, or to the default logger when l is nil.
func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{logger: l}
}

// Report implements menu.Reporter.
func (l *Log) Report(r menu.Report) {
	l.logger.Warn(r.Message(),
		"item", r.ID,
		"title", r.Title,
		"verdict", r.Verdict.String(),
		"kind", logic.KindOf(r.Err).String(),
		"error", r.Err,
	)
}

// Collector keeps reports in memory for display after a render. It is
// safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	reports []menu.Report
}

// Report implements menu.Reporter.
func (c *Collector) Report(r menu.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
}

// Reports returns a copy of the collected reports in arrival order.
func (c *Collector) Reports() []menu.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]menu.Report, len(c.reports))
	copy(out, c.reports)
	return out
}

// Messages returns the human-readable message of every collected report.
func (c *Collector) Messages() []string {
	reports := c.Reports()
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Message())
	}
	return out
}

// Multi fans a report out to several reporters.
type Multi []menu.Reporter

// Report implements menu.Reporter.
func (m Multi) Report(r menu.Report) {
	for _, rep := range m {
		if rep != nil {
			rep.Report(r)
		}
	}
}
