package menu

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/metric"
)

// Menu represents a named navigation menu.
type Menu struct {
	// Title is the menu title.
	Title string `json:"title" yaml:"title"`

	// Description of the menu.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version of the menu definition.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Items is the flat, parent-linked list of menu items.
	Items []Item `json:"items,omitempty" yaml:"items"`
}

// Evaluator decides the verdict of a condition. *logic.Evaluator implements it.
type Evaluator interface {
	Evaluate(condition string, ctx logic.Context) (logic.Verdict, error)
}

// Reporter receives reports of items that failed to evaluate.
type Reporter interface {
	Report(Report)
}

// ConditionSource supplies stored conditions keyed by item ID.
type ConditionSource interface {
	All(ctx context.Context) (map[string]string, error)
}

// ContextFunc builds the evaluation context for a request and reports
// whether the viewer may see evaluation errors.
type ContextFunc func(r *http.Request) (ctx logic.Context, privileged bool)

// Visible filters the menu items for one render. Errored items are sent to
// reporter, which may be nil.
func (m *Menu) Visible(ctx logic.Context, ev Evaluator, reporter Reporter) Result {
	return visible(m.Items, ctx, ev, reporter, nil, nil)
}

func visible(items []Item, ctx logic.Context, ev Evaluator, reporter Reporter, verdicts, failures metric.IncrementalCounter) Result {
	res := Filter(items, func(item Item) (logic.Verdict, error) {
		v, err := ev.Evaluate(item.Logic, ctx)
		if verdicts != nil {
			verdicts.Increment(v.String())
		}
		if err != nil && failures != nil {
			failures.Increment(logic.KindOf(err).String())
		}
		return v, err
	})

	for _, r := range res.Reports {
		switch {
		case r.Verdict == logic.Errored:
			if reporter != nil {
				reporter.Report(r)
			}
		default:
			slog.Debug("menu item hidden",
				"item", r.ID,
				"verdict", r.Verdict.String(),
				"by_ancestor", r.ByAncestor,
			)
		}
	}
	return res
}

// HandlerOption configures the menu HTTP handler.
type HandlerOption func(*handler)

// WithContext sets how the evaluation context is built from a request.
// Without it every request is evaluated against an empty, unprivileged
// context.
func WithContext(fn ContextFunc) HandlerOption {
	return func(h *handler) { h.contextFor = fn }
}

// WithConditionSource overlays conditions from src on every request.
func WithConditionSource(src ConditionSource) HandlerOption {
	return func(h *handler) { h.conditions = src }
}

// WithReporter sets the collaborator that observes evaluation errors.
func WithReporter(r Reporter) HandlerOption {
	return func(h *handler) { h.reporter = r }
}

// WithMetrics counts verdicts by name and evaluation errors by kind.
func WithMetrics(verdicts, failures metric.IncrementalCounter) HandlerOption {
	return func(h *handler) {
		h.verdicts = verdicts
		h.failures = failures
	}
}

type handler struct {
	menu       *Menu
	evaluator  Evaluator
	contextFor ContextFunc
	conditions ConditionSource
	reporter   Reporter
	verdicts   metric.IncrementalCounter
	failures   metric.IncrementalCounter
}

// errorView is what privileged viewers see for each errored item.
type errorView struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type response struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Version     string      `json:"version,omitempty"`
	Items       []Node      `json:"items"`
	Errors      []errorView `json:"errors,omitempty"`
}

// Handler returns an HTTP handler that responds with the menu, filtered
// for the requesting viewer, as a JSON tree.
func (m *Menu) Handler(ev Evaluator, opts ...HandlerOption) http.Handler {
	h := &handler{menu: m, evaluator: ev}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("handling menu request",
		"method", r.Method,
		"url", r.URL.Path,
	)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		ctx        logic.Context
		privileged bool
	)
	if h.contextFor != nil {
		ctx, privileged = h.contextFor(r)
	}

	items := h.menu.Items
	if h.conditions != nil {
		stored, err := h.conditions.All(r.Context())
		if err != nil {
			slog.Error("failed to load menu conditions", "error", err)
			writeError(w, http.StatusServiceUnavailable, "menu conditions unavailable")
			return
		}
		items = WithConditions(items, stored)
	}

	res := visible(items, ctx, h.evaluator, h.reporter, h.verdicts, h.failures)

	out := response{
		Title:       h.menu.Title,
		Description: h.menu.Description,
		Version:     h.menu.Version,
		Items:       Tree(res.Items),
	}
	if privileged {
		for _, rep := range res.Errors() {
			out.Errors = append(out.Errors, errorView{
				ID:      rep.ID,
				Title:   rep.Title,
				Kind:    errorKind(rep.Err),
				Message: rep.Message(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Error("failed to encode menu", "error", err)
		return
	}

	slog.Info("menu response sent",
		"method", r.Method,
		"url", r.URL.Path,
		"status", http.StatusOK,
		"visible", len(res.Items),
		"removed", len(res.Reports),
	)
}

func errorKind(err error) string {
	if k := logic.KindOf(err); k != logic.KindNone {
		return k.String()
	}
	return "structure"
}

func writeError(w http.ResponseWriter, status int, message string) {
	slog.Error("handling error response",
		"status", status,
		"message", message,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
