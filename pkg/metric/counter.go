package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// VerdictsName counts evaluated menu item conditions by verdict.
	VerdictsName = "menulogic_verdicts_total"

	// FailuresName counts errored menu item conditions by error kind.
	FailuresName = "menulogic_evaluation_errors_total"
)

type IncrementalCounter interface {
	Increment(val ...string)
}

type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

func NewCounterWithRegistry(reg prometheus.Registerer, name, help string, labels ...string) IncrementalCounter {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)

	reg.MustRegister(counter)

	return &Counter{
		Name: name,
		Help: help,
		vec:  counter,
	}
}

// NewVisibilityCounters registers the verdict and evaluation error counters
// the menu handler reports to.
func NewVisibilityCounters(reg prometheus.Registerer) (verdicts, failures IncrementalCounter) {
	verdicts = NewCounterWithRegistry(reg, VerdictsName,
		"Number of menu item conditions evaluated, by verdict.", "verdict")
	failures = NewCounterWithRegistry(reg, FailuresName,
		"Number of menu item conditions that failed to evaluate, by kind.", "kind")
	return verdicts, failures
}

// GetHandlerForRegistry returns an HTTP handler for serving Prometheus metrics from a custom registry.
func GetHandlerForRegistry(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
