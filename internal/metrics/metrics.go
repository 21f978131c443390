package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the service-level counters and timings.
type Collector struct {
	registry *prometheus.Registry

	DocumentsValidated prometheus.Counter
	DocumentsFailed    prometheus.Counter
	WarningsEmitted    prometheus.Counter
	AnalyzeDuration    prometheus.Histogram
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		DocumentsValidated: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskrule_documents_validated_total",
			Help: "Rule documents that cleared every pipeline stage.",
		}),
		DocumentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskrule_documents_failed_total",
			Help: "Rule documents rejected by any pipeline stage.",
		}),
		WarningsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskrule_warnings_emitted_total",
			Help: "Analysis warnings produced across all runs.",
		}),
		AnalyzeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskrule_analyze_duration_seconds",
			Help:    "Wall time of one full parse-to-report pipeline pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the collector's registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
