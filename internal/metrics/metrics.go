// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nestmaid_resolve_seconds",
		Help:    "Time spent on one resolution pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"origin"})

	ResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nestmaid_resolve_total",
		Help: "Resolution passes by outcome. Failed passes are labelled with the error kind.",
	}, []string{"outcome"})

	NestingWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nestmaid_nesting_warnings_total",
		Help: "Total number of deep-nesting warnings emitted.",
	})

	DocumentsIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestmaid_documents_indexed",
		Help: "Number of documents in the index after the last sync.",
	})

	WatcherEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nestmaid_watcher_events_total",
		Help: "Index changes applied by the vault watcher.",
	}, []string{"kind"})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nestmaid_sse_clients",
		Help: "Currently connected event-stream clients.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
