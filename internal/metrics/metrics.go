// Package metrics exposes Prometheus instruments for sync runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluspress_items_processed_total",
		Help: "Feed items processed, by outcome",
	}, []string{"action"})

	ItemErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluspress_item_errors_total",
		Help: "Feed items that failed to render or publish",
	})

	LedgerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluspress_ledger_errors_total",
		Help: "Item outcomes that could not be written to the run ledger",
	})

	CommentsMirrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluspress_comments_mirrored_total",
		Help: "Comments copied onto blog posts",
	})

	EmbedFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluspress_embed_lookup_failures_total",
		Help: "oEmbed lookups that fell back to feed data",
	})

	RenderedKinds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluspress_rendered_kinds_total",
		Help: "Rendered feed items, by post kind",
	}, []string{"kind"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pluspress_sync_duration_seconds",
		Help:    "Duration of complete sync runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
