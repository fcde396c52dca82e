package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beaverdocs_builds_total",
		Help: "Site builds by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beaverdocs_build_duration_seconds",
		Help:    "Wall time of a full site build",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	pagesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beaverdocs_pages_rendered_total",
		Help: "Markdown pages rendered to HTML",
	})

	sidebarItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beaverdocs_sidebar_items",
		Help: "Leaf links in the sidebar of the last build",
	})
)

// RecordBuild records one finished build.
func RecordBuild(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	buildsTotal.WithLabelValues(outcome).Inc()
	buildDuration.Observe(d.Seconds())
}

// IncPagesRendered counts one rendered page.
func IncPagesRendered() {
	pagesRendered.Inc()
}

// SetSidebarItems sets the sidebar link count of the last build.
func SetSidebarItems(n int) {
	sidebarItems.Set(float64(n))
}
