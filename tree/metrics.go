package tree

import "github.com/prometheus/client_golang/prometheus"

// metrics are the tree's ambient observability surface: op counters
// and a flush-latency histogram, wired to an optional
// prometheus.Registerer the same way dd0wney-graphdb's server package
// treats its metrics collaborator as nil-safe and optional.
type metrics struct {
	puts          prometheus.Counter
	fetches       prometheus.Counter
	flushes       prometheus.Counter
	merges        prometheus.Counter
	flushDuration prometheus.Histogram
	segmentCount  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, treeID string) *metrics {
	labels := prometheus.Labels{"tree_id": treeID}

	m := &metrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lsmtkv_puts_total",
			Help:        "Number of Put calls.",
			ConstLabels: labels,
		}),
		fetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lsmtkv_fetches_total",
			Help:        "Number of Fetch calls.",
			ConstLabels: labels,
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lsmtkv_flushes_total",
			Help:        "Number of completed flushes.",
			ConstLabels: labels,
		}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lsmtkv_merges_total",
			Help:        "Number of completed merges.",
			ConstLabels: labels,
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "lsmtkv_flush_duration_seconds",
			Help:        "Flush wall-clock duration.",
			ConstLabels: labels,
		}),
		segmentCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "lsmtkv_segments",
			Help:        "Current number of on-disk segments.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.puts, m.fetches, m.flushes, m.merges, m.flushDuration, m.segmentCount)
	}

	return m
}
