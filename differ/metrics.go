package differ

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors of the differ.
type Metrics struct {
	diffDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the differ collectors.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tokenswap",
			Subsystem: "differ",
			Name:      "diff_duration_seconds",
			Help:      "Time taken to diff two consecutive states.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		}, []string{}),
	}
	registry.MustRegister(m.diffDuration)
	return m
}
