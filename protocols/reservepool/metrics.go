package reservepool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of a pool.
type Metrics struct {
	operations  *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	reserves    *prometheus.GaugeVec
	totalShares prometheus.Gauge
	sequence    prometheus.Gauge
}

// NewMetrics creates the pool collectors and registers them with registry.
// Collectors are labelled with the pool address so several pools can share a registry.
func NewMetrics(registry prometheus.Registerer, pool string) *Metrics {
	constLabels := prometheus.Labels{"pool": pool}
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "tokenswap",
			Subsystem:   "pool",
			Name:        "operations_total",
			Help:        "Pool operations by kind and result (ok or error kind).",
			ConstLabels: constLabels,
		}, []string{"op", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "tokenswap",
			Subsystem:   "pool",
			Name:        "operation_duration_seconds",
			Help:        "Time spent inside a pool operation, lock wait included.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "tokenswap",
			Subsystem:   "pool",
			Name:        "reserve",
			Help:        "Committed reserve per side, in the token's smallest unit (lossy float).",
			ConstLabels: constLabels,
		}, []string{"side"}),
		totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tokenswap",
			Subsystem:   "pool",
			Name:        "total_shares",
			Help:        "Outstanding liquidity shares (lossy float).",
			ConstLabels: constLabels,
		}),
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tokenswap",
			Subsystem:   "pool",
			Name:        "sequence",
			Help:        "Sequence number of the last committed mutation.",
			ConstLabels: constLabels,
		}),
	}
	registry.MustRegister(m.operations, m.opDuration, m.reserves, m.totalShares, m.sequence)
	return m
}

func (m *Metrics) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = ErrorKind(err)
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setState(s *State) {
	m.reserves.WithLabelValues("a").Set(s.ReserveA.Float64())
	m.reserves.WithLabelValues("b").Set(s.ReserveB.Float64())
	m.totalShares.Set(s.TotalShares.Float64())
	m.sequence.Set(float64(s.Sequence))
}
