package server

import (
	"errors"

	"github.com/defistate/tokenswap-go/streams/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of the RPC server.
type Metrics struct {
	calls       *prometheus.CounterVec
	events      *prometheus.CounterVec
	subscribers prometheus.Gauge
	resyncs     prometheus.Counter
}

// NewMetrics creates and registers the server collectors.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tokenswap",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Mutating RPC calls by method and result.",
		}, []string{"method", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tokenswap",
			Subsystem: "rpc",
			Name:      "stream_events_total",
			Help:      "Stream events delivered to subscribers by type.",
		}, []string{"type"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tokenswap",
			Subsystem: "rpc",
			Name:      "stream_subscribers",
			Help:      "Active state stream subscriptions.",
		}),
		resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokenswap",
			Subsystem: "rpc",
			Name:      "stream_resyncs_total",
			Help:      "Times a lagging subscriber was switched to a full state.",
		}),
	}
	registry.MustRegister(m.calls, m.events, m.subscribers, m.resyncs)
	return m
}

// call records the outcome of a mutating call and converts err for the wire.
func (m *Metrics) call(method string, err error) error {
	if err == nil {
		m.calls.WithLabelValues(method, "ok").Inc()
		return nil
	}
	wireErr := jsonrpc.NewError(err)
	var rpcErr *jsonrpc.Error
	if errors.As(wireErr, &rpcErr) {
		m.calls.WithLabelValues(method, rpcErr.Kind).Inc()
	}
	return wireErr
}
