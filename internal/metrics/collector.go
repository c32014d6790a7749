package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes call-engine counters. All methods are nil-safe so the
// engine can run without an observability surface.
type Collector struct {
	callsInitiated    prometheus.Counter
	callsConnected    prometheus.Counter
	callsEnded        prometheus.Counter
	callsFailed       prometheus.Counter
	activeCalls       prometheus.Gauge
	readinessAttempts prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		callsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhire_calls_initiated_total",
			Help: "Total number of outgoing calls initiated",
		}),
		callsConnected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhire_calls_connected_total",
			Help: "Total number of calls that reached the active state",
		}),
		callsEnded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhire_calls_ended_total",
			Help: "Total number of calls torn down",
		}),
		callsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhire_calls_failed_total",
			Help: "Total number of calls that failed to connect",
		}),
		activeCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nearhire_calls_active",
			Help: "Number of currently active calls",
		}),
		readinessAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhire_readiness_probe_attempts_total",
			Help: "Total number of readiness probe attempts",
		}),
	}
}

func (c *Collector) CallInitiated() {
	if c == nil {
		return
	}
	c.callsInitiated.Inc()
}

func (c *Collector) CallConnected() {
	if c == nil {
		return
	}
	c.callsConnected.Inc()
	c.activeCalls.Inc()
}

func (c *Collector) CallEnded() {
	if c == nil {
		return
	}
	c.callsEnded.Inc()
	c.activeCalls.Dec()
}

func (c *Collector) CallFailed() {
	if c == nil {
		return
	}
	c.callsFailed.Inc()
}

func (c *Collector) ReadinessAttempt(attempt int) {
	if c == nil {
		return
	}
	c.readinessAttempts.Inc()
}
