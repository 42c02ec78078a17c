// Package metrics registers the Prometheus metrics surface described in
// SPEC_FULL.md's DOMAIN STACK section.
//
// Grounded on dantte-lp-gobfd's internal/metrics collector: a struct of
// prometheus.*Vec fields built once and registered against a caller-
// supplied prometheus.Registerer, with small Inc/Set helper methods per
// metric rather than exposing the raw vectors to callers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "nbfm"

// Label names used across this package's metrics.
const (
	labelChannel    = "channel"
	labelPool       = "pool"
	labelTransition = "transition"
	labelCallKind   = "call_kind"
)

// Collector holds every metric this module exports.
type Collector struct {
	SquelchState            *prometheus.GaugeVec
	SquelchTransitionsTotal *prometheus.CounterVec
	BufferPoolOutstanding   *prometheus.GaugeVec
	CallEventsTotal         *prometheus.CounterVec
	TrafficAllocationsTotal prometheus.Counter
}

// NewCollector creates a Collector with every metric registered against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()
	reg.MustRegister(
		c.SquelchState,
		c.SquelchTransitionsTotal,
		c.BufferPoolOutstanding,
		c.CallEventsTotal,
		c.TrafficAllocationsTotal,
	)
	return c
}

func newMetrics() *Collector {
	return &Collector{
		SquelchState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "squelch_state",
			Help:      "Current squelch state per channel (0=MUTE, 1=ATTACK, 2=UNMUTE, 3=DECAY).",
		}, []string{labelChannel}),

		SquelchTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "squelch_transitions_total",
			Help:      "Total squelch state transitions per channel, labeled by destination state.",
		}, []string{labelChannel, labelTransition}),

		BufferPoolOutstanding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_pool_outstanding",
			Help:      "Number of ReusableBuffers currently checked out of a pool.",
		}, []string{labelPool}),

		CallEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mpt1327",
			Name:      "call_events_total",
			Help:      "Total CallEvents emitted, labeled by CallEvent kind.",
		}, []string{labelCallKind}),

		TrafficAllocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mpt1327",
			Name:      "traffic_allocations_total",
			Help:      "Total TrafficChannelAllocationEvents emitted.",
		}),
	}
}

// SetSquelchState records the current squelch state for a channel.
func (c *Collector) SetSquelchState(channel string, state int) {
	c.SquelchState.WithLabelValues(channel).Set(float64(state))
}

// IncSquelchTransition increments the transition counter for a channel's
// destination state.
func (c *Collector) IncSquelchTransition(channel, toState string) {
	c.SquelchTransitionsTotal.WithLabelValues(channel, toState).Inc()
}

// SetBufferPoolOutstanding records a pool's current outstanding-buffer
// count.
func (c *Collector) SetBufferPoolOutstanding(pool string, outstanding int) {
	c.BufferPoolOutstanding.WithLabelValues(pool).Set(float64(outstanding))
}

// IncCallEvent increments the call-events counter for the given CallEvent
// kind.
func (c *Collector) IncCallEvent(kind string) {
	c.CallEventsTotal.WithLabelValues(kind).Inc()
}

// IncTrafficAllocation increments the traffic-channel-allocation counter.
func (c *Collector) IncTrafficAllocation() {
	c.TrafficAllocationsTotal.Inc()
}
