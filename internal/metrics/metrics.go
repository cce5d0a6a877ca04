// Package metrics collects Prometheus counters and gauges for the
// simulation's hot paths, following a
// metrics.WebSocketMetrics-style shape (one struct of typed collectors, registered
// once against a Registerer at construction time).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds every collector exposed by the simulation.
type Metrics struct {
	EventsDispatched   prometheus.Counter
	EventsDropped      prometheus.Counter
	QueueDepth         prometheus.Gauge

	StreamMessagesSent    prometheus.Counter
	StreamMessagesDropped prometheus.Counter

	TradesExecuted prometheus.Counter
	TradeVolume    prometheus.Counter

	OrdersSubmitted prometheus.Counter
	OrdersRejected  prometheus.Counter

	ActiveAgents prometheus.Gauge
	BookVersion  prometheus.Gauge

	MatchingLatency prometheus.Histogram
	AgentCycleLatency prometheus.Histogram
}

// New builds and registers the full collector set against registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_events_dispatched_total",
			Help: "Total number of time-engine events dispatched to handlers.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_events_dropped_total",
			Help: "Total number of time-engine events dropped due to queue backpressure.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marksim_event_queue_depth",
			Help: "Current number of events waiting in the time-engine queue.",
		}),
		StreamMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_stream_messages_sent_total",
			Help: "Total number of messages delivered to stream subscribers.",
		}),
		StreamMessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_stream_messages_dropped_total",
			Help: "Total number of messages dropped by a bounded stream or subscriber.",
		}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_trades_executed_total",
			Help: "Total number of trades executed by the matching engine.",
		}),
		TradeVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_trade_volume_total",
			Help: "Cumulative traded size across all executed trades.",
		}),
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_orders_submitted_total",
			Help: "Total number of orders submitted to the matching engine.",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksim_orders_rejected_total",
			Help: "Total number of orders rejected (FOK unfillable, no liquidity, validation).",
		}),
		ActiveAgents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marksim_active_agents",
			Help: "Current number of agents registered with the pool.",
		}),
		BookVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marksim_book_version",
			Help: "Current order book snapshot version.",
		}),
		MatchingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marksim_matching_latency_seconds",
			Help:    "Latency of a single order-submission-to-result matching call.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12),
		}),
		AgentCycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marksim_agent_cycle_latency_seconds",
			Help:    "Latency of one agent pool GenerateOrders dispatch cycle.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	registry.MustRegister(
		m.EventsDispatched,
		m.EventsDropped,
		m.QueueDepth,
		m.StreamMessagesSent,
		m.StreamMessagesDropped,
		m.TradesExecuted,
		m.TradeVolume,
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.ActiveAgents,
		m.BookVersion,
		m.MatchingLatency,
		m.AgentCycleLatency,
	)

	return m
}

// GaugeValue reads back a gauge's current value, primarily for tests.
func GaugeValue(g prometheus.Gauge) float64 {
	ch := make(chan prometheus.Metric, 1)
	g.Collect(ch)
	metric := <-ch

	var out dto.Metric
	_ = metric.Write(&out)
	return out.GetGauge().GetValue()
}

// CounterValue reads back a counter's current value, primarily for tests.
func CounterValue(c prometheus.Counter) float64 {
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	metric := <-ch

	var out dto.Metric
	_ = metric.Write(&out)
	return out.GetCounter().GetValue()
}
