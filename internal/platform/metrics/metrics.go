// Package metrics holds the in-process counters the HTTP /metrics
// collaborator would expose (out of scope per spec.md §1/§6); the core
// still maintains them so that collaborator has something to read.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var Registry = prometheus.NewRegistry()

var (
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Outbox rows successfully published to the broker, by event type.",
	}, []string{"event_type"})

	EventsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_failed_total",
		Help: "Outbox publish attempts that failed, by event type.",
	}, []string{"event_type"})

	EventsMovedToDLQTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_moved_to_dlq_total",
		Help: "Outbox rows routed to the dead-letter exchange by the publisher; messages the consumer pipeline dead-letters are not counted.",
	}, []string{"event_type"})

	OrdersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created via the create-order use case.",
	})

	OrdersProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_processed_total",
		Help: "order.processed events applied by the apply-processed use case.",
	})
)

func init() {
	Registry.MustRegister(
		EventsPublishedTotal,
		EventsFailedTotal,
		EventsMovedToDLQTotal,
		OrdersCreatedTotal,
		OrdersProcessedTotal,
	)
}
