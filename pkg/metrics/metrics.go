// Package metrics owns the Prometheus registry for the service. A private
// registry keeps tests free of global registration conflicts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every collector the service exports
type Registry struct {
	reg *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	OrdersPlaced         *prometheus.CounterVec
	OrdersRejected       *prometheus.CounterVec
	OrderRevenue         *prometheus.CounterVec
	StockReservations    *prometheus.CounterVec
	ReceiptsGenerated    *prometheus.CounterVec
	OrderStatusChanges   *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	StockReleaseFailures *prometheus.CounterVec
	PlacementLatency     prometheus.Histogram
}

// NewRegistry creates and registers all collectors
func NewRegistry(serviceName string) *Registry {
	r := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": serviceName}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: constLabels,
	}, []string{"method", "path", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Help:        "Duration of HTTP requests in seconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "path", "status"})

	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_orders_placed_total",
		Help:        "Orders persisted, by source channel",
		ConstLabels: constLabels,
	}, []string{"source"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_orders_rejected_total",
		Help:        "Order placements refused, by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_order_revenue_minor_total",
		Help:        "Order totals in minor currency units, by source channel",
		ConstLabels: constLabels,
	}, []string{"source"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_stock_reservations_total",
		Help:        "Atomic stock reservations, by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	receipts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_receipts_generated_total",
		Help:        "Receipts issued, by receipt type",
		ConstLabels: constLabels,
	}, []string{"type"})
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_order_status_changes_total",
		Help:        "Order status transitions, by target status",
		ConstLabels: constLabels,
	}, []string{"status"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_events_published_total",
		Help:        "Domain events handed to the broker, by type and outcome",
		ConstLabels: constLabels,
	}, []string{"type", "outcome"})
	releaseFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storefront_stock_release_failures_total",
		Help:        "Stock returns that failed after a cancel or delete, by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "storefront_order_placement_seconds",
		Help:        "Latency of successful order placements",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	})

	r.MustRegister(requests, duration, placed, rejected, revenue, reservations, receipts, statusChanges, events, releaseFailures, latency)
	return &Registry{
		reg:                  r,
		RequestCounter:       requests,
		RequestDuration:      duration,
		OrdersPlaced:         placed,
		OrdersRejected:       rejected,
		OrderRevenue:         revenue,
		StockReservations:    reservations,
		ReceiptsGenerated:    receipts,
		OrderStatusChanges:   statusChanges,
		EventsPublished:      events,
		StockReleaseFailures: releaseFailures,
		PlacementLatency:     latency,
	}
}

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
