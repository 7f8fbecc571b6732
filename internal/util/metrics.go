package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted successfully",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of order submissions rejected",
	}, []string{"reason"})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions applied",
	}, []string{"to_status"})

	TransitionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_status_transitions_rejected_total",
		Help: "Total number of illegal status transitions rejected",
	})

	SyncPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pushes_total",
		Help: "Total number of live snapshots applied, per collection",
	}, []string{"collection"})

	ToastsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toasts_emitted_total",
		Help: "Total number of toasts emitted, per severity",
	}, []string{"severity"})

	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of lines added to the cart",
	})

	CartAddsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_adds_rejected_total",
		Help: "Total number of cart adds rejected",
	}, []string{"reason"})

	AnalyticsRecomputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_recompute_latency_seconds",
		Help:    "Latency of analytics snapshot recomputation",
		Buckets: prometheus.DefBuckets,
	})

	StoreWriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_write_latency_seconds",
		Help:    "Latency of persistence writes, per collection",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
