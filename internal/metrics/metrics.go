// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery sources.
const (
	SourceSweep = "sweep"
	SourceAdmin = "admin"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_created_total",
		Help:      "Orders placed.",
	})
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_cancelled_total",
		Help:      "Orders cancelled by their owner or an admin.",
	})
	OrdersDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_delivered_total",
		Help:      "Orders moved to DELIVERED, by source.",
	}, []string{"source"})
	OTPIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "otp_issued_total",
		Help:      "Verification codes issued, by purpose.",
	}, []string{"purpose"})
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "otp_verifications_total",
		Help:      "Verification attempts, by result.",
	}, []string{"result"})
)
