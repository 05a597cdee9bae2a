// Package metrics exposes Prometheus collectors for the invoice and payment flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "invoicer"

// PaymentsInitiated counts checkouts accepted by the gateway.
var PaymentsInitiated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "payments",
	Name:      "initiated_total",
	Help:      "Total push payments accepted by the gateway.",
})

// PaymentsCompleted counts checkouts reaching a terminal status.
var PaymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "payments",
	Name:      "completed_total",
	Help:      "Total checkouts reaching a terminal status.",
}, []string{"status"})

// PaymentPolls counts gateway status checks.
var PaymentPolls = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "payments",
	Name:      "polls_total",
	Help:      "Total gateway status checks.",
})

// CreditsGranted counts credits added by confirmed payments.
var CreditsGranted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "credits",
	Name:      "granted_total",
	Help:      "Total credits granted by confirmed payments.",
})

// CreditMovements counts per-invoice charges and refunds.
var CreditMovements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "credits",
	Name:      "movements_total",
	Help:      "Credits charged for invoices and refunded after OCR failures.",
}, []string{"reason"})

// InvoicesProcessed counts submitted invoices by outcome.
var InvoicesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "invoices",
	Name:      "processed_total",
	Help:      "Total invoice submissions by outcome.",
}, []string{"outcome"})

// HTTPRequestDuration tracks API latency.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
