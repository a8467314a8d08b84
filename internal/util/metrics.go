package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersReconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_reconciled_total",
		Help: "Total number of orders reconciled, by mode",
	}, []string{"mode"})

	CommandsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_rejected_total",
		Help: "Total number of chat commands rejected, by reason",
	}, []string{"reason"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of stock adjustments, by movement reason",
	}, []string{"reason"})

	NegativeStockWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "negative_stock_warnings_total",
		Help: "Total number of oversold-stock warnings sent to sellers",
	})

	TransfersRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfers_requested_total",
		Help: "Total number of transfer requests created",
	})

	TransfersResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_resolved_total",
		Help: "Total number of transfer requests resolved, by outcome",
	}, []string{"outcome"})

	PaymentsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_requested_total",
		Help: "Total number of payout requests created",
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total number of payouts confirmed by the admin",
	})

	PurchasesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_recorded_total",
		Help: "Total number of restocking purchases recorded",
	})

	SessionsExpiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_expired_total",
		Help: "Total number of commands that hit a missing or expired session",
	}, []string{"flow"})

	FinalizeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_finalize_latency_seconds",
		Help:    "Latency of order finalize transactions",
		Buckets: prometheus.DefBuckets,
	})

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
