package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "educore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WalletFundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educore_wallet_funds_total",
			Help: "Total number of wallet funding credits",
		},
		[]string{"method"},
	)

	WalletSpendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educore_wallet_spends_total",
			Help: "Total number of wallet fee payments",
		},
	)

	WalletTransfersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educore_wallet_transfers_total",
			Help: "Total number of wallet to wallet transfers",
		},
	)

	InsufficientFundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educore_wallet_insufficient_funds_total",
			Help: "Total number of spends rejected for insufficient balance",
		},
	)

	WalletFundedKobo = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educore_wallet_funded_kobo_total",
			Help: "Total amount credited to wallets in kobo",
		},
	)

	WalletSpentKobo = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educore_wallet_spent_kobo_total",
			Help: "Total amount debited from wallets in kobo",
		},
	)

	InvoicesPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educore_invoices_paid_total",
			Help: "Total number of invoices settled from wallets",
		},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educore_notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"type", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "educore_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordFund(method string, amountKobo int64) {
	WalletFundsTotal.WithLabelValues(method).Inc()
	WalletFundedKobo.Add(float64(amountKobo))
}

func RecordSpend(amountKobo int64) {
	WalletSpendsTotal.Inc()
	WalletSpentKobo.Add(float64(amountKobo))
}

func RecordTransfer() {
	WalletTransfersTotal.Inc()
}

func RecordInsufficientFunds() {
	InsufficientFundsTotal.Inc()
}

func RecordInvoicePaid() {
	InvoicesPaidTotal.Inc()
}

func RecordNotification(notifType, status string) {
	NotificationsSentTotal.WithLabelValues(notifType, status).Inc()
}
