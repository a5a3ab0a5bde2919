package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ledgerRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_transaction_retries_total",
			Help: "Atomic ledger transaction retries after store conflicts",
		},
	)

	chargeAmounts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "charge_gross_amount_minor_units",
			Help:    "Gross amount of processed charges in minor units",
			Buckets: prometheus.ExponentialBuckets(1000, 10, 7),
		},
	)

	settlementDiscrepancy = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_discrepancy_minor_units_total",
			Help: "Settlement amount exceeding pending balance, in minor units",
		},
	)

	withdrawalOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawal_operations_total",
			Help: "Withdrawal requests by outcome",
		},
		[]string{"outcome"},
	)

	paymentsInitialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_initialized_total",
			Help: "Hosted checkouts started through the gateway",
		},
	)

	notificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Best-effort notification dispatch failures",
		},
		[]string{"channel"},
	)
)

// TrackWebhookEvent counts one webhook delivery.
func TrackWebhookEvent(kind, outcome string) {
	webhookEvents.WithLabelValues(kind, outcome).Inc()
}

// TrackLedgerRetry counts one conflict retry of the atomic transaction.
func TrackLedgerRetry() {
	ledgerRetries.Inc()
}

// TrackCharge records the gross amount of a committed charge.
func TrackCharge(gross int64) {
	chargeAmounts.Observe(float64(gross))
}

// TrackSettlementDiscrepancy records settlement money that had no pending
// balance to settle against.
func TrackSettlementDiscrepancy(excess int64) {
	settlementDiscrepancy.Add(float64(excess))
}

// TrackWithdrawal counts a withdrawal request outcome.
func TrackWithdrawal(outcome string) {
	withdrawalOps.WithLabelValues(outcome).Inc()
}

// TrackPaymentInitialized counts one started checkout.
func TrackPaymentInitialized() {
	paymentsInitialized.Inc()
}

// TrackNotificationFailure counts a failed best-effort notification.
func TrackNotificationFailure(channel string) {
	notificationFailures.WithLabelValues(channel).Inc()
}
