// Package metrics provides Prometheus metrics for the KiloEx automation
// bot, exposed via the /metrics endpoint for monitoring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bot: cycle progress, remote
// call outcomes and the per-action counters of the account pipeline.
type Metrics struct {
	// Cycle metrics
	CyclesTotal       prometheus.Counter // Completed passes over the account list
	LastCycleAccounts prometheus.Gauge   // Accounts processed in the last cycle
	AccountsSkipped   prometheus.Counter // Accounts skipped (info failure or balance gate)

	// Trading metrics
	OrdersTotal         prometheus.Counter // Positions opened successfully
	OrderRetries        prometheus.Counter // Order retries after rate limiting
	InsufficientBalance prometheus.Counter // Orders rejected for insufficient balance

	// Task metrics
	TasksReported prometheus.Counter // Tasks reported as completed
	TasksClaimed  prometheus.Counter // Task rewards claimed

	// Account action metrics
	MiningUpdates prometheus.Counter // Mining updates submitted
	ReferralBinds prometheus.Counter // Referral codes bound

	// API metrics
	APIErrors          prometheus.Counter   // Failed remote calls (transport or domain)
	APIRequestDuration prometheus.Histogram // Remote call duration in seconds
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "cycles_total",
			Help: "Completed passes over the account list",
		}),
		LastCycleAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "last_cycle_accounts",
			Help: "Number of accounts processed in the last cycle",
		}),
		AccountsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "accounts_skipped_total",
			Help: "Accounts skipped due to info failure or the balance gate",
		}),
		OrdersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total number of positions opened successfully",
		}),
		OrderRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_retries_total",
			Help: "Order attempts retried after rate limiting",
		}),
		InsufficientBalance: factory.NewCounter(prometheus.CounterOpts{
			Name: "insufficient_balance_total",
			Help: "Orders rejected by the remote for insufficient balance",
		}),
		TasksReported: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasks_reported_total",
			Help: "Tasks reported as completed",
		}),
		TasksClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasks_claimed_total",
			Help: "Task rewards claimed",
		}),
		MiningUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "mining_updates_total",
			Help: "Mining stamina updates submitted",
		}),
		ReferralBinds: factory.NewCounter(prometheus.CounterOpts{
			Name: "referral_binds_total",
			Help: "Referral codes bound to accounts",
		}),
		APIErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Failed remote API calls (transport or domain level)",
		}),
		APIRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Remote API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
