// Package poolmetrics exposes the pool's internal Prometheus metrics.
// This is process telemetry, not a miner- or operator-facing HTTP/TLS
// front-end (see DESIGN.md). Grounded structurally on the donor node's
// use of prometheus/client_golang for chain-sync and mempool gauges,
// applied here to pool-specific counters.
package poolmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every counter/gauge the Protocol Engine and payout driver
// update.
type Metrics struct {
	SharesAccepted   prometheus.Counter
	SharesRejected   prometheus.Counter
	BlocksSubmitted  prometheus.Counter
	LoginRequests    prometheus.Counter
	LoginThrottled   prometheus.Counter
	TemplatesFetched prometheus.Counter
	PayoutsSent      prometheus.Counter
	PayoutFailures   prometheus.Counter
	PoolDifficulty   prometheus.Gauge
	OpenJobs         prometheus.Gauge
}

// New registers every metric against a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		SharesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_shares_accepted_total",
			Help: "Total number of submitted shares accepted.",
		}),
		SharesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_shares_rejected_total",
			Help: "Total number of submitted shares rejected.",
		}),
		BlocksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_blocks_submitted_total",
			Help: "Total number of blocks submitted to the daemon.",
		}),
		LoginRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_login_requests_total",
			Help: "Total number of miner login requests handled.",
		}),
		LoginThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_login_throttled_total",
			Help: "Total number of miner login requests dropped by the rate limiter.",
		}),
		TemplatesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_templates_fetched_total",
			Help: "Total number of block templates fetched from the daemon.",
		}),
		PayoutsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_payouts_sent_total",
			Help: "Total number of accounts paid out.",
		}),
		PayoutFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustpool_payout_failures_total",
			Help: "Total number of payout attempts that failed.",
		}),
		PoolDifficulty: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rustpool_pool_difficulty",
			Help: "Difficulty of the most recently fetched block template.",
		}),
		OpenJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rustpool_open_jobs",
			Help: "Number of jobs currently in the CREATED state.",
		}),
	}, reg
}

// Handler returns an http.Handler serving reg in the Prometheus exposition
// format, intended to be mounted at /metrics on a loopback-only listener.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
