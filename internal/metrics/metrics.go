package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Chain RPC
	// ============================================
	ChainRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airdrop_chain_request_duration_seconds",
			Help:    "Chain RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ChainRequestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_chain_request_failures_total",
			Help: "Total number of failed chain RPC requests",
		},
		[]string{"method"},
	)

	TokenDecimalsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_token_decimals_lookups_total",
			Help: "Token decimals resolutions by source (config, cache, chain, default, failed)",
		},
		[]string{"source"},
	)

	// ============================================
	// Commitments
	// ============================================
	CommitmentsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airdrop_commitments_built_total",
		Help: "Total number of recipient Merkle commitments built",
	})

	CommitmentRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airdrop_commitment_recipients",
		Help:    "Number of recipients per commitment",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// ============================================
	// Steps
	// ============================================
	StepSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_step_submissions_total",
			Help: "Step submissions by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSteps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airdrop_active_steps",
		Help: "Number of open airdrop step sessions",
	})

	WindowFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_window_fetches_total",
			Help: "Distribution window fetches by outcome",
		},
		[]string{"outcome"},
	)

	// ============================================
	// NATS
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airdrop_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airdrop_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)
)
