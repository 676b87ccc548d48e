package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Billing-domain collectors. Registered once at package init; services record
// into them directly.
var (
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "reconcile_total",
		Help:      "Payment callback reconciliations, partitioned by outcome.",
	}, []string{"outcome"})

	CreditsGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "credits_granted_total",
		Help:      "Common credits granted through completed purchases.",
	})

	CharactersGrantedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "characters_granted_total",
		Help:      "Pro allowance units granted, partitioned by service.",
	}, []string{"service"})

	ProFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "pro_fallback_total",
		Help:      "Pro-tier grants attributed to the default service because the product name was unrecognized. Non-zero values need operator attention.",
	})
)

// Reconciliation outcome label values.
const (
	OutcomeGranted      = "granted"
	OutcomeDuplicate    = "duplicate"
	OutcomeFailed       = "failed"
	OutcomeMalformed    = "malformed"
	OutcomeNotFound     = "not_found"
	OutcomeUnrecognized = "unrecognized_amount"
	OutcomeError        = "error"
)
