// Package metrics exposes Prometheus instrumentation for vidmark-engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthzDecisions counts authorization outcomes by resolver and result.
	AuthzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_authz_decisions_total",
		Help: "Authorization decisions by resolver and outcome.",
	}, []string{"resolver", "outcome"})

	// AccessCodesIssued counts issued access codes, labeled by whether the
	// issue rotated out a previous live code.
	AccessCodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_access_codes_issued_total",
		Help: "Access codes issued, by rotation status.",
	}, []string{"rotated"})

	// AccessCodesRetired counts explicit retirements.
	AccessCodesRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidmark_access_codes_retired_total",
		Help: "Access codes explicitly retired.",
	})

	// AccessCodeValidations counts validation calls by result.
	AccessCodeValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_access_code_validations_total",
		Help: "Access code validation checks by result.",
	}, []string{"valid"})

	// EventsDelivered counts domain events handed to the deliverer.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidmark_domain_events_delivered_total",
		Help: "Domain events delivered by the dispatcher.",
	})

	// EventsDeliveryFailures counts delivery attempts that errored.
	EventsDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidmark_domain_events_delivery_failures_total",
		Help: "Domain event delivery attempts that failed.",
	})
)

// Outcome labels for AuthzDecisions.
const (
	OutcomeAllowed   = "allowed"
	OutcomeForbidden = "forbidden"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
)
