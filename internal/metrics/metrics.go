// Package metrics provides Prometheus counters for token, session and reset token
// lifecycle events. Collectors are registered with the default registry via promauto
// and scraped on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authsession"

// Outcome and event label values.
const (
	OutcomeValid   = "valid"
	OutcomeExpired = "expired"
	OutcomeInvalid = "invalid"
	OutcomeRevoked = "revoked"
	OutcomeError   = "error"

	KindAccess  = "access"
	KindRefresh = "refresh"

	EventCreated    = "created"
	EventExtended   = "extended"
	EventTerminated = "terminated"
	EventExpired    = "expired"

	EventGenerated = "generated"
	EventConsumed  = "consumed"
	EventRejected  = "rejected"
)

var (
	// TokensIssued counts signed and cached tokens by kind.
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of issued tokens by kind.",
		},
		[]string{"kind"},
	)

	// TokenVerifications counts access token verifications by outcome.
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Total number of access token verifications by outcome.",
		},
		[]string{"outcome"},
	)

	// TokensRevoked counts revocation registry writes.
	TokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_revoked_total",
			Help:      "Total number of revoked access tokens.",
		},
	)

	// Sessions counts session lifecycle events.
	Sessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of session lifecycle events by event.",
		},
		[]string{"event"},
	)

	// PasswordResets counts password reset token events.
	PasswordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Total number of password reset token events by event.",
		},
		[]string{"event"},
	)

	// StoreRetries counts shared store calls that were retried after a storage failure.
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Total number of retried shared store calls by operation.",
		},
		[]string{"op"},
	)
)
