// Package metrics defines and registers all custom Prometheus metrics for the
// booking API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto; /metrics exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "booking"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts by outcome.
// Labels:
//   - context: "user" or "admin"
//   - result: "success", "not_found", "frozen", "invalid_credential", "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by context and result.",
	},
	[]string{"context", "result"},
)

// TokensIssuedTotal counts signed tokens.
// Label:
//   - type: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by token type.",
	},
	[]string{"type"},
)

// TokenRefreshTotal counts refresh attempts.
// Label:
//   - result: "success", "expired", "invalid", "not_found", "frozen", "error"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of token pair rotations, by result.",
	},
	[]string{"result"},
)

// GuardDenialsTotal counts requests rejected by the authorization guard.
// Label:
//   - reason: "missing_token", "invalid_token", "expired_token", "frozen", "forbidden"
var GuardDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_denials_total",
		Help:      "Total number of requests denied by the authorization guard.",
	},
	[]string{"reason"},
)

// ── Verification code metrics ────────────────────────────────────────────────

// CodesIssuedTotal counts verification codes written to the cache.
// Label:
//   - purpose: "register", "update_password", "update_user"
var CodesIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_codes_issued_total",
		Help:      "Total number of verification codes issued, by purpose.",
	},
	[]string{"purpose"},
)

// CodesValidatedTotal counts redemption attempts.
// Labels:
//   - purpose: code purpose
//   - result: "consumed" or "invalid"
var CodesValidatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_codes_validated_total",
		Help:      "Total number of verification code redemption attempts, by purpose and result.",
	},
	[]string{"purpose", "result"},
)

// ── Notification metrics ─────────────────────────────────────────────────────

// NotificationsTotal counts delivery attempts.
// Label:
//   - result: "sent" or "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notification deliveries, by result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the messages waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDuration measures a single delivery.
var NotificationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of a single notification delivery.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Booking metrics ──────────────────────────────────────────────────────────

// BookingsTotal counts booking writes.
// Label:
//   - status: the status written ("pending" on creation)
var BookingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Total number of booking writes, by resulting status.",
	},
	[]string{"status"},
)
