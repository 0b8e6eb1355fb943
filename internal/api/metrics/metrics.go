// Package metrics defines and registers all custom Prometheus metrics for the
// clinic API.
//
// Metrics are registered with the default Prometheus registry when the
// package is loaded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinic"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "deactivated", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SignupsTotal counts accounts created through signup.
// Label:
//   - role: "admin", "doctor" or "patient"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "signups_total",
		Help:      "Total number of accounts created through signup, by role.",
	},
	[]string{"role"},
)

// GateRejectionsTotal counts requests turned away by the access gates.
// Labels:
//   - gate: "authn" or "authz"
//   - reason: "missing_token", "misconfigured", "invalid_token",
//     "unknown_account", "deactivated" or "forbidden"
var GateRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "gate_rejections_total",
		Help:      "Total number of requests rejected by the authentication and authorization gates.",
	},
	[]string{"gate", "reason"},
)

// PasswordHashDuration measures bcrypt hashing time.
var PasswordHashDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "password_hash_seconds",
		Help:      "Duration of password hashing.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1},
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts audit events discarded because a worker
// channel was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_dropped_total",
		Help:      "Total number of audit events dropped because the dispatcher queue was full.",
	},
)

// AuditEventsPersistedTotal counts audit writes.
// Label:
//   - result: "ok" or "error"
var AuditEventsPersistedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_persisted_total",
		Help:      "Total number of audit events written to the store, by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
