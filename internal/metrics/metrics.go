// Package metrics exposes prometheus counters for logins, sessions and task
// mutations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasks_api"

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
	LoginLocked             = "locked"
)

// Session events.
const (
	SessionCreated   = "created"
	SessionRefreshed = "refreshed"
	SessionRevoked   = "revoked"
)

type Metrics struct {
	LoginAttempts *prometheus.CounterVec
	Sessions      *prometheus.CounterVec
	TaskMutations *prometheus.CounterVec
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Session lifecycle events.",
		}, []string{"event"}),
		TaskMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_mutations_total",
			Help:      "Task create, update and delete operations by result.",
		}, []string{"op", "result"}),
	}
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Session(event string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(event).Inc()
}

// TaskMutation records op ("create", "update", "delete") as ok or failed.
func (m *Metrics) TaskMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.TaskMutations.WithLabelValues(op, result).Inc()
}
