package metrics

import "github.com/prometheus/client_golang/prometheus"

// Auth event names.
const (
	AuthEventLogin          = "login"
	AuthEventRefresh        = "refresh"
	AuthEventLogout         = "logout"
	AuthEventRevokeAll      = "revoke_all"
	AuthEventChangePassword = "change_password"
	AuthEventAccessDenied   = "access_denied"
)

// Auth event results.
const (
	AuthResultSuccess = "success"
	AuthResultFailure = "failure"
)

// AuthMetrics counts authentication and authorization outcomes.
type AuthMetrics struct {
	events *prometheus.CounterVec
}

// NewAuthMetrics registers the auth counter on the provided registerer.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		return &AuthMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication and authorization events by outcome.",
	}, []string{"event", "result"})
	reg.MustRegister(events)
	return &AuthMetrics{events: events}
}

func (a *AuthMetrics) Record(event string, success bool) {
	if a == nil || a.events == nil {
		return
	}
	result := AuthResultFailure
	if success {
		result = AuthResultSuccess
	}
	a.events.WithLabelValues(normalizeLabel(event), result).Inc()
}
