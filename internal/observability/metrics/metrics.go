package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes gatekeeper decision counters.
type Metrics struct {
	rateLimitAllowed *prometheus.CounterVec
	rateLimitDenied  *prometheus.CounterVec
	blockedIP        prometheus.Counter
	authFailures     *prometheus.CounterVec
	requestsAdmitted prometheus.Counter
}

func New() (*Metrics, error) {
	m := &Metrics{
		rateLimitAllowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_ratelimit_allowed_total",
			Help: "Requests admitted by the rate limiter, per tier.",
		}, []string{"tier"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_ratelimit_denied_total",
			Help: "Requests rejected by the rate limiter, per tier.",
		}, []string{"tier"}),
		blockedIP: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_blocked_ip_rejections_total",
			Help: "Requests rejected because the source IP is blocked.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_auth_failures_total",
			Help: "Credential check failures, per reason.",
		}, []string{"reason"}),
		requestsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_requests_admitted_total",
			Help: "Requests that passed the full gatekeeper pipeline.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.rateLimitAllowed,
		m.rateLimitDenied,
		m.blockedIP,
		m.authFailures,
		m.requestsAdmitted,
	} {
		if err := prometheus.Register(c); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = already
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) RecordRateLimitAllowed(tier string) {
	if m == nil {
		return
	}
	m.rateLimitAllowed.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordRateLimitDenied(tier string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordBlockedIPRejection() {
	if m == nil {
		return
	}
	m.blockedIP.Inc()
}

func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordAdmitted() {
	if m == nil {
		return
	}
	m.requestsAdmitted.Inc()
}
