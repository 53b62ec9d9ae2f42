package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of access tokens issued, by flow.",
		},
		[]string{"flow"},
	)

	PostsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_created_total",
			Help: "Total number of posts created.",
		},
	)

	LikesToggledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_toggled_total",
			Help: "Total number of like toggles, by resulting action.",
		},
		[]string{"action"},
	)

	MembershipUpgradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_upgrades_total",
			Help: "Total number of effective basic to premium transitions.",
		},
		[]string{"source"},
	)
)

// MustRegister registers every collector with reg.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthLoginsTotal,
		TokensIssuedTotal,
		PostsCreatedTotal,
		LikesToggledTotal,
		MembershipUpgradesTotal,
	)
}
