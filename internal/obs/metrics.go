package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthMetrics counts authentication outcomes. Registered on the default
// prometheus registry and served by MetricsHandler.
type AuthMetrics struct {
	Logins     *prometheus.CounterVec
	Logouts    prometheus.Counter
	Refreshes  prometheus.Counter
	Duplicates prometheus.Counter
}

func NewAuthMetrics() *AuthMetrics {
	return &AuthMetrics{
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		Logouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auth_logouts_total",
			Help: "Completed logouts.",
		}),
		Refreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Access tokens minted from refresh tokens.",
		}),
		Duplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auth_duplicate_sessions_total",
			Help: "Logins rejected because a session was already active.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
