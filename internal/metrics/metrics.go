package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mediahub"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	OTPChallenges   *prometheus.CounterVec
	OTPVerification *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// New registers every collector on reg
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		OTPChallenges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "challenges_total",
			Help:      "OTP challenges by delivery method and outcome",
		}, []string{"method", "outcome"}),
		OTPVerification: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "OTP verifications by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Successful logins by role",
		}, []string{"role"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Accounts created through phone login by role",
		}, []string{"role"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events handed to the broker by queue and outcome",
		}, []string{"queue", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCount.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveChallenge(method, outcome string) {
	if m == nil {
		return
	}
	m.OTPChallenges.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveVerification(purpose, outcome string) {
	if m == nil {
		return
	}
	m.OTPVerification.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) ObserveLogin(role string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(role).Inc()
}

func (m *Metrics) ObserveRegistration(role string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(role).Inc()
}

func (m *Metrics) ObservePublish(queue, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(queue, outcome).Inc()
}
