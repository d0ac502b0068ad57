package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "servicehub",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "servicehub",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	RequestsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "servicehub",
		Name:      "service_requests_created_total",
		Help:      "Service requests created.",
	})

	BidsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "servicehub",
		Name:      "bids_submitted_total",
		Help:      "Bids submitted.",
	})

	BidsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "servicehub",
		Name:      "bids_accepted_total",
		Help:      "Bids accepted by request owners.",
	})

	MessagesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "servicehub",
		Name:      "bid_messages_posted_total",
		Help:      "Negotiation messages posted on bids.",
	})

	NotificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "servicehub",
		Name:      "notifications_failed_total",
		Help:      "Best-effort notifications that could not be delivered or enqueued.",
	}, []string{"kind"})

	DirectoryCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "servicehub",
		Name:      "directory_cache_lookups_total",
		Help:      "Provider directory cache lookups by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		RequestsCreated,
		BidsSubmitted,
		BidsAccepted,
		MessagesPosted,
		NotificationsFailed,
		DirectoryCacheLookups,
	)
}

// Middleware records request counts and latency keyed by the matched route,
// so path parameters do not explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Response().Status)).Inc()
			HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler exposes the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
