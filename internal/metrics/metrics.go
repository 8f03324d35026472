// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "libra"

var LendingOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "lending_operations_total",
	Help:      "Lending operations by operation and outcome",
}, []string{"operation", "outcome"})

var LendingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "lending_operation_duration_ms",
	Help:      "Duration of lending operations in ms",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

var LockRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "lending_lock_retries_total",
	Help:      "Units of work retried after a lock wait timeout",
}, []string{"operation"})

var OutboxRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "outbox_messages_total",
	Help:      "Outbox messages relayed to the broker by result",
}, []string{"kind", "result"})

var HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "http_requests_total",
	Help:      "HTTP requests by method, route and status",
}, []string{"method", "route", "status"})

var HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_ms",
	Help:      "Duration of HTTP requests in ms",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

func init() {
	prometheus.MustRegister(
		LendingOperations,
		LendingDuration,
		LockRetries,
		OutboxRelayed,
		HTTPRequests,
		HTTPDuration,
	)
}

// ObserveLending records one finished lending operation.
func ObserveLending(operation, outcome string, start time.Time) {
	LendingOperations.WithLabelValues(operation, outcome).Inc()
	LendingDuration.WithLabelValues(operation).Observe(float64(time.Since(start).Milliseconds()))
}

// Middleware counts requests by route pattern, never by raw path.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			HTTPDuration.WithLabelValues(method, route).Observe(float64(time.Since(start).Milliseconds()))
			return err
		}
	}
}
