// Package metrics exposes Prometheus collectors for HTTP traffic and the
// points economy.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	pointsAwarded    prometheus.Counter
	tasksVerified    prometheus.Counter
	attendanceMarked *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_points_awarded_total",
			Help: "Points credited through task verification.",
		}),
		tasksVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubhub_tasks_verified_total",
			Help: "Tasks moved from submitted to verified.",
		}),
		attendanceMarked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_attendance_marked_total",
			Help: "Attendance records created, by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.requests, m.latency, m.pointsAwarded, m.tasksVerified, m.attendanceMarked)
	return m
}

// Gin records request count and latency per matched route.
func (m *Metrics) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) TaskVerified(points int) {
	if m == nil {
		return
	}
	m.tasksVerified.Inc()
	m.pointsAwarded.Add(float64(points))
}

func (m *Metrics) AttendanceMarked(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attendanceMarked.WithLabelValues(status).Add(float64(n))
}
