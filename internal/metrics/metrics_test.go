package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TaskVerified(20)
	m.TaskVerified(5)
	m.AttendanceMarked("present", 3)
	m.AttendanceMarked("present", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksVerified))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.pointsAwarded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.attendanceMarked.WithLabelValues("present")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TaskVerified(1)
		m.AttendanceMarked("present", 1)
	})
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.Gin())
	r.GET("/api/events/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events/3", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events/4", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/events/:id", "GET", "200")))
}
