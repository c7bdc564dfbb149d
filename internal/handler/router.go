// Package handler exposes the club services over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"clubhub/internal/attendance"
	"clubhub/internal/auth"
	"clubhub/internal/cloudinary"
	"clubhub/internal/dashboard"
	"clubhub/internal/events"
	"clubhub/internal/httpmiddleware"
	"clubhub/internal/leaderboard"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
	"clubhub/internal/projects"
	"clubhub/internal/store"
	"clubhub/internal/tasks"
	"clubhub/internal/users"
	"clubhub/internal/validate"
)

// Uploader stores images and returns their public location.
type Uploader interface {
	UploadBase64(ctx context.Context, data string) (*cloudinary.UploadResult, error)
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Deps is everything the router needs. Media, Redis, Limiter and Gatherer
// are optional.
type Deps struct {
	Store       store.Store
	Redis       *redis.Client
	Sessions    *auth.Manager
	Users       *users.Service
	Projects    *projects.Service
	Events      *events.Service
	Attendance  *attendance.Service
	Tasks       *tasks.Service
	Leaderboard *leaderboard.Service
	Dashboard   *dashboard.Service
	Media       Uploader
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Limiter     *httpmiddleware.SimpleTokenBucket
	Logger      *slog.Logger
	CORSOrigins []string
	// SecureCookie marks the session cookie HTTPS-only.
	SecureCookie bool
	Now          func() time.Time
}

type Handler struct {
	Deps
}

// NewRouter builds the gin engine with all API routes mounted under /api.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	validate.Init()
	h := &Handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Gin(d.Logger, "/healthz", "/metrics"))
	r.Use(d.Metrics.Gin())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/healthz", h.health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	limited := []gin.HandlerFunc{}
	if d.Limiter != nil {
		limited = append(limited, d.Limiter.GinMiddleware())
	}
	api.POST("/auth/register", append(limited, h.register)...)
	api.POST("/auth/login", append(limited, h.login)...)

	authed := api.Group("", auth.RequireSession(d.Sessions, d.Store))
	authed.POST("/auth/logout", h.logout)
	authed.GET("/auth/profile", h.profile)
	authed.PATCH("/auth/profile", h.updateProfile)
	authed.POST("/auth/profile/avatar", h.uploadAvatar)
	authed.POST("/auth/password-change", h.changePassword)

	authed.GET("/leaderboard", h.leaderboard)
	authed.GET("/dashboard", h.dashboard)

	authed.GET("/users", h.listUsers)
	authed.GET("/users/:id", h.getUser)
	authed.PATCH("/users/:id", h.adminUpdateUser)
	authed.DELETE("/users/:id", h.deleteUser)
	authed.GET("/users/:id/projects", h.userProjects)
	authed.GET("/users/:id/tasks", h.userTasks)
	authed.GET("/users/:id/attendance", h.userAttendance)

	authed.GET("/projects", h.listProjects)
	authed.POST("/projects", h.createProject)
	authed.GET("/projects/:id", h.getProject)
	authed.PUT("/projects/:id", h.updateProject(false))
	authed.PATCH("/projects/:id", h.updateProject(true))
	authed.DELETE("/projects/:id", h.deleteProject)
	authed.POST("/projects/:id/join", h.joinProject)
	authed.POST("/projects/:id/leave", h.leaveProject)

	authed.GET("/events", h.listEvents)
	authed.POST("/events", h.createEvent)
	authed.GET("/events/:id", h.getEvent)
	authed.PUT("/events/:id", h.updateEvent(false))
	authed.PATCH("/events/:id", h.updateEvent(true))
	authed.DELETE("/events/:id", h.deleteEvent)
	authed.GET("/events/:id/attendees", h.eventAttendees)
	authed.POST("/events/:id/banner", h.uploadBanner)

	authed.GET("/attendance", h.listAttendance)
	authed.POST("/attendance", h.markAttendance)
	authed.POST("/attendance/bulk_mark", h.bulkMark)

	authed.GET("/tasks", h.listTasks)
	authed.POST("/tasks", h.createTask)
	authed.GET("/tasks/:id", h.getTask)
	authed.PUT("/tasks/:id", h.updateTask(false))
	authed.PATCH("/tasks/:id", h.updateTask(true))
	authed.DELETE("/tasks/:id", h.deleteTask)
	authed.POST("/tasks/:id/start", h.startTask)
	authed.POST("/tasks/:id/submit", h.submitTask)
	authed.POST("/tasks/:id/verify", h.verifyTask)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbHealthy := h.Store.Ping(ctx) == nil
	body := gin.H{"db": dbHealthy}
	healthy := dbHealthy
	if h.Redis != nil {
		redisHealthy := store.RedisHealthy(ctx, h.Redis)
		body["redis"] = redisHealthy
		healthy = healthy && redisHealthy
	}
	status := http.StatusOK
	body["status"] = "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
