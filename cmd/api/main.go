package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"clubhub/internal/attendance"
	"clubhub/internal/auth"
	"clubhub/internal/cloudinary"
	"clubhub/internal/config"
	"clubhub/internal/dashboard"
	"clubhub/internal/events"
	"clubhub/internal/handler"
	"clubhub/internal/httpmiddleware"
	"clubhub/internal/leaderboard"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
	"clubhub/internal/projects"
	"clubhub/internal/store"
	"clubhub/internal/tasks"
	"clubhub/internal/users"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	log := logger.Init(cfg.Log)

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "err", err.Error())
		os.Exit(1)
	}
}

func openStore(cfg config.App, log *slog.Logger) (store.Store, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.NewPostgres(db), nil
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	st, err := openStore(cfg, log)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer st.Close()

	var (
		redisClient *redis.Client
		sessions    auth.SessionStore
	)
	if cfg.SessionBackend == "memory" {
		sessions = auth.NewMemorySessions(time.Now)
	} else {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		sessions = auth.NewRedisSessions(redisClient, time.Now)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Media stays nil when uploads are not configured.
	var media handler.Uploader
	if cfg.Cloudinary.Enabled() {
		c := cfg.Cloudinary
		media = cloudinary.New(c.CloudName, c.APIKey, c.APISecret, c.Folder)
		log.Info("cloudinary configured", "cloud", c.CloudName)
	} else {
		log.Info("cloudinary not configured, uploads disabled")
	}

	r := handler.NewRouter(handler.Deps{
		Store:        st,
		Redis:        redisClient,
		Sessions:     auth.NewManager(sessions, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.SessionTTL, time.Now),
		Users:        users.NewService(st, time.Now),
		Projects:     projects.NewService(st, time.Now),
		Events:       events.NewService(st, time.Now),
		Attendance:   attendance.NewService(st, m, time.Now),
		Tasks:        tasks.NewService(st, m, time.Now),
		Leaderboard:  leaderboard.NewService(st, cfg.AttendancePoints, cfg.LeaderboardLimit),
		Dashboard:    dashboard.NewService(st, time.Now),
		Media:        media,
		Metrics:      m,
		Gatherer:     reg,
		Limiter:      httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, time.Now),
		Logger:       log,
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.IsProduction(),
		Now:          time.Now,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "store", cfg.StoreBackend, "sessions", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced shutdown", "err", err.Error())
	}
	log.Info("server exited")
	return nil
}
