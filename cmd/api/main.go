package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schoolportal/internal/account"
	"schoolportal/internal/attendance"
	"schoolportal/internal/auth"
	"schoolportal/internal/config"
	"schoolportal/internal/httpapi"
	"schoolportal/internal/lock"
	"schoolportal/internal/queue"
	"schoolportal/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(ctx); err != nil {
		cancel()
		return err
	}
	cancel()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	var locker lock.Locker
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "portal:marks")
		locker = lock.NewRedisLock(redisClient.Client)
	}

	clock, err := attendance.NewZoneClock(cfg.TimeZone)
	if err != nil {
		return err
	}

	accounts := account.NewPostgresRepository(db.Client)
	attRepo := attendance.NewPostgresRepository(db.Client)
	att := attendance.NewService(attRepo, clock, locker)
	sessions := auth.NewService(accounts, cfg.JWTIssuer, cfg.SessionSecret, cfg.SessionTTL)

	r := httpapi.NewRouter(httpapi.Deps{
		Auth:            sessions,
		Attendance:      att,
		Accounts:        accounts,
		Summaries:       attRepo,
		Queue:           q,
		SessionSecret:   cfg.SessionSecret,
		JWTIssuer:       cfg.JWTIssuer,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
