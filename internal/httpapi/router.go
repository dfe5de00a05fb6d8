// Package httpapi builds the gin router serving the portal's JSON surface.
// Handlers translate domain rejections to 4xx responses at the boundary;
// infrastructure errors are logged and surfaced as a generic 500.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/account"
	"schoolportal/internal/attendance"
	"schoolportal/internal/auth"
	"schoolportal/internal/httpmiddleware"
	"schoolportal/internal/queue"
)

// SummaryReader exposes the worker-maintained attendance tallies.
type SummaryReader interface {
	GetSummary(ctx context.Context, studentID string) (*attendance.Summary, error)
}

// Deps wires the services the router needs.
type Deps struct {
	Auth            *auth.Service
	Attendance      *attendance.Service
	Accounts        account.Repository
	Summaries       SummaryReader
	Queue           queue.Queue
	SessionSecret   string
	JWTIssuer       string
	RateLimitPerMin int
}

// NewRouter assembles middleware and routes. /metrics and /healthz are
// attached by the caller, which owns the infra handles they report on.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	if d.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewSimpleTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin).GinMiddleware())
	}
	r.Use(auth.SectionGuard(d.SessionSecret, d.JWTIssuer))

	h := handlers{deps: d}

	r.POST("/login", h.login)
	r.POST("/logout", h.logout)
	r.POST("/session/refresh", h.refreshSession)

	s := r.Group("/s")
	s.GET("", h.studentHome)
	s.POST("/attendance", h.markAttendance)
	s.GET("/attendance", h.listOwnAttendance)

	t := r.Group("/t")
	t.GET("", h.teacherHome)
	t.GET("/attendance/:studentID", h.studentAttendance)

	a := r.Group("/a")
	a.GET("", h.adminHome)
	a.GET("/attendance/settings", h.getSettings)
	a.PUT("/attendance/settings", h.putSettings)
	a.POST("/accounts", h.createAccount)
	a.POST("/accounts/:id/role", h.changeRole)

	return r
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
