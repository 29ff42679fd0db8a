package backend

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Options configures the router.
type Options struct {
	JWTSecret string
	JWTTTL    time.Duration
	Registry  *prometheus.Registry
}

// NewRouter builds the API. The database must already be migrated.
func NewRouter(db *gorm.DB, opts Options) *gin.Engine {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	accounts := NewAccounts(db, NewTokenIssuer(opts.JWTSecret, opts.JWTTTL))
	authHandler := NewAuthHandler(accounts)
	taskHandler := NewTaskHandler(db)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestMetrics(registry))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", RequireAuth(accounts), authHandler.Logout)
			auth.POST("/refresh", RequireAuth(accounts), authHandler.Refresh)
			auth.GET("/user", RequireAuth(accounts), authHandler.GetCurrentUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(RequireAuth(accounts))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/user/:id", taskHandler.ListUserTasks)
			tasks.PUT("/:id", RequireTaskOwner(db), taskHandler.UpdateTask)
			tasks.PATCH("/:id", RequireTaskOwner(db), taskHandler.UpdateTask)
			tasks.DELETE("/:id", RequireTaskOwner(db), taskHandler.DeleteTask)
		}
	}

	return r
}

func requestMetrics(reg prometheus.Registerer) gin.HandlerFunc {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todo_api_requests_total",
		Help: "HTTP requests served by the dev backend.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "todo_api_request_duration_seconds",
		Help:    "Latency of HTTP requests served by the dev backend.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
