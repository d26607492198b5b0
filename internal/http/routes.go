package http

import (
	"context"
	"time"

	"task_manager/internal/config"
	"task_manager/internal/http/handlers"
	"task_manager/internal/http/middleware"
	"task_manager/internal/service"
	"task_manager/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// Deps are the collaborators the router wires into handlers. Redis is optional.
type Deps struct {
	Config *config.Config
	DB     handlers.Pinger
	Redis  *redis.Client
	Auth   *service.AuthService
	Tasks  *service.TaskService
	Tokens *service.TokenManager
	Hub    *ws.Hub
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// NewRouter builds the engine with the global middleware chain and all routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(d.Config.AllowedOrigins)))

	RegisterRoutes(r, d)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Auth, d.Tasks)

	var redisHealth handlers.Pinger
	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if d.Redis != nil {
		redisHealth = redisPinger{client: d.Redis}
		limiter = middleware.NewRedisLimiter(d.Redis)
	}
	healthHandler := handlers.NewHealthHandler(d.DB, redisHealth, d.Hub, d.Config.AppVersion)

	// Health checks (no rate limiting)
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RateLimit(limiter, "api", d.Config.APIRateLimit, d.Config.APIRateWindow))

	authRL := middleware.RateLimit(limiter, "auth", d.Config.AuthRateLimit, d.Config.AuthRateWindow)
	jwt := middleware.JWT(d.Tokens)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authRL, h.Register)
		auth.POST("/login", authRL, h.Login)
		auth.GET("/me", jwt, h.Me)
	}

	tasks := api.Group("/tasks")
	tasks.Use(jwt)
	{
		tasks.POST("", h.CreateTask)
		tasks.GET("/my", h.MyTasks)
		tasks.GET("/stats", h.TaskStats)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.PATCH("/:id/status", h.UpdateTaskStatus)
		tasks.DELETE("/:id", h.DeleteTask)
	}

	// Realtime task events
	r.GET("/ws", ws.HandleWS(d.Hub, d.Tokens, d.Config.AllowedOrigins))
}
