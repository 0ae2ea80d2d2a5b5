package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/taskapi/internal/auth"
	"github.com/geocoder89/taskapi/internal/cache"
	"github.com/geocoder89/taskapi/internal/config"
	"github.com/geocoder89/taskapi/internal/http/handlers"
	"github.com/geocoder89/taskapi/internal/http/middlewares"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/geocoder89/taskapi/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type UserStore interface {
	handlers.UserReader
	handlers.UserWriter
}

// Deps are the storage-backed collaborators the router wires into handlers.
// Postgres and SQLite repositories both satisfy them.
type Deps struct {
	Users     UserStore
	Tasks     handlers.TaskStore
	TaskCache *cache.TaskList // optional
	Prom      *observability.Prom
	Ready     map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	prom := deps.Prom
	if prom == nil {
		prom = observability.NewProm(prometheus.NewRegistry())
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())
	hasher := security.NewHasher(cfg.BcryptCost)
	authMW := middlewares.NewAuthMiddleware(jwtManager, prom)

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(cfg.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(authMW.Gate(middlewares.DefaultPolicy(cfg.ProtectTaskWrites)))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireBodyType())

	// health
	h := handlers.NewHealthHandler(deps.Ready)
	r.GET("/", handlers.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(prom.Handler()))

	// auth
	authLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Users, hasher, jwtManager, prom)

	r.POST("/register", authLimiter.Middleware(middlewares.KeyByIP), authHandler.Register)
	r.POST("/login", authLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)
	r.GET("/me", authHandler.Me)

	// tasks
	tasksHandler := handlers.NewTasksHandler(deps.Tasks, deps.TaskCache)

	r.GET("/tasks", tasksHandler.ListTasks)
	r.GET("/tasks/:id", tasksHandler.GetTaskByID)
	r.POST("/tasks", tasksHandler.CreateTask)
	r.PUT("/tasks/:id", tasksHandler.UpdateTask)
	r.DELETE("/tasks/:id", tasksHandler.DeleteTask)

	return r
}
