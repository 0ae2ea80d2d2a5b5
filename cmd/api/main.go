package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/taskapi/internal/cache"
	"github.com/geocoder89/taskapi/internal/config"
	"github.com/geocoder89/taskapi/internal/db"
	httpx "github.com/geocoder89/taskapi/internal/http"
	"github.com/geocoder89/taskapi/internal/http/handlers"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/geocoder89/taskapi/internal/repo/postgres"
	"github.com/geocoder89/taskapi/internal/repo/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	startCtx, cancelStart := config.WithTimeout(10 * time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, observability.TracerConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	deps := httpx.Deps{
		Prom:  prom,
		Ready: map[string]handlers.Pinger{},
	}

	// storage backend
	var closeStore func()

	switch cfg.DBDriver {
	case config.DriverSQLite:
		sqlDB, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Error("sqlite open failed", "err", err, "path", cfg.SQLitePath)
			os.Exit(1)
		}
		if err := sqlite.Init(startCtx, sqlDB); err != nil {
			log.Error("sqlite schema failed", "err", err)
			os.Exit(1)
		}

		deps.Users = sqlite.NewUsersRepo(sqlDB, prom)
		deps.Tasks = sqlite.NewTasksRepo(sqlDB, prom)
		deps.Ready["db"] = handlers.PingFunc(sqlDB.PingContext)
		closeStore = func() { closeSQL(log, sqlDB) }

	default:
		pool, err := db.NewPool(startCtx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			log.Error("postgres connect failed", "err", err)
			os.Exit(1)
		}
		ensure := db.EnsureUsers
		if cfg.DBAutoMigrate {
			ensure = db.EnsureSchema
		}
		if err := ensure(startCtx, pool); err != nil {
			log.Error("postgres schema failed", "err", err)
			os.Exit(1)
		}

		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Tasks = postgres.NewTasksRepo(pool, prom)
		deps.Ready["db"] = pool
		closeStore = pool.Close
	}
	defer closeStore()

	// task list cache: redis when configured, in-process otherwise
	var store cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		redisStore := cache.NewRedis(rdb)
		if err := redisStore.Ping(startCtx); err != nil {
			log.Warn("redis unreachable at startup", "err", err, "addr", cfg.RedisAddr)
		}

		store = redisStore
		deps.Ready["redis"] = redisStore
	}
	if cfg.TasksCacheTTL > 0 {
		deps.TaskCache = cache.NewTaskList(store, cfg.TasksCacheTTL, prom)
	}

	// set up routers with the log
	router := httpx.NewRouter(log, deps, cfg)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "db_driver", cfg.DBDriver, "protect_task_writes", cfg.ProtectTaskWrites)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func closeSQL(log *slog.Logger, sqlDB *sql.DB) {
	if err := sqlDB.Close(); err != nil {
		log.Error("sqlite close failed", "err", err)
	}
}
