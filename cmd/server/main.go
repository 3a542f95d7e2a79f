package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apphubio/api/internal/app"
	"github.com/apphubio/api/internal/config"
	"github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/internal/infra/http/handler"
	"github.com/apphubio/api/internal/infra/http/routes"
	"github.com/apphubio/api/internal/infra/postgres"
	"github.com/apphubio/api/internal/infra/redis"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/validator"
)

var showRoutes = flag.Bool("routes", false, "Print all registered routes and exit")

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log := logger.NewDefault()
		log.Error("invalid configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	if cfg.AccessControl.Mode == config.ModeOpen {
		log.Warn("access control is in open mode, every active application is granted to everyone")
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", "error", err)
		return 1
	}

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	tokenStore, err := redis.NewTokenStore(redisClient, log)
	if err != nil {
		log.Error("failed to initialize token store", "error", err)
		return 1
	}

	accessCache, err := redis.NewCache[app.ResolvedAccess](redisClient, "access", cfg.AccessControl.SnapshotCacheTTL)
	if err != nil {
		log.Error("failed to initialize access cache", "error", err)
		return 1
	}

	// Repositories
	profileRepo := postgres.NewProfileRepository(db)
	appRepo := postgres.NewApplicationRepository(db)
	groupRepo := postgres.NewGroupRepository(db)
	permRepo := postgres.NewPermissionRepository(db)
	log.Info("repositories initialized")

	// Services. The access service doubles as the cache invalidator for
	// every mutation path.
	authService := app.NewAuthService(profileRepo, tokenStore, cfg.Auth, log)
	accessService := app.NewAccessService(profileRepo, appRepo, groupRepo, permRepo,
		cfg.AccessControl, log,
		app.WithAccessCache(accessCache),
	)
	profileService := app.NewProfileService(profileRepo, log,
		app.WithSessionRevoker(tokenStore),
		app.WithProfileAccessInvalidator(accessService),
	)
	applicationService := app.NewApplicationService(appRepo, log,
		app.WithApplicationAccessInvalidator(accessService),
	)
	groupService := app.NewGroupService(groupRepo, profileRepo, log,
		app.WithGroupAccessInvalidator(accessService),
		app.WithGroupApplicationChecker(applicationService),
	)
	permissionService := app.NewPermissionService(permRepo, profileRepo, log,
		app.WithPermissionAccessInvalidator(accessService),
		app.WithPermissionApplicationChecker(applicationService),
	)
	log.Info("services initialized")

	// Handlers
	v := validator.New()
	handlers := routes.Handlers{
		Health:      handler.NewHealthHandler(handler.WithDatabase(db), handler.WithRedis(redisClient)),
		Auth:        handler.NewAuthHandler(authService, v, log),
		Profile:     handler.NewProfileHandler(profileService, v, log),
		Dashboard:   handler.NewDashboardHandler(accessService, log),
		Application: handler.NewApplicationHandler(applicationService, accessService, v, log),
		Group:       handler.NewGroupHandler(groupService, v, log),
		Permission:  handler.NewPermissionHandler(permissionService, v, log),
	}

	server := http.NewServer(cfg, log)
	routes.Register(server.Router(), handlers, authService, log)

	if *showRoutes {
		http.PrintRoutes(os.Stdout, http.CollectRoutes(server.Router()))
		return 0
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

func initLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
