package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jobdesk/jobdesk/internal/auth"
	"github.com/jobdesk/jobdesk/internal/config"
	"github.com/jobdesk/jobdesk/internal/database"
	"github.com/jobdesk/jobdesk/internal/guard"
	"github.com/jobdesk/jobdesk/internal/httpx"
	"github.com/jobdesk/jobdesk/internal/role"
	"github.com/jobdesk/jobdesk/internal/token"
	"github.com/jobdesk/jobdesk/internal/user"
	"go.uber.org/zap"
	"moul.io/chizap"
)

func main() {
	// init logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	// load config (reads .env when present)
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// load database
	db, err := database.Init(cfg.DbConfig)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// run migrations
	database.SetMigrationLogger(logger)
	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// optional one-off bootstrap (INIT_DB=true)
	if err := database.Seed(context.Background(), db, logger); err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}

	// repositories and services
	userRepo := user.NewUserRepo(db, logger)
	roleRepo := role.NewRoleRepo(db, logger)
	tokenService := token.NewTokenService(logger, cfg.JWTConfig)
	authService := auth.NewAuthService(userRepo, roleRepo, tokenService, logger)
	authHandler := auth.NewAuthenticationHandler(authService, cfg.CookieConfig, logger)

	// route metadata consulted by the authorizer; patterns mirror the mounted
	// routes one-to-one
	table := guard.NewTable()
	table.Register(http.MethodGet, "/api/v1/healthz", guard.Meta{Public: true})
	table.Register(http.MethodPost, "/api/v1/auth/sign-in", guard.Meta{Public: true})
	table.Register(http.MethodPost, "/api/v1/auth/sign-up", guard.Meta{Public: true})
	table.Register(http.MethodGet, "/api/v1/auth/refresh-token", guard.Meta{Public: true})
	table.Register(http.MethodGet, "/api/v1/auth/account", guard.Meta{})
	table.Register(http.MethodPost, "/api/v1/auth/sign-out", guard.Meta{})

	g := guard.New(table, tokenService, roleRepo, logger)

	// router
	r := chi.NewRouter()
	r.Use(chizap.New(logger, &chizap.Opts{
		WithReferer:   true,
		WithUserAgent: true,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(g.Middleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Mount("/auth", authHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.AppConfig.Port,
		Handler:      r,
		ReadTimeout:  cfg.AppConfig.ReadTimeout,
		WriteTimeout: cfg.AppConfig.WriteTimeout,
		IdleTimeout:  cfg.AppConfig.IdleTimeout,
	}

	go func() {
		logger.Info("application started", zap.String("port", cfg.AppConfig.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down cleanly", zap.Error(err))
	}
	logger.Info("application stopped")
}
