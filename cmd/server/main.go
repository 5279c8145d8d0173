package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/seed"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth/db"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/ai"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/config"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/presence"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := config.ParseFlags()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := slogging.Initialize(cfg.LoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := slogging.Get()
	defer func() { _ = logger.Close() }()

	if err := run(cfg); err != nil {
		logger.Error("Server stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config) error {
	logger := slogging.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbManager := db.NewManager()
	defer func() {
		if err := dbManager.Close(); err != nil {
			logger.Warn("Error closing database connections: %v", err)
		}
	}()

	if err := dbManager.InitGorm(gormConfig(cfg.Database)); err != nil {
		return err
	}
	if err := dbManager.InitRedis(db.RedisConfig{
		Addr:     cfg.Database.Redis.Addr(),
		Password: cfg.Database.Redis.Password,
		DB:       cfg.Database.Redis.DB,
	}); err != nil {
		return err
	}

	if err := dbManager.Gorm().AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	stores := api.NewGormStores(dbManager.Gorm().DB())

	if cfg.Database.Type == config.DatabaseTypeSQLite {
		if err := seed.SeedDatabase(ctx, stores.Users, cfg.Auth.DevSeedUser); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
	}

	keyManager, err := auth.NewJWTKeyManager(cfg.Auth.JWT.Secret, cfg.Auth.JWT.SigningMethod)
	if err != nil {
		return fmt.Errorf("failed to create JWT key manager: %w", err)
	}
	redisClient := dbManager.Redis().GetClient()
	authService := auth.NewService(
		keyManager,
		auth.NewRefreshStore(redisClient, cfg.Auth.JWT.RefreshTokenTTL),
		auth.NewTokenBlacklist(redisClient),
		cfg.Auth.JWT.AccessTokenTTL,
	)
	cookies := auth.CookieSettings{
		Domain:     cfg.Auth.Cookie.Domain,
		Secure:     cfg.Auth.Cookie.Secure,
		AccessTTL:  cfg.Auth.JWT.AccessTokenTTL,
		RefreshTTL: cfg.Auth.JWT.RefreshTokenTTL,
	}

	llm, err := ai.NewModel(cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create AI model: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewGatewayMetrics(registry)

	gateway := api.NewGateway(api.GatewayOptions{
		Stores:         stores,
		Presence:       presence.NewService(presence.NewStateStore(), stores.UserSessions, stores.Sessions),
		AI:             ai.NewService(llm, stores.AiUsage, cfg.AI.RequestTimeout),
		Tokens:         authService,
		Cookies:        cookies,
		WebSocket:      cfg.WebSocket,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        metrics,
	})

	router := newRouter(routerDeps{
		gateway:   gateway,
		auth:      authService,
		cookies:   cookies,
		databases: dbManager,
		gatherer:  registry,
		isDev:     cfg.Logging.IsDev,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := gateway.Shutdown(shutdownCtx); err != nil {
			logger.Warn("WebSocket connections did not drain: %v", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func gormConfig(cfg config.DatabaseConfig) db.GormConfig {
	if cfg.Type == config.DatabaseTypeSQLite {
		return db.GormConfig{Type: db.DatabaseTypeSQLite, SQLitePath: cfg.SQLite.Path}
	}
	return db.GormConfig{Type: db.DatabaseTypePostgres, PostgresDSN: cfg.Postgres.DSN()}
}

// readinessTimeout bounds the /healthz database ping
const readinessTimeout = 2 * time.Second
