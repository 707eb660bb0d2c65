package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/data/db"
	"github.com/yungbote/auditbridge-backend/internal/http"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  *Clients
	Services Services
	Router   *gin.Engine
	Metrics  *observability.Metrics

	shutdownOTel func(context.Context) error
}

// New loads configuration and connects to Postgres. Backends are wired
// separately by Wire so that migrate and seed commands need no API keys.
func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := db.NewPostgresService(log, db.PostgresConfig{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Name:         cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()

	return &App{
		Log:   log,
		DB:    theDB,
		Cfg:   cfg,
		Repos: wireRepos(theDB, log),
	}, nil
}

func (a *App) Migrate() error {
	a.Log.Info("Running auto-migrations")
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return fmt.Errorf("postgres automigrate: %w", err)
	}
	return nil
}

// Wire builds clients, services, the job worker and the HTTP router.
func (a *App) Wire(ctx context.Context) error {
	a.Metrics = observability.Init(a.Log, a.Cfg.Telemetry.MetricsEnabled)
	a.shutdownOTel = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		Enabled:     a.Cfg.Telemetry.OtelEnabled,
		ServiceName: a.Cfg.Telemetry.ServiceName,
		Environment: a.Cfg.Environment,
		Endpoint:    a.Cfg.Telemetry.OtelEndpoint,
		Headers:     a.Cfg.Telemetry.OtelHeaders,
		Insecure:    a.Cfg.Telemetry.OtelInsecure,
		SampleRatio: a.Cfg.Telemetry.OtelSampleRate,
	})

	clients, err := wireClients(a.Log, a.Cfg)
	if err != nil {
		return err
	}
	a.Clients = clients

	serviceset, err := wireServices(a.DB, a.Log, a.Cfg, a.Repos, clients, a.Metrics)
	if err != nil {
		return err
	}
	a.Services = serviceset

	handlerset := wireHandlers(a.Log, a.Cfg, a.DB, clients, serviceset)
	a.Router = wireRouter(a.Log, a.Cfg, handlerset, a.Metrics)
	return nil
}

// StartWorker runs the job worker and queue depth collector until ctx ends.
func (a *App) StartWorker(ctx context.Context) error {
	if a == nil || a.Services.JobWorker == nil {
		return fmt.Errorf("app not wired")
	}
	if err := a.Services.Media.AssertReady(ctx); err != nil {
		// Text documents still work without ffmpeg and pandoc.
		a.Log.Warn("media tools missing; audio, video and office documents will fail", "error", err)
	}
	a.Services.JobWorker.Start(ctx)
	a.Metrics.StartJobQueueCollector(ctx, a.Log, 15*time.Second, func(ctx context.Context) (map[string]int64, error) {
		return a.Repos.JobRun.CountByStatus(dbctx.Context{Ctx: ctx})
	})
	if addr := a.Cfg.Telemetry.MetricsAddr; addr != "" {
		a.Metrics.StartServer(ctx, a.Log, addr)
	}
	return nil
}

// Serve blocks serving HTTP until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return http.NewServer(a.Log, a.Router).Run(ctx, ":"+a.Cfg.Port)
}

// SeedCriteria loads a criteria framework file into the base criteria set.
func (a *App) SeedCriteria(ctx context.Context, path string) (services.SeedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return services.SeedResult{}, fmt.Errorf("open framework: %w", err)
	}
	defer f.Close()
	sections, err := services.LoadFramework(f)
	if err != nil {
		return services.SeedResult{}, err
	}
	criteria := services.NewCriterionService(a.DB, a.Log, a.Repos.Criterion)
	return criteria.Seed(dbctx.Context{Ctx: ctx}, sections)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
