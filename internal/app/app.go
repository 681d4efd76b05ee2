package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/db"
	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/observability"
	"github.com/echolabs/twinsight-backend/internal/server"
	"github.com/echolabs/twinsight-backend/internal/sse"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	SSEHub   *sse.Hub

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "twinsight-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	dbService, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	sseHub := sse.NewHub(log)

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, sseHub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, sseHub)
	middlewareset := wireMiddleware(log, cfg)

	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:      cfg.AllowOrigins,
		AuthMiddleware:    middlewareset.Auth,
		InsightHandler:    handlerset.Insight,
		ConnectionHandler: handlerset.Connection,
		EventHandler:      handlerset.Event,
		ExtractionHandler: handlerset.Extraction,
		SSEHandler:        handlerset.SSE,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       sseHub,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background tracker loop. Safe to call once.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.PatternTracker != nil {
		a.Services.PatternTracker.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Markers != nil {
		if err := a.Services.Markers.Close(); err != nil {
			a.Log.Warn("Failed to close marker store", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("Failed to shut down tracing", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
