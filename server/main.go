package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haasonsaas/limitd/pkg/config"
	"github.com/haasonsaas/limitd/pkg/limiter"
	"github.com/haasonsaas/limitd/pkg/telemetry"
)

var (
	configPath = flag.String("config", "limitd.yaml", "Config file path")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Database path (overrides config)")
	Version    = "dev"
)

// App ties the engine to its HTTP surface and collaborators.
type App struct {
	db      *gorm.DB
	limits  *limiter.Service
	hub     *Hub
	metrics *telemetry.Metrics
	archive *ViolationArchive
	logger  zerolog.Logger
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("limitd server starting")
	gin.SetMode(gin.ReleaseMode)

	if cfg.Tracing.Enabled {
		provider, err := telemetry.SetupTracing(context.Background(), "limitd", Version,
			cfg.Tracing.Endpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to set up tracing")
		}
		defer provider.Shutdown(context.Background())
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.AutoMigrate(&PolicyRecord{}, &ViolationRecord{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate schema")
	}

	app, err := newApp(cfg, db, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build server")
	}

	go app.hub.Run()
	stopCleanup := app.limits.StartCleanup(time.Duration(cfg.Cleanup.IntervalS) * time.Second)
	defer stopCleanup()

	logger.Info().Str("listen", cfg.Listen).Msg("Listening")
	if err := app.router().Run(cfg.Listen); err != nil {
		logger.Fatal().Err(err).Msg("Server exited")
	}
}

// newApp wires the engine, persistence, hub, and metrics. The persisted
// policy wins over the config default so a restart resumes enforcement
// as last administered.
func newApp(cfg *config.ServerConfig, db *gorm.DB, logger zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	store := limiter.NewStore()
	service := limiter.NewService(store, logger)

	pol := cfg.Policy
	if db != nil {
		if saved, err := loadPolicyRecord(db); err != nil {
			logger.Warn().Err(err).Msg("Failed to load persisted policy, using config default")
		} else if saved != nil {
			pol = *saved
		}
	}
	if err := service.SetPolicy(pol); err != nil {
		return nil, err
	}

	app := &App{
		db:      db,
		limits:  service,
		hub:     NewHub(logger),
		metrics: telemetry.NewMetrics(reg, func() float64 {
			return float64(service.ActiveClients())
		}),
		logger: logger,
	}
	if db != nil {
		app.archive = NewViolationArchive(db, 24*time.Hour, logger)
	}

	service.SetObserver(func(ev limiter.Event) {
		app.metrics.RecordDecision(ev.Decision.Allowed)
		app.hub.Broadcast(ev)
		if ev.Violation != nil && app.archive != nil {
			app.archive.Record(*ev.Violation)
		}
	})

	return app, nil
}

func (app *App) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(withRequestContext(app.logger))

	r.POST("/v1/check", rateLimitMiddleware(app), app.handleCheck)

	r.GET("/v1/stats", app.handleStats)
	r.GET("/v1/clients", app.listClients)
	r.POST("/v1/clients/:id/block", app.blockClient)
	r.DELETE("/v1/clients/:id", app.removeClient)
	r.GET("/v1/violations", app.listViolations)
	r.GET("/v1/policy", app.getPolicy)
	r.PUT("/v1/policy", app.updatePolicy)
	r.GET("/v1/ws", serveWS(app.hub))
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))
	r.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "version": Version})
	})

	return r
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.JSON {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
