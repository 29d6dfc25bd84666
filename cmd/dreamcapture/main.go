package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamcapture/backend/internal/auth"
	"github.com/dreamcapture/backend/internal/config"
	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/db"
	httpx "github.com/dreamcapture/backend/internal/http"
	"github.com/dreamcapture/backend/internal/jobs"
	"github.com/dreamcapture/backend/internal/oracle"
	"github.com/dreamcapture/backend/internal/resonance"
	"github.com/dreamcapture/backend/internal/stream"
	"github.com/dreamcapture/backend/internal/sweeper"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	oracleClient := oracle.NewHTTPClient(
		cfg.OracleBaseURL, cfg.OracleAPIKey,
		cfg.OracleTextModel, cfg.OracleImageModel,
		cfg.OracleTimeout,
	)
	hub := stream.NewHub()

	r := httpx.NewRouter(httpx.Deps{
		Config: cfg,
		DB:     gdb,
		JWT:    jwtSvc,
		Oracle: oracleClient,
		Hub:    hub,
		Log:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())

	contentSvc := &content.Service{
		DB:                gdb,
		MomentTTL:         cfg.MomentTTL,
		MaxDreamsPerDay:   cfg.MaxDreamsPerDay,
		MaxMomentsPerHour: cfg.MaxMomentsPerHour,
	}
	matcher := &resonance.Matcher{DB: gdb, Oracle: oracleClient, Log: logger}

	worker := &jobs.Worker{
		ID:      "worker-" + uuid.NewString()[:8],
		Repo:    &jobs.Repo{DB: gdb},
		Content: contentSvc,
		Matcher: matcher,
		Oracle:  oracleClient,
		Log:     logger,
	}
	go worker.Run(ctx)

	sw := &sweeper.Sweeper{DB: gdb, Interval: cfg.SweepInterval, Log: logger}
	go sw.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
