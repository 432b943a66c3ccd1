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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	v1 "github.com/dmehra2102/prod-golang-projects/repdash/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/live"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/tracer"
)

const janitorInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "repdash: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}

	collector := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	// Root context for background workers.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store := session.NewStore(session.NewGormRepository(db, auth.NewSealer(cfg.JWT.Secret)), cfg.JWT.SessionTTL, log)
	go store.RunJanitor(ctx, janitorInterval)

	api := upstream.New(cfg.Upstream, store, log, upstream.WithObserver(collector))

	var publisher service.AuditPublisher
	var kafka *events.AuditPublisher
	if cfg.Kafka.Enabled() {
		kafka, err = events.NewAuditPublisher(cfg.Kafka, log)
		if err != nil {
			return err
		}
		publisher = kafka
	}
	audit := service.NewAuditService(repository.NewAuditRepository(db), publisher, collector, log)

	lists := service.NewLists(api, cfg.ListView, collector, audit, log)
	forms := service.NewForms(api, audit, lists.Notify, log)

	hub := live.NewHub(collector.LiveConnections, log)
	lists.OnChange(hub.Notify)
	go hub.Run(ctx)

	router := v1.NewServer(v1.Deps{
		Auth:      service.NewAuthService(api, store, auth.NewJWTManager(cfg.JWT), audit, log),
		Lists:     lists,
		Forms:     forms,
		Reference: service.NewReferenceService(api, store, log),
		Dashboard: service.NewDashboardService(lists),
		Hub:       hub,
		Metrics:   collector,
		Cookie:    cfg.JWT,
		RateLimit: cfg.RateLimit,
		Log:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	srv.RegisterOnShutdown(router.StopLive)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
		if runErr != nil {
			log.Error("server failed", zap.Error(runErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if err := router.WaitLive(shutdownCtx); err != nil {
		log.Warn("live views still open at shutdown", zap.Error(err))
	}
	stop()

	audit.Shutdown()
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			log.Error("closing kafka producer", zap.Error(err))
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("tracer shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server stopped")
	return runErr
}
