package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-audit/internal/application"
	appaudit "github.com/bryanwahyu/automaton-audit/internal/application/audit"
	"github.com/bryanwahyu/automaton-audit/internal/config"
	"github.com/bryanwahyu/automaton-audit/internal/infra/generator"
	"github.com/bryanwahyu/automaton-audit/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-audit/internal/infra/reportclient"
	"github.com/bryanwahyu/automaton-audit/internal/logging"
	"github.com/bryanwahyu/automaton-audit/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// report service client
	reports := reportclient.New(cfg.Report.ServiceURL, cfg.Report.Timeout)

	// init service
	svc := appaudit.NewService(appaudit.Config{
		Simulator: appaudit.SimulatorConfig{
			Duration: cfg.Analysis.Duration,
			Interval: cfg.Analysis.Interval,
			Step:     cfg.Analysis.Step,
			Ceiling:  cfg.Analysis.Ceiling,
		},
		Extensions:  cfg.Upload.Extensions,
		SessionTTL:  cfg.Sessions.TTL,
		MaxSessions: cfg.Sessions.Max,
	}, generator.NewRandom(), reports, application.SystemClock{}, middleware.Recorder{}, logger)
	defer svc.Close()

	go svc.RunJanitor(ctx, cfg.Sessions.SweepInterval)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Stop()

	// init router
	handler := httpserver.NewRouter(svc, httpserver.Options{
		Log:            logger,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Limiter:        limiter,
		Checkers: map[string]middleware.HealthChecker{
			"report_service": middleware.CheckFunc(reports.Ping),
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Report.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("auditor listening",
			zap.String("addr", addr),
			zap.String("report_service", cfg.Report.ServiceURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")
	cancel()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
