package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/api"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/config"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/face"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logOptions := []config.LoggerOption{config.WithLevel(cfg.LogLevel)}
	if cfg.LogFile != "" {
		logFile := config.NewRotatingFile(cfg.LogFile)
		defer logFile.Close()
		logOptions = append(logOptions, config.WithFile(logFile))
	}
	logger := config.NewLogger(cfg.Environment, logOptions...)
	slog.SetDefault(logger)

	logger.Info("starting InsightFace API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("analyzer", cfg.Analyzer),
		slog.String("inference_backend", cfg.InferenceBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Face analyzer (one per process)
	faceAnalyzer, selection, err := face.NewFaceAnalyzer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create face analyzer: %w", err)
	}

	cpuFeatures := execprovider.CPUFeatures()
	logger.Info("inference runtime ready",
		slog.String("analyzer", faceAnalyzer.Name()),
		slog.String("backend", selection.Backend),
		slog.Any("requested_providers", selection.Requested),
		slog.Any("available_providers", selection.Available),
		slog.String("active_provider", selection.Active),
		slog.Any("cpu_features", cpuFeatures),
	)

	detectionService := service.NewDetectionService(faceAnalyzer, logger, audit.NewSlogLogger(logger))

	// Skipped when shutdown times out: handlers may still be inside the analyzer
	closeAnalyzer := true
	defer func() {
		if !closeAnalyzer {
			logger.Warn("requests still running, leaving analyzer open")
			return
		}
		if err := detectionService.Close(); err != nil {
			logger.Error("failed to close analyzer", slog.Any("error", err))
		}
	}()

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		DetectionService: detectionService,
		Selection:        selection,
		CPUFeatures:      cpuFeatures,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
		closeAnalyzer = false
	}

	logger.Info("server stopped")

	return nil
}
