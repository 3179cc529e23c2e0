package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agents-backend/infrastructure/bootstrap"
	"agents-backend/infrastructure/config"
	"agents-backend/infrastructure/di"
	"agents-backend/interfaces/http/rest"
	"agents-backend/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	environment := getEnv("ENVIRONMENT", "development")

	logger, err := initLogger(environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load the settings manifest
	loader := config.NewLoader(config.WithLogger(logger))
	settings, err := loader.Load()
	if err != nil {
		logger.Fatal("Failed to load settings", zap.Error(err))
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)

	// Tracing, when an OTLP endpoint is configured
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		tracerProvider, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: "agents-backend",
			Environment: environment,
			Endpoint:    endpoint,
		})
		if err != nil {
			logger.Warn("Failed to initialize tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Tracer shutdown error", zap.Error(err))
				}
			}()
		}
	}

	// Build the application container from the manifest
	container, err := di.Build(ctx, settings, bootstrap.NewTypeRegistry(), logger, metrics)
	if err != nil {
		logger.Fatal("Failed to build container", zap.Error(err))
	}

	// Setup routes
	router := rest.NewRouter(
		container,
		metrics,
		promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		logger,
	)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         getEnv("SERVER_ADDRESS", ":8080"),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // streaming responses hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Dispose long-lived components
	container.Shutdown(shutdownCtx)

	log.Println("Server stopped")
}

// initLogger builds the zap logger for the environment, honoring LOG_LEVEL.
func initLogger(environment string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var parsed zapcore.Level
		if err := parsed.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	return cfg.Build()
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
