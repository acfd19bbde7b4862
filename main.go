package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-manager/internal/database"
	"media-manager/internal/events"
	"media-manager/internal/handlers"
	"media-manager/internal/logging"
	"media-manager/internal/middleware"
	"media-manager/internal/optimizer"
	"media-manager/internal/startup"
	"media-manager/internal/storage"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	ctx := context.Background()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Keep db pool metrics fresh
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		for range ticker.C {
			db.UpdateDBMetrics()
		}
	}()

	// Initialize libvips for the optimizer; falls back to pure-Go codecs
	// when unavailable.
	if err := optimizer.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using fallback encoders: %v", err)
	}
	defer optimizer.ShutdownVips()

	// Object storage (optional)
	var store storage.ObjectStore
	if config.StorageEnabled {
		client, err := storage.New(ctx, config.Storage)
		if err != nil {
			logging.Fatal("Failed to connect to object storage: %v", err)
		}
		store = client
	} else {
		logging.Warn("Object storage disabled (MINIO_ENDPOINT not set); uploads are unavailable")
	}

	// Event publishing (optional)
	var publisher *events.Publisher
	if config.NATSURL != "" {
		publisher, err = events.Connect(config.NATSURL)
		if err != nil {
			logging.Fatal("Failed to connect to NATS: %v", err)
		}
	}

	// Initialize handlers and router
	h := handlers.New(db, store, publisher, config)
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	// Middleware chain: metrics innermost so it sees final status codes.
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics served on their own port so they stay off the public API.
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, publisher)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, publisher *events.Publisher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	publisher.Close()
	startup.LogShutdownStepComplete("Event publisher drained")

	startup.LogShutdownComplete()
}
