package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/memory"
	"clipforge/internal/metrics"
	"clipforge/internal/middleware"
	"clipforge/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	if err := config.CheckToolchain(); err != nil {
		logging.Fatal("Toolchain error: %v", err)
	}

	ctx := context.Background()
	store, err := history.Open(ctx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to open job history: %v", err)
	}
	defer store.Close()

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.BuildInfo.WithLabelValues(startup.Version, startup.Commit, startup.BuildTime).Set(1)
		go serveMetrics(config.MetricsPort)
	}

	server := api.NewServer(config, store)

	router := mux.NewRouter()
	server.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	handler := middleware.Logger(middleware.LoggingConfig{
		LogHealthChecks: config.LogHealthChecks,
	})(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // progress polling during long renders
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, store)

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

func serveMetrics(port string) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, m); err != nil {
		logging.Error("Metrics server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, store *history.Store) {
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

	if err := store.Close(); err != nil {
		logging.Warn("Job history close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Job history closed")
	}

	startup.LogShutdownComplete()
}
