package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	httphandlers "pixpull/internal/interfaces/http"
	"pixpull/internal/shared/config"
	"pixpull/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Message streams
	mux.HandleFunc("/api/pix/{ispb}/stream/start", deps.StreamHandler.HandleStreamStart)
	mux.HandleFunc("/api/pix/{ispb}/stream/{streamId}", deps.StreamHandler.HandleStream)

	// Test utilities
	mux.HandleFunc("/api/util/msgs/{ispb}/{number}", deps.UtilHandler.HandleGenerateMessages)

	// Prometheus metrics (when telemetry is enabled)
	if cfg.Telemetry.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(mux))
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	return handler
}
