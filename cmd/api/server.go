package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"pixpull/internal/interfaces/sweeper"
	"pixpull/internal/shared/config"
)

// StartServer creates the HTTP server and starts it in a goroutine.
func StartServer(handler http.Handler, cfg *config.Config) *http.Server {
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		// ReadTimeout stays short; WriteTimeout must cover a full
		// long-poll window plus response writing.
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Stream.MaxWait + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	return srv
}

// GracefulShutdown stops the HTTP server and the sweeper, waiting for
// in-flight long polls to drain.
func GracefulShutdown(srv *http.Server, sweep *sweeper.Sweeper, timeout time.Duration) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if sweep != nil {
		sweep.Shutdown(timeout)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	log.Println("Server stopped")
}
