/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the order finance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start the balance audit scheduler
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the audit scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with defaults (SQLite at ./data/orderdesk.db, port 8080)
  ./server

  # Run with an in-memory database on a different port
  DATABASE_PATH=":memory:" PORT=3000 ./server

SEE ALSO:
  - config/config.go: Environment knobs
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantage/order-engine/api"
	"github.com/vantage/order-engine/config"
	"github.com/vantage/order-engine/logger"
	"github.com/vantage/order-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(api.Stores{
		Orders:    store,
		Accounts:  store,
		Records:   store,
		Credits:   store,
		Snapshots: store,
	}, log)

	scheduler := api.NewAuditScheduler(handler.Auditor, log)
	scheduler.CheckInterval = cfg.AuditInterval
	scheduler.Enabled = cfg.AuditEnabled
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("db", cfg.DatabasePath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
