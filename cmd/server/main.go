/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave ledger server: loads configuration, wires
  the CSV source, refresh scheduler, run store, metrics and HTTP API, and
  handles graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, .env, YAML, LEAVE_* environment)
  3. Build logger and metrics
  4. Open the run store (SQLite when db_path is set, memory otherwise)
  5. Start the refresh scheduler (startup refresh, polling, file watch)
  6. Start the HTTP server

COMMAND-LINE FLAGS:
  -config  YAML config file (default: $LEAVE_CONFIG)
  -addr    HTTP listen address, overrides config
  -csv     CSV extract path, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for an in-flight refresh
  4. Close database connection

EXAMPLES:
  # Serve an HR extract with history kept in SQLite
  ./server -csv=./data/vacation.csv -db=./data/leave.db

  # Configure from a file, override the port
  ./server -config=leave.yaml -addr=:3000

SEE ALSO:
  - config/loader.go: Configuration layering
  - api/server.go: Router configuration
  - api/scheduler.go: Refresh scheduler
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-ledger/api"
	"github.com/warp/leave-ledger/config"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/generic/store"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/metrics"
	"github.com/warp/leave-ledger/store/sqlite"
	"github.com/warp/leave-ledger/timeoff"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leave-ledger: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	csvPath := flag.String("csv", "", "CSV extract path (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *csvPath != "" {
		cfg.CSVPath = *csvPath
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	log, err := logger.New(cfg.LoggerOptions())
	if err != nil {
		return err
	}

	m := metrics.NewManager()

	// Initialize store
	var runs generic.RunStore = store.NewMemory()
	if cfg.DBPath != "" {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		runs = db
	}

	source := timeoff.NewSource(cfg.CSVPath, timeoff.NewParser(cfg.ParserConfig()))

	scheduler := api.NewRefreshScheduler(source, runs, log, m)
	scheduler.PollInterval = cfg.PollInterval
	scheduler.Watch = cfg.Watch
	scheduler.Archive = cfg.Archive
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	level, _ := logger.ParseLevel(cfg.LogLevel)
	handler := api.NewHandler(source, runs, scheduler, log, m)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins:    cfg.CORSOrigins,
		AccessLogLevel: level,
		Metrics:        m,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting",
			logger.String("addr", cfg.Addr),
			logger.String("csv", cfg.CSVPath),
			logger.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(context.Background(), "server stopped")
	return nil
}
