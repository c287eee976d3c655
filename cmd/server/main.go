/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load optional YAML config
  2. Initialize SQLite store
  3. Wire domain services (booking, attendance, leave)
  4. Configure HTTP router
  5. Start the expiry sweeper and the server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional YAML config file
  -addr    Listen address, overrides config (default from config: :8080)
  -db      SQLite database path, overrides config
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Stop the sweeper and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/bookings.db"

  # Run with a config file
  ./server -config=./booking.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Expiry sweeper
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/booking-engine/api"
	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/config"
	"github.com/warp/booking-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire services
	bookings := &booking.Service{
		Store:   store,
		Catalog: store,
		Users:   store,
	}
	reconciler := &booking.ExpiryReconciler{Store: store}
	attendance := &approval.AttendanceService{Store: store, Directory: store}
	leave := &approval.LeaveService{Store: store, Directory: store}

	handler := &api.Handler{
		Bookings:   bookings,
		Reconciler: reconciler,
		Attendance: attendance,
		Leave:      leave,
	}

	// Background expiry sweep
	sweeper := api.NewExpirySweeper(reconciler)
	sweeper.CheckInterval = cfg.Sweeper.Interval.Std()
	sweeper.Enabled = cfg.Sweeper.Enabled
	sweeper.Start()
	defer sweeper.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
