// Command hive runs one twin per unit record, picks up new records as they
// appear and serves the fleet status API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/auth"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/db"
	"github.com/ukydev/fleet-twin/internal/events"
	"github.com/ukydev/fleet-twin/internal/fleet"
	"github.com/ukydev/fleet-twin/internal/handlers"
	"github.com/ukydev/fleet-twin/internal/logging"
	"github.com/ukydev/fleet-twin/internal/middleware"
	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/route"
	"github.com/ukydev/fleet-twin/internal/unit"
)

func main() {
	issueRole := flag.String("issue-token", "", "print an operator token with this role (viewer, operator, admin) and exit")
	subject := flag.String("subject", "operator", "subject of the issued token")
	flag.Parse()

	cfg := config.Load()
	if err := logging.Configure(cfg.Log); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}
	authService := auth.NewService(cfg.HTTP.JWTSecret, cfg.HTTP.TokenExpiry)

	if *issueRole != "" {
		token, err := authService.GenerateToken(*subject, models.Role(*issueRole))
		if err != nil {
			log.WithError(err).Fatal("Failed to issue token")
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, authService); err != nil {
		log.WithError(err).Fatal("Hive stopped")
	}
	log.Info("Hive stopped")
}

func run(ctx context.Context, cfg *config.Config, authService *auth.Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stores, err := db.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStores(stores)

	publisher, err := events.New(cfg.Events)
	if err != nil {
		return err
	}
	defer publisher.Close()

	deps := unit.Deps{
		Store:     stores.Units,
		Planner:   newPlanner(cfg),
		Publisher: publisher,
		Settings:  unit.NewSettings(cfg),
	}
	reconciler := fleet.NewReconciler(fleet.Options{
		Store:          stores.Units,
		Load:           fleet.LoadUnits(deps),
		Create:         fleet.CreateUnits(deps),
		Publisher:      publisher,
		PollInterval:   cfg.Simulation.PollInterval,
		ReportInterval: cfg.Simulation.ReportInterval,
		StoreTimeout:   cfg.Store.Timeout,
	})

	if _, err := reconciler.Seed(ctx, cfg.Simulation.NumberOfUnits); err != nil {
		return fmt.Errorf("failed to seed units: %w", err)
	}

	server := newServer(cfg.HTTP.Port, reconciler, authService)
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTP.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reconciler.RunReporter(ctx)
	}()

	log.WithFields(log.Fields{
		"tick":   cfg.Simulation.TickInterval,
		"poll":   cfg.Simulation.PollInterval,
		"report": cfg.Simulation.ReportInterval,
	}).Info("Hive started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}
	wg.Wait()
	return runErr
}

// newPlanner returns nil when routing is not configured; units then stand
// still during trips.
func newPlanner(cfg *config.Config) unit.Planner {
	engine, err := route.NewEngine(cfg.Routing, cfg.Simulation.RoutePadding)
	if err != nil {
		log.WithError(err).Warn("Routing disabled")
		return nil
	}
	return engine
}

func newServer(port string, view handlers.FleetView, authService *auth.Service) *http.Server {
	status := handlers.NewStatusHandler(view)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           status.Routes(middleware.NewAuthMiddleware(authService), middleware.NewRateLimitMiddleware()),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func closeStores(stores *db.Stores) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stores.Close(ctx); err != nil {
		log.WithError(err).Warn("Failed to close store")
	}
}
