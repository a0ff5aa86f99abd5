// Command unit runs the twin of a single unit record, creating a new record
// first when no id is given.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/db"
	"github.com/ukydev/fleet-twin/internal/events"
	"github.com/ukydev/fleet-twin/internal/logging"
	"github.com/ukydev/fleet-twin/internal/route"
	"github.com/ukydev/fleet-twin/internal/unit"
)

func main() {
	id := flag.String("id", "", "id of the unit record to simulate (empty creates a new unit)")
	flag.Parse()

	cfg := config.Load()
	if err := logging.Configure(cfg.Log); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *id); err != nil {
		if errors.Is(err, unit.ErrUnitNotFound) {
			log.WithField("unit_id", *id).Error("No such unit")
			os.Exit(1)
		}
		log.WithError(err).Fatal("Unit stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, id string) error {
	stores, err := db.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	publisher, err := events.New(cfg.Events)
	if err != nil {
		return err
	}
	defer publisher.Close()

	deps := unit.Deps{
		Store:     stores.Units,
		Publisher: publisher,
		Settings:  unit.NewSettings(cfg),
	}
	if engine, err := route.NewEngine(cfg.Routing, cfg.Simulation.RoutePadding); err != nil {
		log.WithError(err).Warn("Routing disabled")
	} else {
		deps.Planner = engine
	}

	var u *unit.Unit
	if id == "" {
		u, err = unit.Create(ctx, deps)
	} else {
		u, err = unit.Load(ctx, deps, id)
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"unit_id": u.ID(),
		"tick":    cfg.Simulation.TickInterval,
	}).Info("Starting unit simulation")

	u.Run(ctx, func(id string) {
		log.WithField("unit_id", id).Info("Unit record removed, stopping")
	})
	return nil
}
