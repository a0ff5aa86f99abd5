// Command renter rents available units to customers through the rental API
// and returns them once they stop or run low on battery.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/db"
	"github.com/ukydev/fleet-twin/internal/logging"
	"github.com/ukydev/fleet-twin/internal/renter"
)

func main() {
	cfg := config.Load()
	if err := logging.Configure(cfg.Log); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Renter stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
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

	log.WithFields(log.Fields{
		"api":         cfg.Renter.APIURL,
		"city":        cfg.Simulation.City,
		"min_balance": cfg.Renter.MinBalance,
	}).Info("Starting rental simulation")

	r := renter.New(renter.Options{
		API:           renter.NewClient(cfg.Renter),
		Units:         stores.Units,
		Customers:     stores.Customers,
		City:          cfg.Simulation.City,
		MinBalance:    cfg.Renter.MinBalance,
		LowBattery:    cfg.Simulation.LowBatteryThreshold,
		WatchInterval: cfg.Renter.WatchInterval,
	})
	return r.Run(ctx)
}
