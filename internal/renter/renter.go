package renter

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/db"
	"github.com/ukydev/fleet-twin/internal/models"
)

// RentalAPI is the part of the rental REST API the renter drives.
type RentalAPI interface {
	Login(ctx context.Context) error
	Rent(ctx context.Context, unitID, userID string) error
	Stop(ctx context.Context, unitID, userID string) error
}

// UnitReader reads unit records.
type UnitReader interface {
	ListUnits(ctx context.Context) ([]models.Unit, error)
	ListUnitsByOwnerAndStatus(ctx context.Context, owner string, status models.Status) ([]models.Unit, error)
}

// Options configure a Renter.
type Options struct {
	API           RentalAPI
	Units         UnitReader
	Customers     db.CustomerCollection
	City          string
	MinBalance    float64
	LowBattery    float64
	WatchInterval time.Duration
}

// Renter rents units once and then watches the trips it started.
type Renter struct {
	opts Options
}

// New creates a Renter.
func New(opts Options) *Renter {
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = 5 * time.Second
	}
	return &Renter{opts: opts}
}

// RentAll pairs the i-th customer with the i-th unit and rents every pair
// where the unit is available in the city and the customer can pay. It
// returns the number of rentals started.
func (r *Renter) RentAll(ctx context.Context) (int, error) {
	customers, err := r.opts.Customers.ListCustomers(ctx)
	if err != nil {
		return 0, err
	}
	units, err := r.opts.Units.ListUnits(ctx)
	if err != nil {
		return 0, err
	}

	rented := 0
	for i := 0; i < len(customers) && i < len(units); i++ {
		customer, u := customers[i], units[i]
		if u.Status != string(models.StatusAvailable) || u.Owner != r.opts.City || customer.Balance <= r.opts.MinBalance {
			continue
		}
		if err := r.opts.API.Rent(ctx, u.ID.Hex(), customer.ID.Hex()); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"unit_id": u.ID.Hex(),
				"user_id": customer.ID.Hex(),
			}).Warn("Failed to rent unit")
			continue
		}
		rented++
	}

	log.WithFields(log.Fields{
		"rented":    rented,
		"customers": len(customers),
		"units":     len(units),
	}).Info("Rental pass complete")
	return rented, nil
}

// StopFinished ends trips of in-use units that stopped moving or are
// running out of battery. It returns how many units were in use.
func (r *Renter) StopFinished(ctx context.Context) (int, error) {
	units, err := r.opts.Units.ListUnitsByOwnerAndStatus(ctx, r.opts.City, models.StatusInUse)
	if err != nil {
		return 0, err
	}
	log.WithField("in_use", len(units)).Debug("Watching rentals")

	for _, u := range units {
		if u.CurrentTrip == nil || u.CurrentTrip.UserID == "" {
			continue
		}
		if u.Speed != 0 && u.Battery > r.opts.LowBattery {
			continue
		}
		if err := r.opts.API.Stop(ctx, u.ID.Hex(), u.CurrentTrip.UserID); err != nil {
			log.WithError(err).WithField("unit_id", u.ID.Hex()).Warn("Failed to stop trip")
			continue
		}
		log.WithFields(log.Fields{
			"unit_id": u.ID.Hex(),
			"speed":   u.Speed,
			"battery": u.Battery,
		}).Info("Stopped trip")
	}
	return len(units), nil
}

// Run logs in, rents and then watches until no unit of the city is in use
// or ctx is cancelled.
func (r *Renter) Run(ctx context.Context) error {
	if err := r.opts.API.Login(ctx); err != nil {
		return err
	}
	if _, err := r.RentAll(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.opts.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			inUse, err := r.StopFinished(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to list units in use")
				continue
			}
			if inUse == 0 {
				log.Info("No units in use, rental simulation complete")
				return nil
			}
		}
	}
}
