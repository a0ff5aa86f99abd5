package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-twin/internal/models"
)

// ErrUnitNotFound is returned when no record (or not exactly one) matched an id.
var ErrUnitNotFound = errors.New("unit not found")

// UnitCollection defines the persistence gateway for unit records.
type UnitCollection interface {
	FindUnitByID(ctx context.Context, id string) (*models.Unit, error)
	InsertUnit(ctx context.Context, unit models.Unit) (string, error)
	UpdateTelemetry(ctx context.Context, id string, coordinates models.Coordinate, speed, battery float64) error
	UpdateStatus(ctx context.Context, id string, status models.Status) error
	UpdateTripProgress(ctx context.Context, id string, distance float64) error
	AppendLogEntry(ctx context.Context, id string, entry models.Trip) error
	ListUnits(ctx context.Context) ([]models.Unit, error)
	ListUnitsByOwnerAndStatus(ctx context.Context, owner string, status models.Status) ([]models.Unit, error)
	ListUnitIDs(ctx context.Context) ([]string, error)
}

// CustomerCollection defines read access to rental customers.
type CustomerCollection interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
}
