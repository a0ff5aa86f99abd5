package db

import (
	"context"
	"sort"
	"sync"

	"github.com/ukydev/fleet-twin/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUnitCollection is an in-process UnitCollection with the same
// matching semantics as MongoUnitCollection.
type MemoryUnitCollection struct {
	mu    sync.RWMutex
	units map[string]models.Unit
}

// NewMemoryUnitCollection creates an empty collection.
func NewMemoryUnitCollection() *MemoryUnitCollection {
	return &MemoryUnitCollection{units: make(map[string]models.Unit)}
}

func cloneUnit(u models.Unit) models.Unit {
	if u.CurrentTrip != nil {
		trip := *u.CurrentTrip
		u.CurrentTrip = &trip
	}
	u.Log = append([]models.Trip(nil), u.Log...)
	return u
}

// FindUnitByID returns a copy of the stored unit.
func (c *MemoryUnitCollection) FindUnitByID(_ context.Context, id string) (*models.Unit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.units[id]
	if !ok {
		return nil, ErrUnitNotFound
	}
	out := cloneUnit(u)
	return &out, nil
}

// InsertUnit stores a unit, assigning an id when missing.
func (c *MemoryUnitCollection) InsertUnit(_ context.Context, unit models.Unit) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if unit.ID.IsZero() {
		unit.ID = primitive.NewObjectID()
	}
	c.units[unit.ID.Hex()] = cloneUnit(unit)
	return unit.ID.Hex(), nil
}

// Delete removes a unit, as the rental system's admin would.
func (c *MemoryUnitCollection) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.units, id)
}

// Mutate applies fn to a stored unit; used to play the external actor.
func (c *MemoryUnitCollection) Mutate(id string, fn func(u *models.Unit)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.units[id]
	if !ok {
		return ErrUnitNotFound
	}
	fn(&u)
	c.units[id] = cloneUnit(u)
	return nil
}

// UpdateTelemetry sets coordinates, speed and battery.
func (c *MemoryUnitCollection) UpdateTelemetry(_ context.Context, id string, coordinates models.Coordinate, speed, battery float64) error {
	return c.Mutate(id, func(u *models.Unit) {
		u.Coordinates = coordinates
		u.Speed = speed
		u.Battery = battery
	})
}

// UpdateStatus sets the status.
func (c *MemoryUnitCollection) UpdateStatus(_ context.Context, id string, status models.Status) error {
	return c.Mutate(id, func(u *models.Unit) {
		u.Status = string(status)
	})
}

// UpdateTripProgress sets the current trip distance when a trip is present.
func (c *MemoryUnitCollection) UpdateTripProgress(_ context.Context, id string, distance float64) error {
	return c.Mutate(id, func(u *models.Unit) {
		if u.CurrentTrip != nil {
			u.CurrentTrip.Distance = distance
		}
	})
}

// AppendLogEntry appends a closed trip to the log.
func (c *MemoryUnitCollection) AppendLogEntry(_ context.Context, id string, entry models.Trip) error {
	return c.Mutate(id, func(u *models.Unit) {
		u.Log = append(u.Log, entry)
	})
}

func (c *MemoryUnitCollection) filter(keep func(u models.Unit) bool) []models.Unit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	units := []models.Unit{}
	for _, u := range c.units {
		if keep(u) {
			units = append(units, cloneUnit(u))
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID.Hex() < units[j].ID.Hex() })
	return units
}

// ListUnits returns every unit ordered by id.
func (c *MemoryUnitCollection) ListUnits(_ context.Context) ([]models.Unit, error) {
	return c.filter(func(models.Unit) bool { return true }), nil
}

// ListUnitsByOwnerAndStatus returns matching units ordered by id.
func (c *MemoryUnitCollection) ListUnitsByOwnerAndStatus(_ context.Context, owner string, status models.Status) ([]models.Unit, error) {
	return c.filter(func(u models.Unit) bool {
		return u.Owner == owner && u.Status == string(status)
	}), nil
}

// ListUnitIDs returns every id in ascending order.
func (c *MemoryUnitCollection) ListUnitIDs(ctx context.Context) ([]string, error) {
	units, _ := c.ListUnits(ctx)
	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID.Hex())
	}
	return ids, nil
}
