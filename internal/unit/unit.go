// Package unit runs the digital twin of one rental vehicle. Every tick the
// twin re-reads its authoritative record, reconciles it with the locally
// simulated physical state and writes telemetry back.
package unit

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/db"
	"github.com/ukydev/fleet-twin/internal/events"
	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/route"
)

var (
	// ErrUnitRemoved means the unit's record disappeared from the store.
	// It is terminal for the unit only.
	ErrUnitRemoved = errors.New("unit removed from store")
	// ErrUnitNotFound is returned when loading an id that does not exist.
	ErrUnitNotFound = errors.New("unit not found")
	// ErrPersistenceWriteFailed wraps writes that did not match exactly one record.
	ErrPersistenceWriteFailed = errors.New("persistence write failed")
)

// Planner plans a route between two coordinates. *route.Engine implements it.
type Planner interface {
	PlanRoute(ctx context.Context, origin, destination models.Coordinate) (*route.Route, error)
}

// Settings are the simulation constants a unit needs.
type Settings struct {
	TickInterval        time.Duration
	StoreTimeout        time.Duration
	DepletionRate       float64
	ChargeRate          float64
	LowBatteryThreshold float64
	Bounds              route.Bounds
	Owner               string
}

// NewSettings derives unit settings from the application config.
func NewSettings(cfg *config.Config) Settings {
	sim := cfg.Simulation
	return Settings{
		TickInterval:        sim.TickInterval,
		StoreTimeout:        cfg.Store.Timeout,
		DepletionRate:       sim.DepletionRate,
		ChargeRate:          sim.ChargeRate,
		LowBatteryThreshold: sim.LowBatteryThreshold,
		Bounds:              route.Bounds{MinLat: sim.MinLat, MaxLat: sim.MaxLat, MinLon: sim.MinLon, MaxLon: sim.MaxLon},
		Owner:               sim.City,
	}
}

// Deps are the collaborators shared by every unit of a fleet.
type Deps struct {
	Store     db.UnitCollection
	Planner   Planner
	Publisher events.Publisher
	Settings  Settings
}

// State is a point-in-time copy of a unit's local state.
type State struct {
	ID             string            `json:"id"`
	Status         models.Status     `json:"status"`
	Battery        float64           `json:"battery"`
	Speed          float64           `json:"speed"`
	Coordinates    models.Coordinate `json:"coordinates"`
	Trip           *models.Trip      `json:"trip,omitempty"`
	TripsCompleted int               `json:"trips_completed"`
	RouteRemaining int               `json:"route_remaining"`
	RouteActive    bool              `json:"route_active"`
}

// Unit is one vehicle twin. Tick must only be called from one goroutine;
// Snapshot may be called from any.
type Unit struct {
	id     string
	deps   Deps
	rng    *rand.Rand
	logger *log.Entry

	status      models.Status
	battery     float64
	speed       float64
	coordinates models.Coordinate
	persisted   models.Coordinate // last position known to be stored
	trip        *models.Trip
	log         []models.Trip
	route       *route.Route
	needsRoute  bool

	mu       sync.RWMutex
	snapshot State
}

// Load reads the record id and builds its twin. A missing record yields
// ErrUnitNotFound.
func Load(ctx context.Context, deps Deps, id string) (*Unit, error) {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	u := &Unit{
		id:     id,
		deps:   deps,
		rng:    rand.New(rand.NewSource(seed(id))),
		logger: log.WithField("unit_id", id),
	}

	storeCtx, cancel := u.storeContext(ctx)
	defer cancel()
	record, err := deps.Store.FindUnitByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, db.ErrUnitNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
		}
		return nil, fmt.Errorf("failed to load unit %s: %w", id, err)
	}

	u.battery = clampBattery(record.Battery)
	u.coordinates = record.Coordinates
	u.persisted = record.Coordinates
	u.log = append([]models.Trip(nil), record.Log...)

	status, err := record.State()
	if err != nil {
		u.logger.WithError(err).Warn("Stored status is unknown, starting as Off")
		status = models.StatusOff
	}
	u.status = status
	if status == models.StatusInUse {
		u.trip = newTrip(record.CurrentTrip, u.coordinates)
		u.needsRoute = true
	}

	u.publishState()
	u.logger.WithFields(log.Fields{
		"status":  u.status,
		"battery": u.battery,
	}).Info("Unit loaded")
	return u, nil
}

// Create inserts a fresh available unit at a random position in the
// operating region and loads it.
func Create(ctx context.Context, deps Deps) (*Unit, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	record := models.Unit{
		Status:      string(models.StatusAvailable),
		Battery:     100,
		Owner:       deps.Settings.Owner,
		Log:         []models.Trip{},
		Coordinates: deps.Settings.Bounds.Random(rng).Round6(),
	}
	id, err := deps.Store.InsertUnit(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to insert unit: %w", err)
	}
	return Load(ctx, deps, id)
}

func clampBattery(level float64) float64 {
	return math.Max(0, math.Min(100, level))
}

// ID returns the unit id.
func (u *Unit) ID() string {
	return u.id
}

// Snapshot returns the state published at the end of the last tick.
func (u *Unit) Snapshot() State {
	u.mu.RLock()
	defer u.mu.RUnlock()
	s := u.snapshot
	if s.Trip != nil {
		trip := *s.Trip
		s.Trip = &trip
	}
	return s
}

func (u *Unit) publishState() {
	s := State{
		ID:             u.id,
		Status:         u.status,
		Battery:        u.battery,
		Speed:          u.speed,
		Coordinates:    u.coordinates,
		TripsCompleted: len(u.log),
		RouteRemaining: u.route.Remaining(),
		RouteActive:    u.route != nil,
	}
	if u.trip != nil {
		trip := *u.trip
		s.Trip = &trip
	}
	u.mu.Lock()
	u.snapshot = s
	u.mu.Unlock()
}

func (u *Unit) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.deps.Settings.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.deps.Settings.StoreTimeout)
}

func seed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return time.Now().UnixNano() ^ int64(h.Sum64())
}
