package unit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/db"
	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/motion"
)

// Run ticks the unit until ctx is cancelled or the record is removed. The
// next tick is scheduled only after the previous one returned, so ticks of
// one unit never overlap. onRemoved is called once before Run returns on
// removal.
func (u *Unit) Run(ctx context.Context, onRemoved func(id string)) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Debug("Unit stopped")
			return
		case <-timer.C:
		}

		err := u.Tick(ctx)
		if errors.Is(err, ErrUnitRemoved) {
			u.logger.Info("Unit record removed, stopping")
			if onRemoved != nil {
				onRemoved(u.id)
			}
			return
		}
		if err != nil && ctx.Err() == nil {
			u.logger.WithError(err).Warn("Tick failed")
		}
		timer.Reset(u.deps.Settings.TickInterval)
	}
}

// Tick runs one reconciliation step: read the authoritative record, update
// the battery, apply status transitions, enforce the low battery rule,
// adopt external relocations, move along the route and write telemetry.
// It returns ErrUnitRemoved when the record no longer exists.
func (u *Unit) Tick(ctx context.Context) error {
	storeCtx, cancel := u.storeContext(ctx)
	record, err := u.deps.Store.FindUnitByID(storeCtx, u.id)
	cancel()
	if err != nil {
		if errors.Is(err, db.ErrUnitNotFound) {
			return ErrUnitRemoved
		}
		return fmt.Errorf("failed to read unit: %w", err)
	}

	authoritative, statusErr := record.State()
	if statusErr == nil && u.status == models.StatusOff && authoritative == models.StatusOff {
		u.publishState()
		return nil
	}

	depleted := u.updateBattery()

	if statusErr != nil {
		u.logger.WithError(statusErr).Error("Ignoring unknown authoritative status")
	} else {
		u.applyTransition(ctx, authoritative, record.CurrentTrip)
	}

	u.enforceLowBattery(ctx, depleted)
	u.adoptCoordinates(record.Coordinates)
	u.move(ctx)
	u.writeTelemetry(ctx, record.CurrentTrip != nil)
	u.publishState()
	return nil
}

// updateBattery charges or drains the battery and reports whether it just
// ran empty.
func (u *Unit) updateBattery() bool {
	s := u.deps.Settings
	if u.status == models.StatusCharging {
		u.battery = clampBattery(u.battery + s.ChargeRate*s.TickInterval.Seconds())
		return false
	}

	before := u.battery
	drained := u.battery - s.DepletionRate*(u.speed+1)
	u.battery = clampBattery(drained)
	if drained < 0 {
		if before > 0 {
			u.logger.Warn("Battery depleted")
		}
		return true
	}
	return false
}

func (u *Unit) applyTransition(ctx context.Context, next models.Status, current *models.Trip) {
	prev := u.status
	if next == prev {
		return
	}

	switch next {
	case models.StatusInUse:
		u.openTrip(current)
	case models.StatusOff, models.StatusAvailable, models.StatusCharging, models.StatusUnavailable:
		if prev == models.StatusInUse {
			u.closeTrip(ctx)
		}
		u.stopMotion()
	}
	u.status = next

	u.logger.WithFields(log.Fields{
		"from": prev,
		"to":   next,
	}).Info("Status changed")
}

func (u *Unit) enforceLowBattery(ctx context.Context, depleted bool) {
	switch u.status {
	case models.StatusCharging, models.StatusOff, models.StatusUnavailable:
		return
	}
	if !depleted && u.battery >= u.deps.Settings.LowBatteryThreshold {
		return
	}

	if u.trip != nil {
		u.closeTrip(ctx)
	}
	u.stopMotion()
	u.status = models.StatusUnavailable

	storeCtx, cancel := u.storeContext(ctx)
	defer cancel()
	if err := u.deps.Store.UpdateStatus(storeCtx, u.id, models.StatusUnavailable); err != nil {
		u.writeFailed("status", err)
		return
	}
	u.logger.WithField("battery", u.battery).Info("Battery low, unit marked unavailable")
}

// adoptCoordinates follows a relocation done outside the simulation. A
// stored position equal to the last one this unit wrote is only stale (a
// telemetry write may have failed) and is ignored. An active route no longer
// starts where the unit is, so it is dropped and re-planned when a trip is
// open.
func (u *Unit) adoptCoordinates(authoritative models.Coordinate) {
	if authoritative.Equal(u.coordinates) || authoritative.Equal(u.persisted) {
		return
	}
	u.logger.WithFields(log.Fields{
		"from": u.coordinates,
		"to":   authoritative,
	}).Info("Unit relocated externally")

	u.coordinates = authoritative
	u.persisted = authoritative
	if u.route != nil {
		u.route = nil
		u.needsRoute = u.trip != nil
	}
}

func (u *Unit) move(ctx context.Context) {
	if u.route == nil && u.needsRoute && u.trip != nil {
		u.planRoute(ctx)
	}
	if u.route == nil {
		u.speed = 0
		return
	}

	step := motion.Step(u.route)
	if step.Finished {
		u.logger.WithField("distance_km", u.route.Traveled).Info("Route finished")
		u.route = nil
		u.speed = 0
		return
	}

	u.coordinates = step.Coordinates
	u.speed = motion.Speed(step.Distance, u.deps.Settings.TickInterval)
	if u.trip != nil {
		u.trip.Distance += step.Distance
	}
}

func (u *Unit) planRoute(ctx context.Context) {
	if u.deps.Planner == nil {
		return
	}
	destination := u.deps.Settings.Bounds.Random(u.rng).Round6()
	r, err := u.deps.Planner.PlanRoute(ctx, u.coordinates, destination)
	if err != nil {
		u.logger.WithError(err).Warn("Route planning failed, retrying next tick")
		return
	}
	u.route = r
	u.needsRoute = false
	u.logger.WithFields(log.Fields{
		"destination": destination,
		"waypoints":   len(r.Waypoints),
	}).Debug("Route planned")
}

func (u *Unit) openTrip(current *models.Trip) {
	u.trip = newTrip(current, u.coordinates)
	u.trip.Distance = 0
	u.route = nil
	u.needsRoute = true
	u.logger.WithField("trip_id", u.trip.ID).Info("Trip started")
}

func (u *Unit) closeTrip(ctx context.Context) {
	if u.trip == nil {
		return
	}
	entry := *u.trip
	end := u.coordinates
	entry.EndPosition = &end
	entry.EndTime = time.Now().UTC()
	u.log = append(u.log, entry)
	u.trip = nil

	storeCtx, cancel := u.storeContext(ctx)
	defer cancel()
	if err := u.deps.Store.AppendLogEntry(storeCtx, u.id, entry); err != nil {
		u.writeFailed("log entry", err)
		return
	}
	u.logger.WithFields(log.Fields{
		"trip_id":     entry.ID,
		"distance_km": entry.Distance,
	}).Info("Trip ended")
}

func (u *Unit) stopMotion() {
	u.route = nil
	u.needsRoute = false
	u.speed = 0
}

// writeTelemetry persists the physical state. Trip progress is only written
// while the record still carries a current trip.
func (u *Unit) writeTelemetry(ctx context.Context, recordHasTrip bool) {
	storeCtx, cancel := u.storeContext(ctx)
	defer cancel()

	if err := u.deps.Store.UpdateTelemetry(storeCtx, u.id, u.coordinates, u.speed, u.battery); err != nil {
		u.writeFailed("telemetry", err)
	} else {
		u.persisted = u.coordinates
	}

	var tripDistance *float64
	if u.trip != nil {
		d := u.trip.Distance
		tripDistance = &d
	}
	if u.trip != nil && recordHasTrip {
		if err := u.deps.Store.UpdateTripProgress(storeCtx, u.id, *tripDistance); err != nil {
			u.writeFailed("trip progress", err)
		}
	}

	err := u.deps.Publisher.PublishTelemetry(ctx, models.Telemetry{
		UnitID:       u.id,
		Timestamp:    time.Now().UTC(),
		Coordinates:  u.coordinates,
		Speed:        u.speed,
		Battery:      u.battery,
		Status:       u.status,
		TripDistance: tripDistance,
	})
	if err != nil {
		u.logger.WithError(err).Debug("Failed to publish telemetry")
	}
}

func (u *Unit) writeFailed(what string, err error) {
	if errors.Is(err, db.ErrUnitNotFound) {
		err = fmt.Errorf("%w: %v", ErrPersistenceWriteFailed, err)
	}
	u.logger.WithError(err).WithField("write", what).Error("Failed to persist unit state")
}

// newTrip copies the authoritative trip, filling in what the rental side
// left empty.
func newTrip(current *models.Trip, position models.Coordinate) *models.Trip {
	trip := models.Trip{}
	if current != nil {
		trip = *current
	}
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.StartPosition == nil {
		start := position
		trip.StartPosition = &start
	}
	if trip.StartTime.IsZero() {
		trip.StartTime = time.Now().UTC()
	}
	trip.EndPosition = nil
	trip.EndTime = time.Time{}
	return &trip
}
