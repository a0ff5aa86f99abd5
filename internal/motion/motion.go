// Package motion advances a unit along its route one waypoint per tick.
package motion

import (
	"math"
	"time"

	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/route"
)

// EarthRadiusKm is the mean earth radius used by Distance.
const EarthRadiusKm = 6371.0

// StepResult describes one advance along a route.
type StepResult struct {
	Finished    bool
	Coordinates models.Coordinate
	Distance    float64 // km covered by this step
}

// Distance returns the great-circle distance between a and b in km.
func Distance(a, b models.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}

// Step moves the cursor one waypoint forward and accumulates the covered
// distance into r.Traveled. At the last waypoint it reports Finished
// without moving, as often as it is called.
func Step(r *route.Route) StepResult {
	current, ok := r.Current()
	if !ok {
		return StepResult{Finished: true}
	}
	if r.Cursor >= len(r.Waypoints)-1 {
		return StepResult{Finished: true, Coordinates: current}
	}

	r.Cursor++
	next := r.Waypoints[r.Cursor]
	d := Distance(current, next)
	r.Traveled += d
	return StepResult{Coordinates: next, Distance: d}
}

// Speed converts a distance covered during tick into km/h.
func Speed(distanceKm float64, tick time.Duration) float64 {
	hours := tick.Hours()
	if hours <= 0 {
		return 0
	}
	return distanceKm / hours
}
