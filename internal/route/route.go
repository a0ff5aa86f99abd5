// Package route turns a sparse path from a routing service into a dense,
// steppable sequence of waypoints.
package route

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/ukydev/fleet-twin/internal/models"
)

// ErrRoutingUnavailable is returned when the routing service failed or
// returned no usable geometry.
var ErrRoutingUnavailable = errors.New("routing unavailable")

// PathFinder requests a sparse path between two coordinates.
type PathFinder interface {
	FindPath(ctx context.Context, origin, destination models.Coordinate, mode string) ([]models.Coordinate, error)
}

// Route is the active trajectory of one unit. Cursor indexes the waypoint
// the unit currently stands on; Traveled is the running distance in km.
type Route struct {
	Waypoints []models.Coordinate
	Cursor    int
	Traveled  float64
}

// Current returns the waypoint under the cursor.
func (r *Route) Current() (models.Coordinate, bool) {
	if r == nil || r.Cursor < 0 || r.Cursor >= len(r.Waypoints) {
		return models.Coordinate{}, false
	}
	return r.Waypoints[r.Cursor], true
}

// Remaining is the number of steps left before the route is finished.
func (r *Route) Remaining() int {
	if r == nil || len(r.Waypoints) == 0 {
		return 0
	}
	if left := len(r.Waypoints) - 1 - r.Cursor; left > 0 {
		return left
	}
	return 0
}

// Pad resamples nodes into steps equal linear steps per segment. The last
// source node is not appended, so the final waypoint lies one step short of
// the destination.
func Pad(nodes []models.Coordinate, steps int) []models.Coordinate {
	if steps < 1 {
		steps = 1
	}
	if len(nodes) < 2 {
		return nil
	}

	padded := make([]models.Coordinate, 0, (len(nodes)-1)*steps)
	for i := 0; i < len(nodes)-1; i++ {
		from, to := nodes[i], nodes[i+1]
		stepLat := (to.Latitude - from.Latitude) / float64(steps)
		stepLon := (to.Longitude - from.Longitude) / float64(steps)
		for j := 0; j < steps; j++ {
			padded = append(padded, models.Coordinate{
				Latitude:  from.Latitude + stepLat*float64(j),
				Longitude: from.Longitude + stepLon*float64(j),
			}.Round6())
		}
	}
	return padded
}

// Engine plans routes through a PathFinder.
type Engine struct {
	Finder PathFinder
	Steps  int
	Mode   string
}

// PlanRoute asks the routing service for a path and pads it. There is no
// retry; callers decide when to ask again.
func (e *Engine) PlanRoute(ctx context.Context, origin, destination models.Coordinate) (*Route, error) {
	if e.Finder == nil {
		return nil, fmt.Errorf("%w: no routing service configured", ErrRoutingUnavailable)
	}
	nodes, err := e.Finder.FindPath(ctx, origin, destination, e.Mode)
	if err != nil {
		if errors.Is(err, ErrRoutingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRoutingUnavailable, err)
	}
	waypoints := Pad(nodes, e.Steps)
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", ErrRoutingUnavailable)
	}
	return &Route{Waypoints: waypoints}, nil
}

// Bounds is the operating region for synthetic coordinates.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Random returns a uniformly distributed coordinate inside b.
func (b Bounds) Random(rng *rand.Rand) models.Coordinate {
	return models.Coordinate{
		Latitude:  b.MinLat + (b.MaxLat-b.MinLat)*rng.Float64(),
		Longitude: b.MinLon + (b.MaxLon-b.MinLon)*rng.Float64(),
	}
}

// Contains reports whether c lies inside b.
func (b Bounds) Contains(c models.Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}
