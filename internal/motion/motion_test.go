package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-twin/internal/models"
	"github.com/ukydev/fleet-twin/internal/route"
)

func TestDistance_OneDegreeLongitudeAtEquator(t *testing.T) {
	d := Distance(models.Coordinate{Latitude: 0, Longitude: 0}, models.Coordinate{Latitude: 0, Longitude: 1})
	assert.InDelta(t, 111.19, d, 0.1)
}

func TestDistance_SamePointIsZero(t *testing.T) {
	p := models.Coordinate{Latitude: 56.16, Longitude: 15.58}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestDistance_Symmetric(t *testing.T) {
	a := models.Coordinate{Latitude: 56.161224, Longitude: 15.5869}
	b := models.Coordinate{Latitude: 56.18, Longitude: 15.61}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestStep_AdvancesAndAccumulates(t *testing.T) {
	r := &route.Route{Waypoints: []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 0, Longitude: 2},
	}}

	first := Step(r)
	assert.False(t, first.Finished)
	assert.Equal(t, r.Waypoints[1], first.Coordinates)
	assert.InDelta(t, 111.19, first.Distance, 0.1)
	assert.Equal(t, 1, r.Cursor)

	second := Step(r)
	assert.False(t, second.Finished)
	assert.Equal(t, 2, r.Cursor)
	assert.InDelta(t, first.Distance+second.Distance, r.Traveled, 1e-9)
}

func TestStep_AtLastIndexIsIdempotent(t *testing.T) {
	r := &route.Route{
		Waypoints: []models.Coordinate{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 1}},
		Cursor:    1,
		Traveled:  111.19,
	}

	for i := 0; i < 3; i++ {
		res := Step(r)
		require.True(t, res.Finished)
		assert.Equal(t, 0.0, res.Distance)
		assert.Equal(t, r.Waypoints[1], res.Coordinates)
		assert.Equal(t, 1, r.Cursor)
		assert.Equal(t, 111.19, r.Traveled)
	}
}

func TestStep_EmptyRoute(t *testing.T) {
	res := Step(&route.Route{})
	assert.True(t, res.Finished)
	assert.Equal(t, 0.0, res.Distance)
}

func TestSpeed(t *testing.T) {
	assert.InDelta(t, 36.0, Speed(0.01, time.Second), 1e-9)
	assert.Equal(t, 0.0, Speed(1, 0))
}
