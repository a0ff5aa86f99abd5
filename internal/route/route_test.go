package route

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/models"
)

type stubFinder struct {
	nodes []models.Coordinate
	err   error
	calls int
}

func (s *stubFinder) FindPath(_ context.Context, _, _ models.Coordinate, _ string) ([]models.Coordinate, error) {
	s.calls++
	return s.nodes, s.err
}

func TestPad_TwoPoints(t *testing.T) {
	origin := models.Coordinate{Latitude: 56.16, Longitude: 15.58}
	dest := models.Coordinate{Latitude: 56.17, Longitude: 15.60}

	padded := Pad([]models.Coordinate{origin, dest}, 5)

	require.Len(t, padded, 5)
	assert.Equal(t, origin, padded[0])
	assert.Equal(t, models.Coordinate{Latitude: 56.168, Longitude: 15.596}, padded[4])
	for _, p := range padded {
		assert.False(t, p.Equal(dest), "destination must not be appended")
	}
}

func TestPad_MultipleSegments(t *testing.T) {
	nodes := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
	}
	padded := Pad(nodes, 4)

	require.Len(t, padded, 8)
	assert.Equal(t, nodes[0], padded[0])
	assert.Equal(t, nodes[1], padded[4], "second segment starts at its source point")
	assert.Equal(t, models.Coordinate{Latitude: 0.75, Longitude: 1}, padded[7])
}

func TestPad_RoundsToSixDecimals(t *testing.T) {
	padded := Pad([]models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
	}, 3)

	require.Len(t, padded, 3)
	assert.Equal(t, 0.333333, padded[1].Latitude)
	assert.Equal(t, 0.666667, padded[2].Longitude)
}

func TestPad_Degenerate(t *testing.T) {
	assert.Nil(t, Pad(nil, 5))
	assert.Nil(t, Pad([]models.Coordinate{{Latitude: 1, Longitude: 1}}, 5))
	assert.Len(t, Pad([]models.Coordinate{{}, {Latitude: 1}}, 0), 1, "non-positive steps act as one")
}

func TestEngine_PlanRoute(t *testing.T) {
	finder := &stubFinder{nodes: []models.Coordinate{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 1}}}
	engine := &Engine{Finder: finder, Steps: 10, Mode: "walk"}

	r, err := engine.PlanRoute(context.Background(), models.Coordinate{}, models.Coordinate{Longitude: 1})
	require.NoError(t, err)
	assert.Len(t, r.Waypoints, 10)
	assert.Equal(t, 0, r.Cursor)
	assert.Equal(t, 0.0, r.Traveled)
	assert.Equal(t, 9, r.Remaining())
	assert.Equal(t, 1, finder.calls)
}

func TestEngine_PlanRoute_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		finder PathFinder
	}{
		{"service error", &stubFinder{err: fmt.Errorf("dial tcp: connection refused")}},
		{"empty geometry", &stubFinder{nodes: []models.Coordinate{{Latitude: 1}}}},
		{"no finder", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &Engine{Finder: tt.finder, Steps: 3}
			_, err := engine.PlanRoute(context.Background(), models.Coordinate{}, models.Coordinate{})
			assert.True(t, errors.Is(err, ErrRoutingUnavailable), "got %v", err)
		})
	}
}

func TestBounds_Random(t *testing.T) {
	b := Bounds{MinLat: 56.15, MaxLat: 56.19, MinLon: 15.55, MaxLon: 15.62}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		c := b.Random(rng)
		if !b.Contains(c) {
			t.Fatalf("coordinate %+v outside bounds", c)
		}
	}
}

func TestGeoapifyClient_FindPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/routing", r.URL.Path)
		assert.Equal(t, "walk", r.URL.Query().Get("mode"))
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "56.100000,15.500000|56.200000,15.600000", r.URL.Query().Get("waypoints"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[[15.5,56.1],[15.55,56.15],[15.6,56.2]]]}}]}`))
	}))
	defer server.Close()

	client := NewGeoapifyClient(server.URL, "secret", 0)
	coords, err := client.FindPath(context.Background(),
		models.Coordinate{Latitude: 56.1, Longitude: 15.5},
		models.Coordinate{Latitude: 56.2, Longitude: 15.6}, "walk")

	require.NoError(t, err)
	require.Len(t, coords, 3)
	assert.Equal(t, models.Coordinate{Latitude: 56.15, Longitude: 15.55}, coords[1])
}

func TestGeoapifyClient_NoGeometry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	_, err := NewGeoapifyClient(server.URL, "k", 0).FindPath(context.Background(), models.Coordinate{}, models.Coordinate{}, "")
	assert.True(t, errors.Is(err, ErrRoutingUnavailable))
}

func TestOSRMClient_FindPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/route/v1/foot/15.500000,56.100000;15.600000,56.200000"), r.URL.Path)
		w.Write([]byte(`{"routes":[{"geometry":{"coordinates":[[15.5,56.1],[15.6,56.2]]}}]}`))
	}))
	defer server.Close()

	coords, err := NewOSRMClient(server.URL, 0).FindPath(context.Background(),
		models.Coordinate{Latitude: 56.1, Longitude: 15.5},
		models.Coordinate{Latitude: 56.2, Longitude: 15.6}, "walk")
	require.NoError(t, err)
	assert.Len(t, coords, 2)
}

func TestOSRMClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOSRMClient(server.URL, 0).FindPath(context.Background(), models.Coordinate{}, models.Coordinate{}, "")
	assert.True(t, errors.Is(err, ErrRoutingUnavailable))
}

func TestOSRMClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewOSRMClient(url, 0).FindPath(context.Background(), models.Coordinate{}, models.Coordinate{}, "")
	assert.True(t, errors.Is(err, ErrRoutingUnavailable))
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(config.RoutingConfig{Provider: "osrm", Mode: "walk"}, 10)
	require.NoError(t, err)
	assert.IsType(t, &OSRMClient{}, engine.Finder)
	assert.Equal(t, 10, engine.Steps)

	engine, err = NewEngine(config.RoutingConfig{Provider: "geoapify", GeoapifyKey: "k"}, 5)
	require.NoError(t, err)
	assert.IsType(t, &GeoapifyClient{}, engine.Finder)

	_, err = NewEngine(config.RoutingConfig{Provider: "geoapify"}, 5)
	assert.Error(t, err)

	_, err = NewEngine(config.RoutingConfig{Provider: "graphhopper"}, 5)
	assert.Error(t, err)
}
