package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/models"
)

const defaultTimeout = 10 * time.Second

// NewEngine builds an Engine for the configured routing provider.
func NewEngine(cfg config.RoutingConfig, steps int) (*Engine, error) {
	var finder PathFinder
	switch cfg.Provider {
	case "", "geoapify":
		if cfg.GeoapifyKey == "" {
			return nil, fmt.Errorf("GEOAPIFY_KEY is required for the geoapify provider")
		}
		finder = NewGeoapifyClient(cfg.GeoapifyURL, cfg.GeoapifyKey, cfg.Timeout)
	case "osrm":
		finder = NewOSRMClient(cfg.OSRMURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown routing provider %q", cfg.Provider)
	}
	return &Engine{Finder: finder, Steps: steps, Mode: cfg.Mode}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRoutingUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoutingUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrRoutingUnavailable, err)
	}
	return nil
}

// lonLatPairs converts GeoJSON [lon, lat] pairs.
func lonLatPairs(pairs [][]float64) []models.Coordinate {
	coords := make([]models.Coordinate, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		coords = append(coords, models.Coordinate{Latitude: p[1], Longitude: p[0]})
	}
	return coords
}

// GeoapifyClient queries the Geoapify routing API.
type GeoapifyClient struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewGeoapifyClient creates a client; an empty baseURL uses the public API.
func NewGeoapifyClient(baseURL, apiKey string, timeout time.Duration) *GeoapifyClient {
	if baseURL == "" {
		baseURL = "https://api.geoapify.com"
	}
	return &GeoapifyClient{BaseURL: baseURL, APIKey: apiKey, client: newHTTPClient(timeout)}
}

type geoapifyResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// FindPath returns the first leg of the first feature.
func (g *GeoapifyClient) FindPath(ctx context.Context, origin, destination models.Coordinate, mode string) ([]models.Coordinate, error) {
	if mode == "" {
		mode = "walk"
	}
	query := url.Values{}
	query.Set("waypoints", fmt.Sprintf("%.6f,%.6f|%.6f,%.6f",
		origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude))
	query.Set("mode", mode)
	query.Set("apiKey", g.APIKey)

	var parsed geoapifyResponse
	if err := getJSON(ctx, g.client, g.BaseURL+"/v1/routing?"+query.Encode(), &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Features) == 0 || len(parsed.Features[0].Geometry.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: no route", ErrRoutingUnavailable)
	}
	coords := lonLatPairs(parsed.Features[0].Geometry.Coordinates[0])
	if len(coords) < 2 {
		return nil, fmt.Errorf("%w: no route", ErrRoutingUnavailable)
	}
	return coords, nil
}

// OSRMClient queries an OSRM server.
type OSRMClient struct {
	BaseURL string
	client  *http.Client
}

// NewOSRMClient creates a client; an empty baseURL uses the public demo server.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}
	return &OSRMClient{BaseURL: baseURL, client: newHTTPClient(timeout)}
}

type osrmResponse struct {
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// osrmProfile maps travel modes onto OSRM profiles.
func osrmProfile(mode string) string {
	switch mode {
	case "walk", "foot":
		return "foot"
	case "bicycle", "bike", "scooter":
		return "bike"
	default:
		return "driving"
	}
}

// FindPath returns the geometry of the first route.
func (o *OSRMClient) FindPath(ctx context.Context, origin, destination models.Coordinate, mode string) ([]models.Coordinate, error) {
	rawURL := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.BaseURL, osrmProfile(mode), origin.Longitude, origin.Latitude, destination.Longitude, destination.Latitude)

	var parsed osrmResponse
	if err := getJSON(ctx, o.client, rawURL, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: no route", ErrRoutingUnavailable)
	}
	coords := lonLatPairs(parsed.Routes[0].Geometry.Coordinates)
	if len(coords) < 2 {
		return nil, fmt.Errorf("%w: no route", ErrRoutingUnavailable)
	}
	return coords, nil
}
