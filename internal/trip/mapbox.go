package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrNoRoute   = errors.New("no routes found")
	ErrNoMatch   = errors.New("no geocoding match")
	ErrMapboxAPI = errors.New("mapbox api error")
)

type Route struct {
	Geometry        string
	DistanceMeters  float64
	DurationSeconds float64
}

// RouteAPI is the slice of Mapbox the trip service needs.
type RouteAPI interface {
	Directions(ctx context.Context, startLon, startLat, destLon, destLat float64, profile string) (Route, error)
	Geocode(ctx context.Context, place string) (lat, lon float64, err error)
}

// MapboxClient calls the Mapbox Directions v5 and Geocoding v5 APIs.
type MapboxClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewMapboxClient(apiKey string) *MapboxClient {
	return &MapboxClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		baseURL:    "https://api.mapbox.com",
	}
}

func (m *MapboxClient) Directions(ctx context.Context, startLon, startLat, destLon, destLat float64, profile string) (Route, error) {
	if profile == "" {
		profile = ModeWalking
	}

	// Mapbox wants "lon,lat;lon,lat".
	coords := fmt.Sprintf("%f,%f;%f,%f", startLon, startLat, destLon, destLat)
	endpoint := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s", m.baseURL, profile, url.PathEscape(coords))

	params := url.Values{}
	params.Set("access_token", m.apiKey)
	params.Set("geometries", "polyline")
	params.Set("overview", "full")
	params.Set("steps", "false")

	var body struct {
		Routes []struct {
			Geometry string  `json:"geometry"`
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := m.getJSON(ctx, endpoint+"?"+params.Encode(), &body); err != nil {
		return Route{}, err
	}
	if len(body.Routes) == 0 {
		return Route{}, ErrNoRoute
	}

	best := body.Routes[0]
	return Route{
		Geometry:        best.Geometry,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}

func (m *MapboxClient) Geocode(ctx context.Context, place string) (float64, float64, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", m.baseURL, url.PathEscape(place))

	params := url.Values{}
	params.Set("access_token", m.apiKey)
	params.Set("limit", "1")
	params.Set("types", "place,locality,neighborhood,address,poi")

	var body struct {
		Features []struct {
			Center []float64 `json:"center"` // lon, lat
		} `json:"features"`
	}
	if err := m.getJSON(ctx, endpoint+"?"+params.Encode(), &body); err != nil {
		return 0, 0, err
	}
	if len(body.Features) == 0 || len(body.Features[0].Center) < 2 {
		return 0, 0, ErrNoMatch
	}

	center := body.Features[0].Center
	return center[1], center[0], nil
}

func (m *MapboxClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMapboxAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrMapboxAPI, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
