package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/heartlink/discovery/internal/config"
)

// Coordinates is a forward-geocode result.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Place is a reverse-geocode result.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Geocoder is the external address<->coordinate provider. Failures are
// non-fatal everywhere in the engine; callers fall back to caller-supplied
// values.
type Geocoder interface {
	Forward(ctx context.Context, city, country string) (Coordinates, error)
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// ErrUnconfigured is returned when no provider base URL is set.
var ErrUnconfigured = errors.New("geocoder not configured")

// HTTPGeocoder calls a JSON geocoding endpoint behind a circuit breaker so a
// flapping provider cannot slow down location writes.
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPGeocoder(cfg *config.Config) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: cfg.Geocoder.BaseURL,
		client:  &http.Client{Timeout: cfg.Geocoder.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "geocoder",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (g *HTTPGeocoder) Forward(ctx context.Context, city, country string) (Coordinates, error) {
	var out Coordinates
	err := g.call(ctx, "/forward", url.Values{"city": {city}, "country": {country}}, &out)
	return out, err
}

func (g *HTTPGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	var out Place
	err := g.call(ctx, "/reverse", url.Values{
		"lat": {fmt.Sprintf("%f", lat)},
		"lon": {fmt.Sprintf("%f", lon)},
	}, &out)
	return out, err
}

func (g *HTTPGeocoder) call(ctx context.Context, path string, params url.Values, out any) error {
	if g.baseURL == "" {
		return ErrUnconfigured
	}

	_, err := g.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("geocoder status %d", resp.StatusCode)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}
