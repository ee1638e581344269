// Package google finds the nearest grocery store with the Places Nearby
// Search and Distance Matrix web services.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// ErrMissingKey is returned by every call when no API key is configured.
var ErrMissingKey = eris.New("google: missing Google Maps API key")

// ErrNoResults means the search returned nothing usable.
var ErrNoResults = eris.New("google: no grocery stores found nearby")

// Client performs Google Maps web service operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbyRequest) (*NearbyResponse, error)
	DistanceMatrix(ctx context.Context, req DistanceRequest) (*DistanceResponse, error)
	NearestGrocery(ctx context.Context, p model.Point) (*GroceryDistance, error)
}

// NearbyRequest is a Places Nearby Search ranked by distance.
type NearbyRequest struct {
	Location model.Point
	Type     string
	Keyword  string
}

// NearbyResponse is the Places Nearby Search response.
type NearbyResponse struct {
	Results      []Place `json:"results"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Place is one nearby result.
type Place struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Geometry struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
}

// LatLng is a Google coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceRequest asks for travel from Origin to a place.
type DistanceRequest struct {
	Origin  model.Point
	PlaceID string
	Mode    string
	Units   string
}

// DistanceResponse is the Distance Matrix response.
type DistanceResponse struct {
	Rows []struct {
		Elements []Element `json:"elements"`
	} `json:"rows"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Element is one origin/destination cell.
type Element struct {
	Status            string     `json:"status"`
	Distance          *TextValue `json:"distance"`
	Duration          *TextValue `json:"duration"`
	DurationInTraffic *TextValue `json:"duration_in_traffic"`
}

// TextValue pairs a display string with a numeric value.
type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// GroceryDistance summarizes the trip to the closest grocery store.
type GroceryDistance struct {
	StoreName       string   `json:"storeName"`
	Address         string   `json:"address"`
	PlaceID         string   `json:"placeId"`
	DistanceMeters  *float64 `json:"distance_meters"`
	DistanceText    string   `json:"distance_text,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds"`
	DurationText    string   `json:"duration_text,omitempty"`
	Mode            string   `json:"mode"`
	Units           string   `json:"units"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMode sets the travel mode ("driving", "walking", ...).
func WithMode(mode string) Option {
	return func(c *httpClient) {
		if mode != "" {
			c.mode = mode
		}
	}
}

// WithUnits sets "imperial" or "metric".
func WithUnits(units string) Option {
	return func(c *httpClient) {
		if units != "" {
			c.units = units
		}
	}
}

// WithRateLimiter overrides the request rate limiter.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	mode    string
	units   string
	limiter *rate.Limiter
}

// NewClient creates a Google Maps client. An empty key is allowed; every
// call then fails with ErrMissingKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		mode:    "driving",
		units:   "imperial",
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func latlng(p model.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "google: rate limit wait")
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}

// checkAPIStatus maps the body-level status field onto errors.
func checkAPIStatus(service, status, msg string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return resilience.NewTransientError(eris.Errorf("google: %s status %s: %s", service, status, msg), http.StatusTooManyRequests)
	default:
		return eris.Errorf("google: %s status %s: %s", service, status, msg)
	}
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbyRequest) (*NearbyResponse, error) {
	params := url.Values{
		"location": {latlng(req.Location)},
		"rankby":   {"distance"},
	}
	if req.Type != "" {
		params.Set("type", req.Type)
	}
	if req.Keyword != "" {
		params.Set("keyword", req.Keyword)
	}

	var result NearbyResponse
	if err := c.get(ctx, "/place/nearbysearch/json", params, &result); err != nil {
		return nil, err
	}
	if err := checkAPIStatus("places", result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) DistanceMatrix(ctx context.Context, req DistanceRequest) (*DistanceResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = c.mode
	}
	units := req.Units
	if units == "" {
		units = c.units
	}

	params := url.Values{
		"origins":      {latlng(req.Origin)},
		"destinations": {"place_id:" + req.PlaceID},
		"mode":         {mode},
		"units":        {units},
	}
	if mode == "driving" {
		params.Set("departure_time", "now")
		params.Set("traffic_model", "best_guess")
	}

	var result DistanceResponse
	if err := c.get(ctx, "/distancematrix/json", params, &result); err != nil {
		return nil, err
	}
	if err := checkAPIStatus("distance matrix", result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

// NearestGrocery finds the closest supermarket and the trip to it.
func (c *httpClient) NearestGrocery(ctx context.Context, p model.Point) (*GroceryDistance, error) {
	nearby, err := c.NearbySearch(ctx, NearbyRequest{Location: p, Type: "supermarket", Keyword: "grocery"})
	if err != nil {
		return nil, err
	}
	if len(nearby.Results) == 0 {
		return nil, ErrNoResults
	}
	store := nearby.Results[0]

	dm, err := c.DistanceMatrix(ctx, DistanceRequest{Origin: p, PlaceID: store.PlaceID})
	if err != nil {
		return nil, err
	}
	if len(dm.Rows) == 0 || len(dm.Rows[0].Elements) == 0 || dm.Rows[0].Elements[0].Status != "OK" {
		return nil, eris.New("google: could not compute distance")
	}
	el := dm.Rows[0].Elements[0]

	out := &GroceryDistance{
		StoreName: store.Name,
		Address:   store.Vicinity,
		PlaceID:   store.PlaceID,
		Mode:      c.mode,
		Units:     c.units,
	}
	if el.Distance != nil {
		v := el.Distance.Value
		out.DistanceMeters = &v
		out.DistanceText = el.Distance.Text
	}
	duration := el.DurationInTraffic
	if duration == nil {
		duration = el.Duration
	}
	if duration != nil {
		v := duration.Value
		out.DurationSeconds = &v
		out.DurationText = duration.Text
	}
	return out, nil
}
