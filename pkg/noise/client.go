// Package noise queries the DOT national transportation noise map through
// the ArcGIS REST FeatureServer and MapServer endpoints.
package noise

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/resilience"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

// Default service endpoints.
const (
	DefaultFeatureURL   = "https://geo.dot.gov/server/rest/services/Hosted/NTAD_Noise_2020_CONUS_Aviation_Road_Rail/FeatureServer/0"
	DefaultMapServerURL = "https://geo.dot.gov/server/rest/services/Hosted/NTAD_Noise_2020_CONUS_Aviation_Road_Rail/MapServer"
)

// Strategy names used in waterfall chains.
const (
	FeatureServerName = "noise_feature_server"
	MapServerName     = "noise_map_server"
)

// Miss messages.
const (
	MsgNoFeature  = "No modeled cell here (likely <45 dB or outside coverage)."
	MsgNoIdentify = "No modeled cell here (identify returned nothing)."
)

// identifyHalfExtent is the half-size in degrees of the identify map extent.
const identifyHalfExtent = 0.1

// Option configures a noise strategy.
type Option func(*base)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *base) { b.http = hc }
}

// WithBaseURL overrides the service URL.
func WithBaseURL(u string) Option {
	return func(b *base) {
		if u != "" {
			b.baseURL = strings.TrimRight(u, "/")
		}
	}
}

type base struct {
	baseURL string
	http    *http.Client
}

func newBase(defaultURL string, opts []Option) base {
	b := base{baseURL: defaultURL, http: &http.Client{Timeout: 15 * time.Second}}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// arcgisError is the error object ArcGIS returns with HTTP 200.
type arcgisError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *arcgisError) err(service string) error {
	msg := e.Message
	if msg == "" {
		msg = "Unknown"
	}
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	err := eris.Errorf("noise: %s error: %s", service, msg)
	if resilience.IsTransientHTTPStatus(e.Code) {
		return resilience.NewTransientError(err, e.Code)
	}
	return err
}

func (b base) get(ctx context.Context, service, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrapf(err, "noise: create %s request", service)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "noise: %s request", service)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus("noise: "+service, resp.StatusCode); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "noise: read %s response", service)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "noise: decode %s response", service)
	}
	return nil
}

func pointGeometry(p model.Point) string {
	return fmt.Sprintf(`{"x":%s,"y":%s,"spatialReference":{"wkid":4326}}`, formatCoord(p.Lng), formatCoord(p.Lat))
}

// FeatureServer intersects the point with the hosted feature layer.
type FeatureServer struct {
	base
}

// NewFeatureServer creates the FeatureServer strategy.
func NewFeatureServer(opts ...Option) *FeatureServer {
	return &FeatureServer{base: newBase(DefaultFeatureURL, opts)}
}

// Name implements provider.Strategy.
func (s *FeatureServer) Name() string { return FeatureServerName }

type queryResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
	Error *arcgisError `json:"error"`
}

// Query implements provider.Strategy.
func (s *FeatureServer) Query(ctx context.Context, p model.Point) (provider.Result, error) {
	params := url.Values{
		"f":              {"json"},
		"where":          {"1=1"},
		"outFields":      {"*"},
		"returnGeometry": {"false"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"geometry":       {pointGeometry(p)},
	}

	var resp queryResponse
	if err := s.get(ctx, "feature server", "/query", params, &resp); err != nil {
		return provider.Result{}, err
	}
	if resp.Error != nil {
		return provider.Result{}, resp.Error.err("feature server")
	}
	if len(resp.Features) == 0 {
		return provider.NotFound(MsgNoFeature), nil
	}

	attrs := resp.Features[0].Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return provider.Result{Found: true, Attributes: attrs, ProviderLabel: FeatureServerName}, nil
}

// MapServer runs an identify against the map service, which also covers
// raster layers the feature layer misses.
type MapServer struct {
	base
}

// NewMapServer creates the MapServer identify strategy.
func NewMapServer(opts ...Option) *MapServer {
	return &MapServer{base: newBase(DefaultMapServerURL, opts)}
}

// Name implements provider.Strategy.
func (s *MapServer) Name() string { return MapServerName }

type identifyResponse struct {
	Results []struct {
		LayerName  string         `json:"layerName"`
		Attributes map[string]any `json:"attributes"`
	} `json:"results"`
	Error *arcgisError `json:"error"`
}

// Query implements provider.Strategy.
func (s *MapServer) Query(ctx context.Context, p model.Point) (provider.Result, error) {
	params := url.Values{
		"f":              {"json"},
		"geometryType":   {"esriGeometryPoint"},
		"sr":             {"4326"},
		"geometry":       {pointGeometry(p)},
		"mapExtent":      {extent(p, identifyHalfExtent)},
		"imageDisplay":   {"800,600,96"},
		"tolerance":      {"5"},
		"returnGeometry": {"false"},
		"layers":         {"all:0"},
	}

	var resp identifyResponse
	if err := s.get(ctx, "map server identify", "/identify", params, &resp); err != nil {
		return provider.Result{}, err
	}
	if resp.Error != nil {
		return provider.Result{}, resp.Error.err("map server identify")
	}
	if len(resp.Results) == 0 || resp.Results[0].Attributes == nil {
		return provider.NotFound(MsgNoIdentify), nil
	}

	hit := resp.Results[0]
	label := MapServerName
	if hit.LayerName != "" {
		label += "/" + hit.LayerName
	}
	return provider.Result{Found: true, Attributes: hit.Attributes, ProviderLabel: label}, nil
}

func extent(p model.Point, half float64) string {
	return strings.Join([]string{
		formatCoord(p.Lng - half),
		formatCoord(p.Lat - half),
		formatCoord(p.Lng + half),
		formatCoord(p.Lat + half),
	}, ",")
}
