// Package geocode reverse geocodes points through the OpenStreetMap
// Nominatim API.
package geocode

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

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "livability-cli/1.0"
)

// ErrNoAddress is returned when Nominatim has nothing near the point.
var ErrNoAddress = eris.New("geocode: no address for this location")

// Client reverse geocodes points.
type Client interface {
	Reverse(ctx context.Context, p model.Point) (*Place, error)
}

// Place is a Nominatim reverse geocoding result.
type Place struct {
	PlaceID     int64             `json:"place_id"`
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Category    string            `json:"category,omitempty"`
	Type        string            `json:"type,omitempty"`
	Address     map[string]string `json:"address,omitempty"`
	Licence     string            `json:"licence,omitempty"`
}

// City returns the most specific settlement name present.
func (p *Place) City() string {
	for _, k := range []string{"city", "town", "village", "hamlet", "county"} {
		if v := p.Address[k]; v != "" {
			return v
		}
	}
	return ""
}

// Option configures the client.
type Option func(*nominatim)

// WithBaseURL overrides the Nominatim base URL.
func WithBaseURL(u string) Option {
	return func(n *nominatim) {
		if u != "" {
			n.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *nominatim) {
		n.http = hc
	}
}

// WithUserAgent sets the User-Agent Nominatim's usage policy requires.
func WithUserAgent(ua string) Option {
	return func(n *nominatim) {
		if ua != "" {
			n.userAgent = ua
		}
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(n *nominatim) {
		if rps > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLimiter sets the rate limiter directly.
func WithLimiter(l *rate.Limiter) Option {
	return func(n *nominatim) {
		n.limiter = l
	}
}

type nominatim struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a Nominatim client limited to one request per second.
func NewClient(opts ...Option) Client {
	n := &nominatim{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Reverse implements Client.
func (n *nominatim) Reverse(ctx context.Context, p model.Point) (*Place, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	params := url.Values{
		"lat":    {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(p.Lng, 'f', -1, 64)},
		"format": {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: create reverse request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: reverse request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus("geocode: reverse", resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read reverse response")
	}

	var out struct {
		Place
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "geocode: decode reverse response")
	}
	if out.Error != "" {
		return nil, eris.Wrap(ErrNoAddress, out.Error)
	}
	return &out.Place, nil
}
