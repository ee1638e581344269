// Package airquality reads US AQI and particulate levels from the Open-Meteo
// air-quality API.
package airquality

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

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/resilience"
	"github.com/sells-group/livability-cli/internal/waterfall/provider"
)

const defaultBaseURL = "https://air-quality-api.open-meteo.com/v1"

// Strategy names used in waterfall chains.
const (
	CurrentName = "open_meteo_current"
	HistoryName = "open_meteo_history"
)

// Attribute keys emitted by both strategies.
const (
	AttrUSAQI = "us_aqi"
	AttrPM25  = "pm2_5"
	AttrPM10  = "pm10"
	AttrDust  = "dust"
	AttrDays  = "days"
)

// DefaultHistoryDays is the averaging window of the History strategy.
const DefaultHistoryDays = 30

// Option configures a strategy.
type Option func(*base)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(b *base) {
		if u != "" {
			b.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *base) { b.http = hc }
}

// WithClock overrides time.Now for the history window.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithDays sets the history averaging window.
func WithDays(days int) Option {
	return func(b *base) {
		if days > 0 {
			b.days = days
		}
	}
}

type base struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
	days    int
}

func newBase(opts []Option) base {
	b := base{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
		days:    DefaultHistoryDays,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b base) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/air-quality?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "airquality: create request")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "airquality: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus("airquality", resp.StatusCode); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "airquality: read response")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "airquality: decode response")
	}
	return nil
}

func coords(p model.Point) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(p.Lng, 'f', -1, 64)},
	}
}

// Current reads the latest hourly US AQI. It is the cheaper strategy.
type Current struct {
	base
}

// NewCurrent creates the current-conditions strategy.
func NewCurrent(opts ...Option) *Current {
	return &Current{base: newBase(opts)}
}

// Name implements provider.Strategy.
func (c *Current) Name() string { return CurrentName }

type currentResponse struct {
	Current struct {
		Time  string   `json:"time"`
		USAQI *float64 `json:"us_aqi"`
		PM25  *float64 `json:"pm2_5"`
	} `json:"current"`
}

// Query implements provider.Strategy.
func (c *Current) Query(ctx context.Context, p model.Point) (provider.Result, error) {
	params := coords(p)
	params.Set("current", "us_aqi,pm2_5")

	var resp currentResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return provider.Result{}, err
	}
	if resp.Current.USAQI == nil {
		return provider.NotFound("no current air quality reading for this point"), nil
	}

	attrs := map[string]any{AttrUSAQI: *resp.Current.USAQI}
	if resp.Current.PM25 != nil {
		attrs[AttrPM25] = *resp.Current.PM25
	}
	if resp.Current.Time != "" {
		attrs["time"] = resp.Current.Time
	}
	return provider.Result{Found: true, Attributes: attrs, ProviderLabel: CurrentName}, nil
}

// History averages hourly particulates over the configured window and
// converts mean PM2.5 into a US AQI.
type History struct {
	base
}

// NewHistory creates the history strategy.
func NewHistory(opts ...Option) *History {
	return &History{base: newBase(opts)}
}

// Name implements provider.Strategy.
func (h *History) Name() string { return HistoryName }

type historyResponse struct {
	Hourly struct {
		PM25 []*float64 `json:"pm2_5"`
		PM10 []*float64 `json:"pm10"`
		Dust []*float64 `json:"dust"`
	} `json:"hourly"`
}

// Query implements provider.Strategy.
func (h *History) Query(ctx context.Context, p model.Point) (provider.Result, error) {
	end := h.now().UTC()
	start := end.AddDate(0, 0, -h.days)

	params := coords(p)
	params.Set("hourly", "pm2_5,pm10,dust")
	params.Set("start_date", start.Format(time.DateOnly))
	params.Set("end_date", end.Format(time.DateOnly))
	params.Set("timezone", "auto")

	var resp historyResponse
	if err := h.get(ctx, params, &resp); err != nil {
		return provider.Result{}, err
	}

	pm25, ok := Average(resp.Hourly.PM25)
	if !ok {
		return provider.NotFound("no PM2.5 history for this point"), nil
	}

	attrs := map[string]any{
		AttrUSAQI: float64(PM25ToAQI(pm25)),
		AttrPM25:  pm25,
		AttrDays:  h.days,
	}
	if v, ok := Average(resp.Hourly.PM10); ok {
		attrs[AttrPM10] = v
	}
	if v, ok := Average(resp.Hourly.Dust); ok {
		attrs[AttrDust] = v
	}
	return provider.Result{Found: true, Attributes: attrs, ProviderLabel: HistoryName}, nil
}

// Average returns the mean of the non-null values.
func Average(values []*float64) (float64, bool) {
	var sum float64
	n := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// USAQI reads the us_aqi attribute from a resolved air-quality result.
func USAQI(attrs map[string]any) (float64, bool) {
	v, ok := attrs[AttrUSAQI].(float64)
	return v, ok
}
