package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/resilience"
)

var googleplex = model.Point{Lat: 37.419734, Lng: -122.0827784}

func TestReverse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "37.419734", r.URL.Query().Get("lat"))
		assert.Equal(t, "-122.0827784", r.URL.Query().Get("lon"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "livability-test/0.1 (ops@example.com)", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{
			"place_id": 123456,
			"display_name": "1600 Amphitheatre Parkway, Mountain View, CA 94043, USA",
			"lat": "37.4220", "lon": "-122.0841",
			"address": {"road": "Amphitheatre Parkway", "town": "Mountain View", "state": "California", "postcode": "94043"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(
		WithHTTPClient(newRewriteClient(srv.URL, defaultBaseURL)),
		WithUserAgent("livability-test/0.1 (ops@example.com)"),
		WithLimiter(newTestLimiter()),
	)
	place, err := c.Reverse(context.Background(), googleplex)
	require.NoError(t, err)

	assert.Equal(t, int64(123456), place.PlaceID)
	assert.Contains(t, place.DisplayName, "Mountain View")
	assert.Equal(t, "Mountain View", place.City())
	assert.Equal(t, "94043", place.Address["postcode"])
}

func TestReverse_UnableToGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithLimiter(newTestLimiter()))
	_, err := c.Reverse(context.Background(), model.Point{Lat: 0, Lng: -150})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoAddress))
}

func TestReverse_Throttled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithLimiter(newTestLimiter()))
	_, err := c.Reverse(context.Background(), googleplex)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestReverse_RateLimited(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"place_id":1,"display_name":"x"}`))
	}))
	defer srv.Close()

	// One token, refilled far in the future: the second call must wait and
	// hit the context deadline instead.
	c := NewClient(WithBaseURL(srv.URL), WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	_, err := c.Reverse(context.Background(), googleplex)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Reverse(ctx, googleplex)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPlace_City(t *testing.T) {
	assert.Equal(t, "Springfield", (&Place{Address: map[string]string{"city": "Springfield", "county": "Sangamon"}}).City())
	assert.Equal(t, "Sangamon", (&Place{Address: map[string]string{"county": "Sangamon"}}).City())
	assert.Empty(t, (&Place{}).City())
}
