package ipapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/geolocation"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLocate_Success(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/49.207.50.1", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "lat")
		_, _ = io.WriteString(w, `{"status":"success","lat":12.9719,"lon":77.5937,"city":"Bengaluru"}`)
	})

	pos, err := c.Locate(context.Background(), "49.207.50.1")
	require.NoError(t, err)

	assert.Equal(t, 12.9719, pos.Lat)
	assert.Equal(t, 77.5937, pos.Lon)
	assert.Equal(t, domain.AccuracyLow, pos.Accuracy)
}

func TestLocate_EmptyIPUsesCallerAddress(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"success","lat":1,"lon":2}`)
	})

	_, err := c.Locate(context.Background(), "")
	require.NoError(t, err)
}

func TestLocate_RejectedIsUnavailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"fail","message":"private range"}`)
	})

	_, err := c.Locate(context.Background(), "10.0.0.1")

	var locErr *domain.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, domain.LocationUnavailable, locErr.Kind)
}

func TestLocate_HTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Locate(context.Background(), "49.207.50.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSource_DrivesAcquirer(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","lat":12.97,"lon":77.59}`)
	})
	a := geolocation.NewAcquirer(c.Source("49.207.50.1"), clockwork.NewRealClock(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	pos, err := a.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.97, pos.Lat)
	assert.Equal(t, geolocation.StateSuccess, a.State())
}
