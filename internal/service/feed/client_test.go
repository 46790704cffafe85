package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/pkg/config"
	"spotwatch/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(config.Feed{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Symbol:  "XAU",
		Timeout: 2 * time.Second,
	}, logger.Nop())
	return c, srv
}

func TestFetchSpot(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/spot/XAU", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"XAU","price":2387.55,"ts":1718712000000}`))
	})

	reading, err := c.FetchSpot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2387.55, reading.Price)
	assert.Equal(t, time.UnixMilli(1718712000000), reading.ObservedAt)
}

func TestFetchSpotRejectsNonPositivePrice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"XAU","price":0}`))
	})

	_, err := c.FetchSpot(context.Background())
	assert.ErrorContains(t, err, "non-positive price")
}

func TestFetchSpotServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	_, err := c.FetchSpot(context.Background())
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestCloseForDate(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/history/XAU/close", r.URL.Path)
		assert.Equal(t, "2025-06-17", r.URL.Query().Get("date"))
		w.Write([]byte(`{"symbol":"XAU","date":"2025-06-17","close":2380.10}`))
	})

	price, found, err := c.CloseForDate(context.Background(), time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2380.10, price)
}

func TestCloseForDateMissing(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
		_, found, err := c.CloseForDate(context.Background(), time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err, "a missing date is not a transport failure")
		assert.False(t, found)
	})

	t.Run("zero placeholder", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"symbol":"XAU","date":"2025-06-15","close":0}`))
		})
		_, found, err := c.CloseForDate(context.Background(), time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestCloseForDateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := New(config.Feed{BaseURL: srv.URL, APIKey: "k", Symbol: "XAU", Timeout: time.Second}, logger.Nop())

	_, _, err := c.CloseForDate(context.Background(), time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}
