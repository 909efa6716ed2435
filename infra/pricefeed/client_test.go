package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/auth"
)

const dayFile = `[
 {"SEK_per_kWh":0.41,"EUR_per_kWh":0.036,"EXR":11.4,"time_start":"2025-01-14T00:00:00+01:00","time_end":"2025-01-14T01:00:00+01:00"},
 {"SEK_per_kWh":0.38,"EUR_per_kWh":0.033,"EXR":11.4,"time_start":"2025-01-14T01:00:00+01:00"},
 {"SEK_per_kWh":0.5,"time_start":"garbage","time_end":"2025-01-14T03:00:00+01:00"},
 {"EUR_per_kWh":0.1,"time_start":"2025-01-14T03:00:00+01:00","time_end":"2025-01-14T04:00:00+01:00"}
]`

func TestClientFetch(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(dayFile))
	}))
	defer srv.Close()

	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	c := New(Config{BaseURL: srv.URL + "/api/v1/prices/", Zone: "SE3"}, loc)

	day := time.Date(2025, 1, 13, 23, 30, 0, 0, time.UTC)
	got, err := c.Fetch(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/prices/2025/01-14_SE3.json", path)

	require.Len(t, got, 3)
	assert.Equal(t, 0.41, got[0].Price)
	assert.True(t, got[0].TimeStart.Equal(time.Date(2025, 1, 13, 23, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].TimeEnd.IsZero())
	assert.True(t, got[2].TimeStart.IsZero())
}

func TestClientFetchEUR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dayFile))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Currency: "eur"}, time.UTC)
	got, err := c.Fetch(context.Background(), time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0.1, got[2].Price)
}

func TestClientFetchErrors(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL}, time.UTC)

	_, err := c.Fetch(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNotPublished)

	status = http.StatusBadGateway
	_, err = c.Fetch(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestURLDefaults(t *testing.T) {
	c := New(Config{}, time.UTC)
	assert.Equal(t, "https://www.elprisetjustnu.se/api/v1/prices/2025/03-07_SE3.json",
		c.URL(time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)))
}

func TestClientFetchWithClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/prices/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(dayFile))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{
		BaseURL: srv.URL + "/prices",
		Auth:    auth.Conf{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/token"},
	}, time.UTC)
	got, err := c.Fetch(context.Background(), time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
