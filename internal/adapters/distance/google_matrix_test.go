package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fastest-route-service/internal/domain"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestMatrixProvider(t *testing.T, h http.HandlerFunc) *GoogleMatrixProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := NewGoogleMatrixProvider("test-key", srv.URL, nil)
	require.NoError(t, err)
	p.client.backoff = time.Millisecond
	p.now = func() time.Time { return fixedNow }
	return p
}

func testStops() []domain.Stop {
	return domain.BuildStops(&domain.Coordinates{Lat: 44.43, Lon: 26.1}, []string{"Piata Unirii", "Gara de Nord"})
}

// writeElements answers with duration (i+1)*100 + j for every ordered pair.
func writeElements(w http.ResponseWriter, n int) {
	elements := make([]map[string]any, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e := map[string]any{
				"destinationIndex": j,
				"condition":        "ROUTE_EXISTS",
				"status":           map[string]any{},
			}
			if i != 0 {
				e["originIndex"] = i
			}
			if i != j {
				e["duration"] = fmt.Sprintf("%ds", (i+1)*100+j)
			}
			elements = append(elements, e)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(elements)
}

func TestGoogleMatrixFetchDurations(t *testing.T) {
	var got routeMatrixRequest
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/distanceMatrix/v2:computeRouteMatrix", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, matrixFieldMask, r.Header.Get("X-Goog-FieldMask"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeElements(w, len(got.Origins))
	})

	depart := fixedNow.Add(30 * time.Minute)
	m, err := p.FetchDurations(context.Background(), testStops(), depart)
	require.NoError(t, err)

	assert.Equal(t, [][]int{
		{0, 101, 102},
		{200, 0, 202},
		{300, 301, 0},
	}, m)

	require.Len(t, got.Origins, 3)
	require.NotNil(t, got.Origins[0].Waypoint.Location)
	assert.Equal(t, 44.43, got.Origins[0].Waypoint.Location.LatLng.Latitude)
	assert.Equal(t, "Piata Unirii", got.Destinations[1].Waypoint.Address)
	assert.Equal(t, "DRIVE", got.TravelMode)
	assert.Equal(t, "TRAFFIC_AWARE", got.RoutingPreference)
	assert.Equal(t, "2026-03-02T08:30:00Z", got.DepartureTime)
}

func TestGoogleMatrixOmitsDepartureTimeNotInFuture(t *testing.T) {
	var raw map[string]any
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeElements(w, 3)
	})

	_, err := p.FetchDurations(context.Background(), testStops(), fixedNow)
	require.NoError(t, err)

	_, present := raw["departureTime"]
	assert.False(t, present)
}

func TestGoogleMatrixRouteNotFound(t *testing.T) {
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"destinationIndex":1,"duration":"10s","condition":"ROUTE_EXISTS"},
			{"originIndex":1,"condition":"ROUTE_NOT_FOUND"}
		]`))
	})

	_, err := p.FetchDurations(context.Background(), testStops()[:2], fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderResponse), "got %v", err)
}

func TestGoogleMatrixMissingElement(t *testing.T) {
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"destinationIndex":1,"duration":"10s","condition":"ROUTE_EXISTS"}]`))
	})

	_, err := p.FetchDurations(context.Background(), testStops()[:2], fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderResponse), "got %v", err)
	assert.Contains(t, err.Error(), "missing element 1->0")
}

func TestGoogleMatrixRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		writeElements(w, 2)
	})

	m, err := p.FetchDurations(context.Background(), testStops()[:2], fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 101, m[0][1])
}

func TestGoogleMatrixExhaustedRetriesAreUnavailable(t *testing.T) {
	var calls atomic.Int32
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := p.FetchDurations(context.Background(), testStops()[:2], fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable), "got %v", err)
	assert.Equal(t, int32(p.client.maxAttempts), calls.Load())
}

func TestGoogleMatrixClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestMatrixProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusBadRequest)
	})

	_, err := p.FetchDurations(context.Background(), testStops()[:2], fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderResponse), "got %v", err)

	var he *httpStatusError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleMatrixUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewGoogleMatrixProvider("k", url, nil)
	require.NoError(t, err)
	p.client.backoff = time.Millisecond

	_, err = p.FetchDurations(context.Background(), testStops()[:2], fixedNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable), "got %v", err)
}

func TestNewGoogleMatrixProviderRequiresKey(t *testing.T) {
	_, err := NewGoogleMatrixProvider("  ", "", nil)
	require.Error(t, err)
}

func TestParseGoogleDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"123s", 123, false},
		{"", 0, false},
		{"0s", 0, false},
		{"1.6s", 2, false},
		{"123", 0, true},
		{"abcs", 0, true},
		{"-5s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseGoogleDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
