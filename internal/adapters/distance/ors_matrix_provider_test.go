package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/ports"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDistanceCache struct {
	mu sync.Mutex
	m  map[string]map[string]ports.DistanceResult
}

func newMemDistanceCache() *memDistanceCache {
	return &memDistanceCache{m: map[string]map[string]ports.DistanceResult{}}
}

func (c *memDistanceCache) GetMany(_ context.Context, origin string, dests []string) (map[string]ports.DistanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]ports.DistanceResult{}
	for _, d := range dests {
		if r, ok := c.m[origin][d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *memDistanceCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[origin] == nil {
		c.m[origin] = map[string]ports.DistanceResult{}
	}
	for k, v := range results {
		c.m[origin][k] = v
	}
	return nil
}

type memGeocodeCache struct {
	mu sync.Mutex
	m  map[string]domain.Coordinates
}

func (c *memGeocodeCache) GetMany(_ context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if v, ok := c.m[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memGeocodeCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

type orsFake struct {
	geocodeCalls atomic.Int32
	matrixCalls  atomic.Int32
	places       map[string][2]float64
}

func (f *orsFake) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ors-key", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/geocode/search":
			f.geocodeCalls.Add(1)
			c, ok := f.places[r.URL.Query().Get("text")]
			if !ok {
				_, _ = w.Write([]byte(`{"features":[]}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"features": []any{map[string]any{"geometry": map[string]any{"coordinates": []float64{c[0], c[1]}}}},
			})
		case "/v2/matrix/driving-car":
			f.matrixCalls.Add(1)
			var req matrixRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			n := len(req.Locations)
			durations := make([][]float64, n)
			distances := make([][]float64, n)
			for i := range durations {
				durations[i] = make([]float64, n)
				distances[i] = make([]float64, n)
				for j := range durations[i] {
					if i != j {
						durations[i][j] = float64(60*(i+1)+j) + 0.4
						distances[i][j] = 1000.6
					}
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"durations": durations, "distances": distances})
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestORS(t *testing.T, f *orsFake, dc ports.DistanceCache, gc ports.GeocodeCache) *ORSMatrixProvider {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	p, err := NewORSMatrixProvider("ors-key", srv.URL, "", dc, gc, nil)
	require.NoError(t, err)
	p.client.backoff = time.Millisecond
	return p
}

func TestORSFetchDurations(t *testing.T) {
	f := &orsFake{places: map[string][2]float64{
		"Piata Unirii": {26.10, 44.42},
		"Gara de Nord": {26.07, 44.44},
	}}
	dc := newMemDistanceCache()
	gc := &memGeocodeCache{m: map[string]domain.Coordinates{}}
	p := newTestORS(t, f, dc, gc)

	stops := domain.BuildStops(&domain.Coordinates{Lat: 44.43, Lon: 26.1}, []string{"Piata Unirii", "Gara de Nord"})

	m, err := p.FetchDurations(context.Background(), stops, time.Now())
	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{0, 61, 62},
		{120, 0, 122},
		{180, 181, 0},
	}, m)
	assert.Equal(t, int32(2), f.geocodeCalls.Load())
	assert.Equal(t, int32(1), f.matrixCalls.Load())

	assert.Equal(t, domain.Coordinates{Lon: 26.10, Lat: 44.42}, gc.m["Piata Unirii"])
	assert.Equal(t, 1001, dc.m["44.43,26.1"]["Gara de Nord"].DistanceMeters)

	// The second fetch is served from the distance cache.
	again, err := p.FetchDurations(context.Background(), stops, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, m, again)
	assert.Equal(t, int32(1), f.matrixCalls.Load())
	assert.Equal(t, int32(2), f.geocodeCalls.Load())
}

func TestORSUsesGeocodeCache(t *testing.T) {
	f := &orsFake{places: map[string][2]float64{}}
	gc := &memGeocodeCache{m: map[string]domain.Coordinates{
		"A St": {Lon: 1, Lat: 2},
		"B St": {Lon: 3, Lat: 4},
	}}
	p := newTestORS(t, f, nil, gc)

	m, err := p.FetchDurations(context.Background(), domain.BuildStops(nil, []string{"A St", "B St"}), time.Now())
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 61}, {120, 0}}, m)
	assert.Equal(t, int32(0), f.geocodeCalls.Load())
}

func TestORSUnknownAddress(t *testing.T) {
	f := &orsFake{places: map[string][2]float64{"A St": {1, 2}}}
	p := newTestORS(t, f, nil, nil)

	_, err := p.FetchDurations(context.Background(), domain.BuildStops(nil, []string{"A St", "Nowhere"}), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAddressNotFound), "got %v", err)
	assert.Equal(t, int32(0), f.matrixCalls.Load())
}

func TestORSUnroutablePair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"durations":[[0,null],[5,0]],"distances":[[0,1],[1,0]]}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewORSMatrixProvider("ors-key", srv.URL, "", nil, nil, nil)
	require.NoError(t, err)

	stops := []domain.Stop{
		{Label: "a", Coordinates: &domain.Coordinates{Lat: 1, Lon: 1}},
		{Label: "b", Coordinates: &domain.Coordinates{Lat: 2, Lon: 2}},
	}
	_, err = p.FetchDurations(context.Background(), stops, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderResponse), "got %v", err)
}

func TestORSConcurrentFetchesReturnIndependentMatrices(t *testing.T) {
	f := &orsFake{places: map[string][2]float64{"A St": {1, 2}, "B St": {3, 4}, "C St": {5, 6}}}
	p := newTestORS(t, f, nil, nil)
	stops := domain.BuildStops(nil, []string{"A St", "B St", "C St"})

	var wg sync.WaitGroup
	results := make([][][]int, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := p.FetchDurations(context.Background(), stops, time.Now())
			assert.NoError(t, err)
			results[i] = m
		}()
	}
	wg.Wait()

	for _, m := range results {
		assert.Equal(t, results[0], m)
	}
	results[0][0][1] = -1
	assert.NotEqual(t, -1, results[1][0][1])
	assert.LessOrEqual(t, f.matrixCalls.Load(), int32(4))
}

func TestORSCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	f := &orsFake{}
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	inner := f.handler(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		inner(w, r)
	}))
	t.Cleanup(srv.Close)

	p, err := NewORSMatrixProvider("ors-key", srv.URL, "", nil, nil, nil)
	require.NoError(t, err)

	stops := []domain.Stop{
		{Label: "a", Coordinates: &domain.Coordinates{Lat: 1, Lon: 1}},
		{Label: "b", Coordinates: &domain.Coordinates{Lat: 2, Lon: 2}},
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := p.FetchDurations(ctxA, stops, time.Now())
		errA <- err
	}()

	<-started

	type result struct {
		m   [][]int
		err error
	}
	resB := make(chan result, 1)
	go func() {
		m, err := p.FetchDurations(context.Background(), stops, time.Now())
		resB <- result{m, err}
	}()
	// Let the second caller join the in-flight fetch before the first gives up.
	time.Sleep(50 * time.Millisecond)

	cancelA()

	select {
	case err := <-errA:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("cancelled caller did not return")
	}

	close(release)

	select {
	case got := <-resB:
		require.NoError(t, got.err)
		assert.Equal(t, [][]int{{0, 61}, {120, 0}}, got.m)
	case <-time.After(5 * time.Second):
		t.Fatal("caller did not receive the shared matrix")
	}
	assert.Equal(t, int32(1), f.matrixCalls.Load())
}
