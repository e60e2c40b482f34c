package distance

import (
	"context"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/metrics"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	orsProvider       = "ors"
	orsDefaultBaseURL = "https://api.openrouteservice.org"
	orsDefaultProfile = "driving-car"

	// orsSharedFetchTimeout bounds one collapsed upstream fetch.
	orsSharedFetchTimeout = 30 * time.Second
)

// ORSMatrixProvider implements ports.TravelTimeMatrixProvider using OpenRouteService.
//
// It coordinates:
//   - Persistent geocode caching for address stops
//   - Persistent per-leg distance caching
//   - A single full-matrix call for any cache misses
//   - Collapsing of concurrent identical fetches
//
// ORS has no traffic model, so every departure time yields the same matrix;
// the four bucket fetches of one cost model share a single upstream call.
//
// The provider is safe for concurrent use.
type ORSMatrixProvider struct {
	client        *apiClient
	baseURL       string
	profile       string
	distanceCache ports.DistanceCache
	geocodeCache  ports.GeocodeCache
	group         singleflight.Group
}

var _ ports.TravelTimeMatrixProvider = (*ORSMatrixProvider)(nil)

func NewORSMatrixProvider(
	apiKey string,
	baseURL string,
	profile string,
	distanceCache ports.DistanceCache,
	geocodeCache ports.GeocodeCache,
	m *metrics.Metrics,
) (*ORSMatrixProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = orsDefaultBaseURL
	}
	if profile == "" {
		profile = orsDefaultProfile
	}

	provider := &ORSMatrixProvider{
		client:        newAPIClient(orsProvider, map[string]string{"Authorization": apiKey}, m),
		baseURL:       strings.TrimRight(baseURL, "/"),
		profile:       profile,
		distanceCache: distanceCache,
		geocodeCache:  geocodeCache,
	}

	return provider, nil
}

// stopKey is the cache key of a stop: its address text, or "lat,lon" for a fix.
func stopKey(s domain.Stop) string {
	if s.Coordinates != nil {
		return s.Coordinates.LatLonString()
	}
	return domain.NormalizeAddress(s.Label)
}

// FetchDurations returns the N×N matrix of driving seconds between stops.
// departAt is accepted for interface compatibility and otherwise ignored.
func (o *ORSMatrixProvider) FetchDurations(
	ctx context.Context,
	stops []domain.Stop,
	_ time.Time,
) (_ [][]int, err error) {
	defer obs.Time(ctx, "ors.FetchDurations")(&err)

	if len(stops) == 0 {
		return [][]int{}, nil
	}

	keys := make([]string, len(stops))
	for i, s := range stops {
		keys[i] = stopKey(s)
		if keys[i] == "" {
			return nil, fmt.Errorf("ors fetch durations: stop %d is empty", i)
		}
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := o.group.DoChan(strings.Join(keys, "\x1f"), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orsSharedFetchTimeout)
		defer cancel()
		return o.fetchMatrix(fctx, stops, keys)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ors fetch durations: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyMatrix(res.Val.([][]int)), nil
	}
}

func (o *ORSMatrixProvider) fetchMatrix(
	ctx context.Context,
	stops []domain.Stop,
	keys []string,
) ([][]int, error) {
	// Serve entirely from the distance cache when every leg is known.
	if m, ok := o.cachedMatrix(ctx, keys); ok {
		return m, nil
	}

	coords, err := o.resolveCoordinates(ctx, stops, keys)
	if err != nil {
		return nil, fmt.Errorf("retrieving coordinates: %w", err)
	}

	legs, err := o.fetchFullMatrix(ctx, coords)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix: %w", err)
	}

	n := len(keys)
	out := make([][]int, n)
	for i := range legs {
		out[i] = make([]int, n)
		row := make(map[string]ports.DistanceResult, n-1)
		for j, leg := range legs[i] {
			if i == j {
				continue
			}
			out[i][j] = leg.DurationSeconds
			row[keys[j]] = leg
		}

		if o.distanceCache != nil && len(row) > 0 {
			if err := o.distanceCache.PutMany(ctx, keys[i], row); err != nil {
				log.Printf("distance cache write failed: origin=%q err=%v", keys[i], err)
			}
		}
	}

	return out, nil
}

// cachedMatrix assembles the matrix from the distance cache. Cache read
// failures are logged and treated as misses.
func (o *ORSMatrixProvider) cachedMatrix(ctx context.Context, keys []string) ([][]int, bool) {
	if o.distanceCache == nil || len(keys) < 2 {
		return nil, false
	}

	n := len(keys)
	out := make([][]int, n)
	for i, origin := range keys {
		others := make([]string, 0, n-1)
		for j, k := range keys {
			if j != i {
				others = append(others, k)
			}
		}

		hits, err := o.distanceCache.GetMany(ctx, origin, others)
		if err != nil {
			log.Printf("distance cache read failed: origin=%q err=%v", origin, err)
			return nil, false
		}

		out[i] = make([]int, n)
		for j, k := range keys {
			if j == i {
				continue
			}
			r, ok := hits[k]
			if !ok {
				return nil, false
			}
			out[i][j] = r.DurationSeconds
		}
	}

	return out, true
}

// resolveCoordinates returns one coordinate per stop, geocoding address stops
// through the geocode cache first.
func (o *ORSMatrixProvider) resolveCoordinates(
	ctx context.Context,
	stops []domain.Stop,
	keys []string,
) ([]domain.Coordinates, error) {
	addresses := make([]string, 0, len(stops))
	for i, s := range stops {
		if s.Coordinates == nil {
			addresses = append(addresses, keys[i])
		}
	}

	geocodeHits := make(map[string]domain.Coordinates)
	if o.geocodeCache != nil && len(addresses) > 0 {
		var err error
		geocodeHits, err = o.geocodeCache.GetMany(ctx, addresses)
		if err != nil {
			return nil, fmt.Errorf("ORS get geocode cache: %w", err)
		}
	}

	geocodeMisses := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if _, ok := geocodeHits[a]; !ok {
			geocodeMisses = append(geocodeMisses, a)
		}
	}

	fresh := make(map[string]domain.Coordinates)
	if len(geocodeMisses) > 0 {
		var err error
		fresh, err = o.geocodeMany(ctx, geocodeMisses)
		if err != nil {
			return nil, err
		}
	}

	if o.geocodeCache != nil && len(fresh) > 0 {
		if err := o.geocodeCache.PutMany(ctx, fresh); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	coords := make([]domain.Coordinates, len(stops))
	for i, s := range stops {
		if s.Coordinates != nil {
			coords[i] = *s.Coordinates
			continue
		}

		c, ok := geocodeHits[keys[i]]
		if !ok {
			c, ok = fresh[keys[i]]
		}
		if !ok {
			return nil, fmt.Errorf("missing coordinate for %q", keys[i])
		}
		coords[i] = c
	}

	return coords, nil
}

func copyMatrix(m [][]int) [][]int {
	out := make([][]int, len(m))
	for i, row := range m {
		out[i] = append([]int(nil), row...)
	}
	return out
}
