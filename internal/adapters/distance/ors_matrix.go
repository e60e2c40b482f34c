package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
	"math"
	"net/http"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// fetchFullMatrix retrieves distance and duration between every pair of
// locations with one call to the OpenRouteService matrix endpoint.
func (o *ORSMatrixProvider) fetchFullMatrix(
	ctx context.Context,
	coords []domain.Coordinates,
) (_ [][]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.fetchFullMatrix")(&err)

	n := len(coords)
	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	locations := make([][]float64, 0, n)
	for _, c := range coords {
		locations = append(locations, c.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.client.doWithRetry(ctx, func() (*http.Request, error) {
		return o.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, invalidResponse(orsProvider, "decode matrix response: %v", err)
	}

	if len(mr.Distances) != n || len(mr.Durations) != n {
		return nil, invalidResponse(orsProvider,
			"expected %d rows; got distances=%d durations=%d",
			n, len(mr.Distances), len(mr.Durations),
		)
	}

	out := make([][]ports.DistanceResult, n)
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return nil, invalidResponse(orsProvider,
				"row %d lengths do not match locations: distances=%d durations=%d locations=%d",
				i, len(mr.Distances[i]), len(mr.Durations[i]), n,
			)
		}

		out[i] = make([]ports.DistanceResult, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}

			metersPtr := mr.Distances[i][j]
			secondsPtr := mr.Durations[i][j]
			if metersPtr == nil || secondsPtr == nil {
				return nil, invalidResponse(orsProvider, "no route between locations %d and %d", i, j)
			}

			// ORS returns float metrics; round to nearest integer for domain consistency.
			out[i][j] = ports.DistanceResult{
				DistanceMeters:  int(math.Round(*metersPtr)),
				DurationSeconds: int(math.Round(*secondsPtr)),
			}
		}
	}

	return out, nil
}
