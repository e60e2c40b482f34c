package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/metrics"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const matrixFieldMask = "originIndex,destinationIndex,duration,distanceMeters,status,condition"

type routeMatrixOrigin struct {
	Waypoint waypoint `json:"waypoint"`
}

type routeMatrixDestination struct {
	Waypoint waypoint `json:"waypoint"`
}

type routeMatrixRequest struct {
	Origins           []routeMatrixOrigin      `json:"origins"`
	Destinations      []routeMatrixDestination `json:"destinations"`
	TravelMode        string                   `json:"travelMode"`
	RoutingPreference string                   `json:"routingPreference"`
	DepartureTime     string                   `json:"departureTime,omitempty"`
}

type elementStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type routeMatrixElement struct {
	OriginIndex      int            `json:"originIndex"`
	DestinationIndex int            `json:"destinationIndex"`
	Status           *elementStatus `json:"status"`
	DistanceMeters   int            `json:"distanceMeters"`
	Duration         string         `json:"duration"`
	Condition        string         `json:"condition"`
}

// GoogleMatrixProvider implements ports.TravelTimeMatrixProvider on the
// Google Routes computeRouteMatrix endpoint with traffic-aware durations.
//
// The provider is safe for concurrent use.
type GoogleMatrixProvider struct {
	client  *apiClient
	baseURL string
	now     func() time.Time
}

var _ ports.TravelTimeMatrixProvider = (*GoogleMatrixProvider)(nil)

func NewGoogleMatrixProvider(apiKey, baseURL string, m *metrics.Metrics) (*GoogleMatrixProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("google api key is empty")
	}
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}

	return &GoogleMatrixProvider{
		client: newAPIClient(googleProvider, map[string]string{
			"X-Goog-Api-Key":   apiKey,
			"X-Goog-FieldMask": matrixFieldMask,
		}, m),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// FetchDurations returns the N×N matrix of traffic-aware driving seconds
// between stops when leaving at departAt. Diagonal entries are zero.
func (g *GoogleMatrixProvider) FetchDurations(
	ctx context.Context,
	stops []domain.Stop,
	departAt time.Time,
) (_ [][]int, err error) {
	defer obs.Time(ctx, "google.FetchDurations")(&err)

	n := len(stops)
	if n == 0 {
		return [][]int{}, nil
	}

	body := routeMatrixRequest{
		Origins:           make([]routeMatrixOrigin, 0, n),
		Destinations:      make([]routeMatrixDestination, 0, n),
		TravelMode:        "DRIVE",
		RoutingPreference: "TRAFFIC_AWARE",
		DepartureTime:     departureTime(departAt, g.now()),
	}
	for _, s := range stops {
		wp := toWaypoint(s)
		body.Origins = append(body.Origins, routeMatrixOrigin{Waypoint: wp})
		body.Destinations = append(body.Destinations, routeMatrixDestination{Waypoint: wp})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal route matrix request: %w", err)
	}

	endpoint := g.baseURL + "/distanceMatrix/v2:computeRouteMatrix"
	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		return g.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("route matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var elements []routeMatrixElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, invalidResponse(googleProvider, "decode route matrix response: %v", err)
	}

	return assembleMatrix(n, elements)
}

// assembleMatrix places each element at [origin][destination] and requires
// every off-diagonal pair to be present and routable.
func assembleMatrix(n int, elements []routeMatrixElement) ([][]int, error) {
	matrix := make([][]int, n)
	seen := make([][]bool, n)
	for i := range matrix {
		matrix[i] = make([]int, n)
		seen[i] = make([]bool, n)
	}

	for _, e := range elements {
		o, d := e.OriginIndex, e.DestinationIndex
		if o < 0 || o >= n || d < 0 || d >= n {
			return nil, invalidResponse(googleProvider, "element index out of range origin=%d destination=%d n=%d", o, d, n)
		}
		if o == d {
			continue
		}
		if e.Status != nil && e.Status.Code != 0 {
			return nil, invalidResponse(googleProvider, "element %d->%d failed: code=%d %s", o, d, e.Status.Code, e.Status.Message)
		}
		if e.Condition == "ROUTE_NOT_FOUND" {
			return nil, invalidResponse(googleProvider, "no route between stops %d and %d", o, d)
		}

		secs, err := parseGoogleDuration(e.Duration)
		if err != nil {
			return nil, invalidResponse(googleProvider, "element %d->%d: %v", o, d, err)
		}

		matrix[o][d] = secs
		seen[o][d] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && !seen[i][j] {
				return nil, invalidResponse(googleProvider, "missing element %d->%d", i, j)
			}
		}
	}

	return matrix, nil
}
