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

const (
	StrategyRemoteOptimizer = "remote-optimizer"

	routesFieldMask = "routes.duration,routes.optimizedIntermediateWaypointIndex"
)

// ErrOpenTourUnsupported is returned when the remote optimizer is asked for an
// open path; the Routes API only optimizes between a fixed origin and destination.
var ErrOpenTourUnsupported = errors.New("remote optimizer: only closed tours are supported")

type computeRoutesRequest struct {
	Origin                waypoint   `json:"origin"`
	Destination           waypoint   `json:"destination"`
	Intermediates         []waypoint `json:"intermediates"`
	TravelMode            string     `json:"travelMode"`
	RoutingPreference     string     `json:"routingPreference"`
	OptimizeWaypointOrder bool       `json:"optimizeWaypointOrder"`
	DepartureTime         string     `json:"departureTime,omitempty"`
}

type computeRoutesResponse struct {
	Routes []struct {
		Duration                           string `json:"duration"`
		OptimizedIntermediateWaypointIndex []int  `json:"optimizedIntermediateWaypointIndex"`
	} `json:"routes"`
}

// GoogleRouteOptimizer is a ports.RouteStrategy that delegates the whole
// ordering to the Routes API computeRoutes endpoint with waypoint
// optimization. It returns no per-leg arrival times.
type GoogleRouteOptimizer struct {
	client  *apiClient
	baseURL string
	now     func() time.Time
}

var _ ports.RouteStrategy = (*GoogleRouteOptimizer)(nil)

func NewGoogleRouteOptimizer(apiKey, baseURL string, m *metrics.Metrics) (*GoogleRouteOptimizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("google api key is empty")
	}
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}

	return &GoogleRouteOptimizer{
		client: newAPIClient(googleProvider, map[string]string{
			"X-Goog-Api-Key":   apiKey,
			"X-Goog-FieldMask": routesFieldMask,
		}, m),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

func (g *GoogleRouteOptimizer) Name() string { return StrategyRemoteOptimizer }

// ComputeOrder asks the API for the best order of stops 1..N-1 on a tour
// that leaves from and returns to stop 0.
func (g *GoogleRouteOptimizer) ComputeOrder(
	ctx context.Context,
	req ports.RouteRequest,
) (_ *domain.RouteOrder, err error) {
	defer obs.Time(ctx, "google.ComputeOrder")(&err)

	if !req.ReturnToOrigin {
		return nil, ErrOpenTourUnsupported
	}

	n := len(req.Stops)
	if n < 2 {
		return &domain.RouteOrder{Order: []int{0}, Strategy: StrategyRemoteOptimizer}, nil
	}

	origin := toWaypoint(req.Stops[0])
	body := computeRoutesRequest{
		Origin:                origin,
		Destination:           origin,
		Intermediates:         make([]waypoint, 0, n-1),
		TravelMode:            "DRIVE",
		RoutingPreference:     "TRAFFIC_AWARE",
		OptimizeWaypointOrder: true,
		DepartureTime:         departureTime(req.DepartAt, g.now()),
	}
	for _, s := range req.Stops[1:] {
		body.Intermediates = append(body.Intermediates, toWaypoint(s))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal compute routes request: %w", err)
	}

	endpoint := g.baseURL + "/directions/v2:computeRoutes"
	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		return g.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("compute routes request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, invalidResponse(googleProvider, "decode compute routes response: %v", err)
	}
	if len(decoded.Routes) == 0 {
		return nil, invalidResponse(googleProvider, "no route returned")
	}

	route := decoded.Routes[0]
	total, err := parseGoogleDuration(route.Duration)
	if err != nil {
		return nil, invalidResponse(googleProvider, "route duration: %v", err)
	}

	order, err := tourFromWaypointIndex(route.OptimizedIntermediateWaypointIndex, n-1)
	if err != nil {
		return nil, err
	}

	return &domain.RouteOrder{
		Order:        order,
		TotalSeconds: total,
		Strategy:     StrategyRemoteOptimizer,
	}, nil
}

// tourFromWaypointIndex turns the optimized intermediate permutation into a
// closed stop-index tour [0, ..., 0]. Intermediate i is stop i+1.
func tourFromWaypointIndex(idx []int, intermediates int) ([]int, error) {
	if len(idx) == 0 && intermediates == 1 {
		idx = []int{0}
	}
	if len(idx) != intermediates {
		return nil, invalidResponse(googleProvider, "optimized order has %d entries, want %d", len(idx), intermediates)
	}

	seen := make([]bool, intermediates)
	order := make([]int, 0, intermediates+2)
	order = append(order, 0)
	for _, i := range idx {
		if i < 0 || i >= intermediates || seen[i] {
			return nil, invalidResponse(googleProvider, "optimized order is not a permutation: %v", idx)
		}
		seen[i] = true
		order = append(order, i+1)
	}
	order = append(order, 0)

	return order, nil
}
