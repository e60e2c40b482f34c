package services

import (
	"context"
	"errors"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/metrics"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
	"time"
)

const StrategyLocalSearch = "local-search"

// LocalSearchStrategy orders stops over a time-bucketed cost model built from
// a travel-time matrix provider. Small inputs get the exact branch-and-bound
// search; inputs above MaxExhaustiveStops fall back to the greedy walk.
type LocalSearchStrategy struct {
	Provider ports.TravelTimeMatrixProvider
	// Zero disables the greedy fallback.
	MaxExhaustiveStops int
	// Zero keeps the exact search single-threaded.
	ParallelThreshold int
	Metrics           *metrics.Metrics
}

var _ ports.RouteStrategy = (*LocalSearchStrategy)(nil)

func (s *LocalSearchStrategy) Name() string { return StrategyLocalSearch }

func (s *LocalSearchStrategy) ComputeOrder(
	ctx context.Context,
	req ports.RouteRequest,
) (_ *domain.RouteOrder, err error) {
	defer obs.Time(ctx, "local.ComputeOrder")(&err)

	if s.Provider == nil {
		return nil, errors.New("local search: provider is nil")
	}

	n := len(req.Stops)
	if n == 0 {
		return nil, fmt.Errorf("local search: %w", domain.ErrNoAddresses)
	}
	if n > domain.MaxStops {
		return nil, fmt.Errorf("local search: %d stops: %w", n, domain.ErrTooManyStops)
	}

	model, err := BuildCostModel(ctx, s.Provider, req.Stops, req.DepartAt)
	if err != nil {
		return nil, fmt.Errorf("local search: %w", err)
	}

	start := time.Now()
	order := s.search(model, req.ReturnToOrigin)
	s.Metrics.ObserveSearch(order.Strategy, n, time.Since(start).Seconds())

	order.ArrivalSeconds = ArrivalTimes(model, order.Order)

	return &order, nil
}

func (s *LocalSearchStrategy) search(model *domain.TimeBucketedCostModel, returnToOrigin bool) domain.RouteOrder {
	n := model.Size()
	switch {
	case s.MaxExhaustiveStops > 0 && n > s.MaxExhaustiveStops:
		return NearestNeighborRoute(model, returnToOrigin)
	case s.ParallelThreshold > 0 && n >= s.ParallelThreshold:
		return FindOptimalRouteParallel(model, returnToOrigin)
	default:
		return FindOptimalRoute(model, returnToOrigin)
	}
}

// ArrivalTimes replays order against the model and returns the elapsed
// seconds on reaching each position; the first entry is always 0.
func ArrivalTimes(model *domain.TimeBucketedCostModel, order []int) []int {
	if len(order) == 0 {
		return nil
	}

	out := make([]int, len(order))
	elapsed := 0
	for i := 1; i < len(order); i++ {
		elapsed += model.TravelTime(elapsed, order[i-1], order[i])
		out[i] = elapsed
	}
	return out
}
