package services

import (
	"context"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/ports"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// BucketDeparture returns the departure time sampled by bucket k.
func BucketDeparture(departAt time.Time, k int) time.Time {
	return departAt.Add(time.Duration(k) * domain.HalfHour * time.Second)
}

// BuildCostModel fetches one travel-time matrix per departure sample and
// assembles the cost model. The four fetches run concurrently; the first
// failure cancels the rest and no partially filled model is ever returned.
func BuildCostModel(
	ctx context.Context,
	provider ports.TravelTimeMatrixProvider,
	stops []domain.Stop,
	departAt time.Time,
) (_ *domain.TimeBucketedCostModel, err error) {
	defer obs.Time(ctx, "costmodel.Build")(&err)

	var buckets [domain.BucketCount][][]int

	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < domain.BucketCount; k++ {
		g.Go(func() error {
			m, err := provider.FetchDurations(gctx, stops, BucketDeparture(departAt, k))
			if err != nil {
				return fmt.Errorf("fetch bucket %d: %w", k, err)
			}
			buckets[k] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build cost model: %w", err)
	}

	model, err := domain.NewCostModel(len(stops), buckets)
	if err != nil {
		return nil, fmt.Errorf("build cost model: %w", err)
	}

	return model, nil
}
