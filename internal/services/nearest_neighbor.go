package services

import (
	"fastest-route-service/internal/domain"
	"math"
)

const StrategyNearestNeighbor = "nearest-neighbor"

// Plan a visiting order using a greedy nearest-neighbor walk over the cost model.
//
// At each step the stop with the smallest travel time at the current elapsed
// time is chosen. It does not attempt global optimization and is used only when
// the stop count makes the exhaustive search impractical.
func NearestNeighborRoute(model *domain.TimeBucketedCostModel, returnToOrigin bool) domain.RouteOrder {
	n := model.Size()

	order := make([]int, 1, n+1)
	visited := make([]bool, n)
	visited[0] = true

	current := 0
	elapsed := 0

	for len(order) < n {
		best := -1
		minDuration := math.MaxInt

		// Select next stop by minimum travel duration (greedy step).
		// Scanning in index order keeps ties deterministic.
		for next := 0; next < n; next++ {
			if visited[next] {
				continue
			}
			d := model.TravelTime(elapsed, current, next)
			if d < minDuration {
				minDuration = d
				best = next
			}
		}

		elapsed += minDuration
		visited[best] = true
		order = append(order, best)
		current = best
	}

	// Optionally includes return leg to the origin; a lone stop has none.
	if returnToOrigin && n > 1 {
		elapsed += model.TravelTime(elapsed, current, 0)
		order = append(order, 0)
	}

	return domain.RouteOrder{
		Order:        order,
		TotalSeconds: elapsed,
		Strategy:     StrategyNearestNeighbor,
	}
}
