package services

import (
	"fastest-route-service/internal/domain"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const StrategyExhaustive = "exhaustive"

// routeData is the mutable accumulator shared by every frame of one search.
// It is never copied per branch: the incumbent bound it carries is what makes
// pruning effective.
type routeData struct {
	visitedMask uint64
	bestTotal   int
	bestOrder   []int
}

// routeSearch holds the read-only inputs of one search invocation.
type routeSearch struct {
	model          *domain.TimeBucketedCostModel
	n              int
	fullMask       uint64
	returnToOrigin bool
	prune          bool
}

func newRouteSearch(model *domain.TimeBucketedCostModel, returnToOrigin, prune bool) *routeSearch {
	n := model.Size()
	full := uint64(math.MaxUint64)
	if n < domain.MaxStops {
		full = uint64(1)<<n - 1
	}
	return &routeSearch{
		model:          model,
		n:              n,
		fullMask:       full,
		returnToOrigin: returnToOrigin,
		prune:          prune,
	}
}

// FindOptimalRoute returns the minimum-duration visiting order over every stop
// of the model, starting at stop 0 and, when returnToOrigin is set, ending there.
//
// The search is an exhaustive depth-first branch-and-bound over the unvisited
// stops in index order. A partial route whose elapsed time already reaches the
// best known total is abandoned; edge weights are non-negative so no completion
// of it can improve. Among equal-cost optima the first one explored wins.
func FindOptimalRoute(model *domain.TimeBucketedCostModel, returnToOrigin bool) domain.RouteOrder {
	return findOptimalRoute(model, returnToOrigin, true)
}

func findOptimalRoute(model *domain.TimeBucketedCostModel, returnToOrigin, prune bool) domain.RouteOrder {
	if order, ok := trivialRoute(model, returnToOrigin); ok {
		return order
	}

	s := newRouteSearch(model, returnToOrigin, prune)
	rd := &routeData{visitedMask: 1, bestTotal: math.MaxInt}

	route := make([]int, 1, s.n+1)
	s.search(route, 0, 0, rd)

	return domain.RouteOrder{
		Order:        rd.bestOrder,
		TotalSeconds: rd.bestTotal,
		Strategy:     StrategyExhaustive,
	}
}

// trivialRoute answers models with fewer than two stops to order without searching.
func trivialRoute(model *domain.TimeBucketedCostModel, returnToOrigin bool) (domain.RouteOrder, bool) {
	switch model.Size() {
	case 1:
		return domain.RouteOrder{Order: []int{0}, Strategy: StrategyExhaustive}, true
	case 2:
		total := model.TravelTime(0, 0, 1)
		order := []int{0, 1}
		if returnToOrigin {
			total += model.TravelTime(total, 1, 0)
			order = append(order, 0)
		}
		return domain.RouteOrder{Order: order, TotalSeconds: total, Strategy: StrategyExhaustive}, true
	}
	return domain.RouteOrder{}, false
}

// search extends route (whose last element is current) with every unvisited stop.
// route is a single buffer reused across the whole search; it is restored to
// its input state before returning.
func (s *routeSearch) search(route []int, current, elapsed int, rd *routeData) {
	if rd.visitedMask == s.fullMask {
		final := elapsed
		if s.returnToOrigin {
			route = append(route, 0)
			final += s.model.TravelTime(elapsed, current, 0)
		}

		if final < rd.bestTotal {
			rd.bestTotal = final
			rd.bestOrder = append(rd.bestOrder[:0], route...)
		}
		return
	}

	for next := 0; next < s.n; next++ {
		bit := uint64(1) << next
		if next == current || rd.visitedMask&bit != 0 {
			continue
		}

		candidate := elapsed + s.model.TravelTime(elapsed, current, next)
		if s.prune && candidate >= rd.bestTotal {
			continue
		}

		rd.visitedMask |= bit
		s.search(append(route, next), next, candidate, rd)
		rd.visitedMask &^= bit
	}
}

// FindOptimalRouteParallel produces the same result as FindOptimalRoute, but
// explores each choice of second stop on its own goroutine.
//
// Every worker owns a private routeData seeded with an infinite bound; the
// workers' incumbents are reduced by minimum total afterwards, ties going to
// the lowest branch index as the sequential search would.
func FindOptimalRouteParallel(model *domain.TimeBucketedCostModel, returnToOrigin bool) domain.RouteOrder {
	if order, ok := trivialRoute(model, returnToOrigin); ok {
		return order
	}

	s := newRouteSearch(model, returnToOrigin, true)
	branches := make([]routeData, s.n)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for next := 1; next < s.n; next++ {
		g.Go(func() error {
			rd := &branches[next]
			rd.visitedMask = 1 | uint64(1)<<next
			rd.bestTotal = math.MaxInt

			route := make([]int, 2, s.n+1)
			route[1] = next
			s.search(route, next, model.TravelTime(0, 0, next), rd)
			return nil
		})
	}
	// Workers never return an error.
	g.Wait()

	best := domain.RouteOrder{TotalSeconds: math.MaxInt, Strategy: StrategyExhaustive}
	for next := 1; next < s.n; next++ {
		rd := branches[next]
		if rd.bestOrder != nil && rd.bestTotal < best.TotalSeconds {
			best.TotalSeconds = rd.bestTotal
			best.Order = rd.bestOrder
		}
	}

	return best
}
