package services

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

	"github.com/samber/lo"
)

// PlanRequest is a caller's request for the fastest route through a set of
// addresses, optionally starting from a live coordinate.
type PlanRequest struct {
	Addresses      []string
	Origin         *domain.Coordinates
	ReturnToOrigin bool
	// Zero means now.
	DepartAt time.Time
}

// RoutePlanner turns a PlanRequest into a TripPlan. It validates and lays
// out stops, consults the route cache, selects a strategy, renders the map
// link and records the result.
//
// Local is required. Remote, Repo, Cache and Metrics are optional.
type RoutePlanner struct {
	Local  ports.RouteStrategy
	Remote ports.RouteStrategy
	// RemoteClosedTours routes closed tours to Remote when it is set.
	RemoteClosedTours bool
	Repo              ports.PlanRepository
	Cache             ports.RouteCache
	Metrics           *metrics.Metrics
	// Zero means no limit beyond what the cost model supports.
	MaxAddresses int
	Now          func() time.Time
}

// CleanAddresses normalizes whitespace, drops blanks and removes exact
// duplicates, keeping the first occurrence of each.
func CleanAddresses(addresses []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(addresses, func(a string, _ int) string {
		return domain.NormalizeAddress(a)
	})))
}

func (p *RoutePlanner) Plan(ctx context.Context, req PlanRequest) (_ *domain.TripPlan, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	if p.Local == nil {
		return nil, errors.New("plan route: local strategy is nil")
	}

	addresses := CleanAddresses(req.Addresses)
	if len(addresses) == 0 {
		return nil, fmt.Errorf("plan route: %w", domain.ErrNoAddresses)
	}
	if p.MaxAddresses > 0 && len(addresses) > p.MaxAddresses {
		return nil, fmt.Errorf("plan route: %d addresses exceeds limit %d: %w", len(addresses), p.MaxAddresses, domain.ErrTooManyStops)
	}

	stops := domain.BuildStops(req.Origin, addresses)
	if len(stops) < 2 {
		return nil, fmt.Errorf("plan route: %w", domain.ErrSingleAddress)
	}
	if len(stops) > domain.MaxStops {
		return nil, fmt.Errorf("plan route: %d stops: %w", len(stops), domain.ErrTooManyStops)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = now()
	}

	key := cacheKey(stops, req.ReturnToOrigin, departAt)
	if p.Cache != nil {
		if cached, ok := p.Cache.Get(ctx, key); ok {
			p.Metrics.ObserveCache(true)
			p.Metrics.ObservePlan(cached.Strategy, "cached")
			return cached, nil
		}
		p.Metrics.ObserveCache(false)
	}

	strategy := p.selectStrategy(req.ReturnToOrigin)
	order, err := strategy.ComputeOrder(ctx, ports.RouteRequest{
		Stops:          stops,
		ReturnToOrigin: req.ReturnToOrigin,
		DepartAt:       departAt,
	})
	if err != nil {
		p.Metrics.ObservePlan(strategy.Name(), "error")
		return nil, fmt.Errorf("plan route: strategy=%s: %w", strategy.Name(), err)
	}

	plan := buildTripPlan(order, stops, req.ReturnToOrigin, departAt)
	plan.CreatedAt = now().UTC()

	// Persisting history is best effort; the computed route is still returned.
	if p.Repo != nil {
		id, err := p.Repo.SavePlan(ctx, plan)
		if err != nil {
			log.Printf("req_id=%s save plan failed: %v", obs.RequestID(ctx), err)
		} else {
			plan.ID = id
		}
	}

	if p.Cache != nil {
		p.Cache.Set(ctx, key, plan)
	}

	p.Metrics.ObservePlan(plan.Strategy, "ok")

	return plan, nil
}

func (p *RoutePlanner) selectStrategy(returnToOrigin bool) ports.RouteStrategy {
	if returnToOrigin && p.RemoteClosedTours && p.Remote != nil {
		return p.Remote
	}
	return p.Local
}

func buildTripPlan(order *domain.RouteOrder, stops []domain.Stop, returnToOrigin bool, departAt time.Time) *domain.TripPlan {
	planned := make([]domain.PlannedStop, 0, len(order.Order))
	for i, idx := range order.Order {
		ps := domain.PlannedStop{Index: idx, Label: stops[idx].Label}
		if i < len(order.ArrivalSeconds) {
			arrive := order.ArrivalSeconds[i]
			ps.ArriveAfterSeconds = &arrive
		}
		planned = append(planned, ps)
	}

	return &domain.TripPlan{
		DepartAt:       departAt,
		ReturnToOrigin: returnToOrigin,
		Stops:          planned,
		Order:          append([]int(nil), order.Order...),
		TotalSeconds:   order.TotalSeconds,
		Strategy:       order.Strategy,
		Link:           GenerateWebLink(order.Order, stops),
	}
}

// cacheKey identifies a request by its stop layout, tour shape and departure
// minute.
func cacheKey(stops []domain.Stop, returnToOrigin bool, departAt time.Time) string {
	parts := lo.Map(stops, func(s domain.Stop, _ int) string {
		if s.Coordinates != nil {
			return "@" + s.Coordinates.LatLonString()
		}
		return s.Label
	})

	return fmt.Sprintf("v1|closed=%t|depart=%d|%s",
		returnToOrigin,
		departAt.Truncate(time.Minute).Unix(),
		strings.Join(parts, "\x1f"),
	)
}
