package api

import (
	"fastest-route-service/internal/api/handlers"
	"fastest-route-service/internal/platform/metrics"
	"fastest-route-service/internal/ports"
	"net/http"
)

// Deps are the collaborators served over HTTP. Planner is required; a nil
// Plans or Metrics leaves the corresponding endpoint unregistered.
type Deps struct {
	Planner      handlers.Planner
	Plans        ports.PlanRepository
	Metrics      *metrics.Metrics
	HealthChecks map[string]handlers.HealthCheck
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Checks: d.HealthChecks}
	routeHandler := &handlers.RouteHandler{Planner: d.Planner}

	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/routes", routeHandler.Create)

	if d.Plans != nil {
		planHandler := &handlers.PlanHandler{Repo: d.Plans}
		mux.HandleFunc("/plans", planHandler.List)
	}
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	// request → requestID → logging/metrics → mux
	return requestIDMiddleware(loggingMiddleware(d.Metrics, mux))
}
