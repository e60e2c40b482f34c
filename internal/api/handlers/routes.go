package handlers

import (
	"context"
	"encoding/json"
	"fastest-route-service/internal/api/dto"
	"fastest-route-service/internal/domain"
	"fastest-route-service/internal/platform/obs"
	"fastest-route-service/internal/services"
	"io"
	"log"
	"net/http"
)

const maxRouteBodyBytes = 1 << 20

// Planner is the planning capability the route endpoint depends on.
type Planner interface {
	Plan(ctx context.Context, req services.PlanRequest) (*domain.TripPlan, error)
}

type RouteHandler struct {
	Planner Planner
}

// Create computes the fastest visiting order for the posted addresses.
func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.RouteRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRouteBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	svcReq := services.PlanRequest{
		Addresses:      req.Addresses,
		ReturnToOrigin: req.ReturnToOrigin,
	}

	if req.Origin != nil {
		if req.Origin.Lat == nil || req.Origin.Lon == nil {
			writeError(w, r, http.StatusBadRequest, "origin requires lat and lon")
			return
		}
		lat, lon := *req.Origin.Lat, *req.Origin.Lon
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			writeError(w, r, http.StatusBadRequest, "origin coordinates out of range")
			return
		}
		svcReq.Origin = &domain.Coordinates{Lat: lat, Lon: lon}
	}

	if req.DepartAt != nil {
		svcReq.DepartAt = *req.DepartAt
	}

	plan, err := h.Planner.Plan(r.Context(), svcReq)
	if err != nil {
		status, msg := statusForError(err)
		if status >= http.StatusInternalServerError {
			log.Printf("req_id=%s plan route failed: %v", obs.RequestID(r.Context()), err)
		}
		writeError(w, r, status, msg)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(plan))
}
