package handlers

import (
	"fastest-route-service/internal/api/dto"
	"fastest-route-service/internal/ports"
	"log"
	"net/http"
	"strconv"
)

const (
	defaultPlansLimit = 20
	maxPlansLimit     = 100
)

// PlanHandler exposes read-only access to the plan history.
type PlanHandler struct {
	Repo ports.PlanRepository
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultPlansLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPlansLimit {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	plans, err := h.Repo.ListPlans(r.Context(), limit)
	if err != nil {
		log.Printf("list plans failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListPlansResponse{
		Plans: make([]dto.RouteResponse, 0, len(plans)),
	}
	for _, p := range plans {
		res.Plans = append(res.Plans, toRouteResponse(p))
	}

	writeJSON(w, r, http.StatusOK, res)
}
