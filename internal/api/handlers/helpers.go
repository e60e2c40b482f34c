package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fastest-route-service/internal/api/dto"
	"fastest-route-service/internal/domain"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// statusForError maps planning failures onto HTTP statuses and client-safe messages.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoAddresses):
		return http.StatusBadRequest, domain.ErrNoAddresses.Error()
	case errors.Is(err, domain.ErrSingleAddress):
		return http.StatusBadRequest, domain.ErrSingleAddress.Error()
	case errors.Is(err, domain.ErrTooManyStops):
		return http.StatusBadRequest, "too many addresses"
	case errors.Is(err, domain.ErrAddressNotFound):
		return http.StatusUnprocessableEntity, domain.ErrAddressNotFound.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "route computation timed out"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "routing provider unavailable"
	case errors.Is(err, domain.ErrProviderResponse):
		return http.StatusBadGateway, "routing provider returned an invalid response"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func toRouteResponse(p *domain.TripPlan) dto.RouteResponse {
	stops := make([]dto.RouteStopResponse, 0, len(p.Stops))
	for _, s := range p.Stops {
		stops = append(stops, dto.RouteStopResponse{
			Index:              s.Index,
			Label:              s.Label,
			ArriveAfterSeconds: s.ArriveAfterSeconds,
		})
	}

	res := dto.RouteResponse{
		ID:                   p.ID,
		Order:                p.Order,
		Stops:                stops,
		TotalDurationSeconds: p.TotalSeconds,
		DepartAt:             p.DepartAt,
		ReturnToOrigin:       p.ReturnToOrigin,
		Link:                 p.Link,
		Strategy:             p.Strategy,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		res.CreatedAt = &created
	}

	return res
}
