package dto

import "time"

type CoordinatesRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type RouteRequest struct {
	Addresses      []string            `json:"addresses"`
	Origin         *CoordinatesRequest `json:"origin"`
	ReturnToOrigin bool                `json:"return_to_origin"`
	DepartAt       *time.Time          `json:"depart_at"`
}

type RouteStopResponse struct {
	Index              int    `json:"index"`
	Label              string `json:"label"`
	ArriveAfterSeconds *int   `json:"arrive_after_seconds"`
}

type RouteResponse struct {
	ID                   int64               `json:"id,omitempty"`
	Order                []int               `json:"order"`
	Stops                []RouteStopResponse `json:"stops"`
	TotalDurationSeconds int                 `json:"total_duration_seconds"`
	DepartAt             time.Time           `json:"depart_at"`
	ReturnToOrigin       bool                `json:"return_to_origin"`
	Link                 string              `json:"link"`
	Strategy             string              `json:"strategy"`
	CreatedAt            *time.Time          `json:"created_at,omitempty"`
}

type ListPlansResponse struct {
	Plans []RouteResponse `json:"plans"`
}
