package trip

import "time"

const (
	ModeDriving = "driving"
	ModeWalking = "walking"
	ModeCycling = "cycling"
)

type Trip struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	DestinationName  string    `json:"destination_name"`
	StartLatitude    float64   `json:"start_latitude"`
	StartLongitude   float64   `json:"start_longitude"`
	DestLatitude     float64   `json:"destination_latitude"`
	DestLongitude    float64   `json:"destination_longitude"`
	RouteGeometry    string    `json:"route_geometry"`
	DistanceMeters   int       `json:"distance_meters"`
	DurationSeconds  int       `json:"duration_seconds"`
	TravelMode       string    `json:"travel_mode"`
	IsActive         bool      `json:"is_active"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
	CompletedAt      time.Time `json:"completed_at,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

type CreateRequest struct {
	DestinationName     string       `json:"destination_name" validate:"required,max=200"`
	StartLocation       Coordinates  `json:"start_location" validate:"required"`
	DestinationLocation *Coordinates `json:"destination_location,omitempty"`
	TravelMode          string       `json:"travel_mode" validate:"omitempty,oneof=driving walking cycling"`
}

type List struct {
	Trips    []Trip `json:"trips"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type RouteGeometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}
