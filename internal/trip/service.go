package trip

import (
	"context"
	"errors"
	"time"

	"github.com/davidshch/PathPal/internal/db"

	"github.com/google/uuid"
	"github.com/twpayne/go-polyline"
)

var ErrNotFound = errors.New("trip not found")

type Service struct {
	db     db.Querier
	routes RouteAPI
}

func NewService(db db.Querier, routes RouteAPI) *Service {
	return &Service{db: db, routes: routes}
}

// CreateTrip geocodes the destination when no coordinates are supplied,
// calculates the route via Mapbox, and stores the trip.
func (s *Service) CreateTrip(ctx context.Context, ownerID string, req CreateRequest) (Trip, error) {
	if req.TravelMode == "" {
		req.TravelMode = ModeWalking
	}

	var destLat, destLon float64
	if req.DestinationLocation != nil {
		destLat = req.DestinationLocation.Latitude
		destLon = req.DestinationLocation.Longitude
	} else {
		var err error
		destLat, destLon, err = s.routes.Geocode(ctx, req.DestinationName)
		if err != nil {
			return Trip{}, err
		}
	}

	route, err := s.routes.Directions(ctx,
		req.StartLocation.Longitude, req.StartLocation.Latitude,
		destLon, destLat, req.TravelMode)
	if err != nil {
		return Trip{}, err
	}

	trip := Trip{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		DestinationName: req.DestinationName,
		StartLatitude:   req.StartLocation.Latitude,
		StartLongitude:  req.StartLocation.Longitude,
		DestLatitude:    destLat,
		DestLongitude:   destLon,
		RouteGeometry:   route.Geometry,
		DistanceMeters:  int(route.DistanceMeters),
		DurationSeconds: int(route.DurationSeconds),
		TravelMode:      req.TravelMode,
		IsActive:        true,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, owner_id, destination_name, start_latitude, start_longitude,
		                   destination_latitude, destination_longitude, route_geometry,
		                   distance_meters, duration_seconds, travel_mode, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at
	`, trip.ID, trip.OwnerID, trip.DestinationName, trip.StartLatitude, trip.StartLongitude,
		trip.DestLatitude, trip.DestLongitude, trip.RouteGeometry,
		trip.DistanceMeters, trip.DurationSeconds, trip.TravelMode, trip.IsActive)
	if err := row.Scan(&trip.CreatedAt); err != nil {
		return Trip{}, err
	}
	return trip, nil
}

// GetTrip returns the trip if the requesting user owns it.
func (s *Service) GetTrip(ctx context.Context, id, userID string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, destination_name, start_latitude, start_longitude,
		       destination_latitude, destination_longitude, route_geometry,
		       distance_meters, duration_seconds, travel_mode, is_active,
		       created_at, COALESCE(completed_at, 'epoch'::timestamptz)
		FROM trips WHERE id=$1 AND owner_id=$2
	`, id, userID)

	var trip Trip
	if err := row.Scan(&trip.ID, &trip.OwnerID, &trip.DestinationName,
		&trip.StartLatitude, &trip.StartLongitude, &trip.DestLatitude, &trip.DestLongitude,
		&trip.RouteGeometry, &trip.DistanceMeters, &trip.DurationSeconds,
		&trip.TravelMode, &trip.IsActive, &trip.CreatedAt, &trip.CompletedAt); err != nil {
		return Trip{}, ErrNotFound
	}

	count, err := s.participantCount(ctx, trip.ID)
	if err != nil {
		return Trip{}, err
	}
	trip.ParticipantCount = count
	return trip, nil
}

// TripForParticipant returns the trip when the user owns it or has joined
// its buddy list. Used to authorize live-location connections.
func (s *Service) TripForParticipant(ctx context.Context, tripID, userID string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, destination_name, is_active
		FROM trips
		WHERE id=$1 AND (owner_id=$2 OR EXISTS (
			SELECT 1 FROM trip_participants WHERE trip_id=$1 AND user_id=$2))
	`, tripID, userID)

	var trip Trip
	if err := row.Scan(&trip.ID, &trip.OwnerID, &trip.DestinationName, &trip.IsActive); err != nil {
		return Trip{}, ErrNotFound
	}
	return trip, nil
}

func (s *Service) ListTrips(ctx context.Context, userID string, page, pageSize int, activeOnly bool) (List, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var total int
	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM trips WHERE owner_id=$1 AND ($2 = false OR is_active)
	`, userID, activeOnly).Scan(&total); err != nil {
		return List{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, destination_name, start_latitude, start_longitude,
		       destination_latitude, destination_longitude, route_geometry,
		       distance_meters, duration_seconds, travel_mode, is_active,
		       created_at, COALESCE(completed_at, 'epoch'::timestamptz)
		FROM trips
		WHERE owner_id=$1 AND ($2 = false OR is_active)
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`, userID, activeOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		return List{}, err
	}
	defer rows.Close()

	trips := []Trip{}
	for rows.Next() {
		var trip Trip
		if err := rows.Scan(&trip.ID, &trip.OwnerID, &trip.DestinationName,
			&trip.StartLatitude, &trip.StartLongitude, &trip.DestLatitude, &trip.DestLongitude,
			&trip.RouteGeometry, &trip.DistanceMeters, &trip.DurationSeconds,
			&trip.TravelMode, &trip.IsActive, &trip.CreatedAt, &trip.CompletedAt); err != nil {
			return List{}, err
		}
		trips = append(trips, trip)
	}

	return List{Trips: trips, Total: total, Page: page, PageSize: pageSize}, nil
}

// CompleteTrip deactivates the trip and stamps completed_at.
func (s *Service) CompleteTrip(ctx context.Context, id, userID string) (Trip, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE trips SET is_active=false, completed_at=$3
		WHERE id=$1 AND owner_id=$2
	`, id, userID, now)
	if err != nil {
		return Trip{}, err
	}
	if tag.RowsAffected() == 0 {
		return Trip{}, ErrNotFound
	}
	return s.GetTrip(ctx, id, userID)
}

// Route decodes the stored polyline geometry for map display.
func (s *Service) Route(ctx context.Context, id, userID string) (RouteGeometry, error) {
	trip, err := s.GetTrip(ctx, id, userID)
	if err != nil {
		return RouteGeometry{}, err
	}

	coords, _, err := polyline.DecodeCoords([]byte(trip.RouteGeometry))
	if err != nil {
		return RouteGeometry{}, err
	}
	return RouteGeometry{Coordinates: coords}, nil
}

// Join adds the user to the trip's buddy list; idempotent.
func (s *Service) Join(ctx context.Context, tripID, userID string) error {
	if err := s.exists(ctx, tripID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_participants (id, trip_id, user_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (trip_id, user_id) DO NOTHING
	`, uuid.NewString(), tripID, userID)
	return err
}

// Leave removes the user from the trip's buddy list; idempotent.
func (s *Service) Leave(ctx context.Context, tripID, userID string) error {
	if err := s.exists(ctx, tripID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		DELETE FROM trip_participants WHERE trip_id=$1 AND user_id=$2
	`, tripID, userID)
	return err
}

func (s *Service) exists(ctx context.Context, tripID string) error {
	var ok bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM trips WHERE id=$1)
	`, tripID).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) participantCount(ctx context.Context, tripID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM trip_participants WHERE trip_id=$1
	`, tripID).Scan(&count)
	return count, err
}
