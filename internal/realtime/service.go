package realtime

import (
	"encoding/json"
	"log"
)

// Service forwards location updates from one participant to the rest of the
// trip. Failures are logged, never fatal to the session.
type Service struct {
	registry *Registry
}

func NewService(registry *Registry) *Service {
	return &Service{registry: registry}
}

func (s *Service) HandleLocationUpdate(tripID, userID, userName string, lat, lon float64) error {
	msg := ParticipantLocation{
		Type:     TypeParticipantLocation,
		UserID:   userID,
		FullName: userName,
		Location: Location{Latitude: lat, Longitude: lon},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("location update marshal failed: %v", err)
		return err
	}

	s.registry.Broadcast(payload, tripID, userID)
	return nil
}
