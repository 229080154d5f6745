package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// State tracks where a session is in its lifecycle. Closed is terminal and
// reachable from every other state.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthorizing
	StateJoined
	StateClosing
	StateClosed
)

// User is the authenticated identity a session acts as.
type User struct {
	ID       string
	FullName string
}

// TripInfo is the slice of trip state a session needs to authorize and
// acknowledge a connection.
type TripInfo struct {
	ID       string
	Name     string
	IsActive bool
}

// Identity resolves a handshake token to a user.
type Identity interface {
	UserFromToken(ctx context.Context, token string) (User, error)
}

// TripStore fetches a trip the requesting user may access.
type TripStore interface {
	TripForUser(ctx context.Context, tripID, userID string) (TripInfo, error)
}

// Transport is one client connection as the session sees it.
type Transport interface {
	Conn
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close(code int, reason string) error
}

// Session drives one connection through authenticate, authorize, join, the
// message loop, and teardown.
type Session struct {
	transport Transport
	registry  *Registry
	service   *Service
	identity  Identity
	trips     TripStore

	tripID string
	user   User
	state  State
	joined bool
}

func NewSession(transport Transport, registry *Registry, service *Service, identity Identity, trips TripStore, tripID string) *Session {
	return &Session{
		transport: transport,
		registry:  registry,
		service:   service,
		identity:  identity,
		trips:     trips,
		tripID:    tripID,
		state:     StateConnecting,
	}
}

func (s *Session) State() State {
	return s.state
}

// Run executes the session to completion. Teardown always runs, so a joined
// session is deregistered and peers are told it left even when earlier steps
// fail.
func (s *Session) Run(ctx context.Context, token string) {
	defer s.teardown()

	s.state = StateAuthenticating
	user, err := s.identity.UserFromToken(ctx, token)
	if err != nil {
		s.closeWith(CloseAuthFailure, "Authentication failed: "+err.Error())
		return
	}
	s.user = user

	s.state = StateAuthorizing
	tripInfo, err := s.trips.TripForUser(ctx, s.tripID, user.ID)
	if err != nil {
		s.closeWith(CloseTripForbidden, "Trip not found or access denied")
		return
	}
	if !tripInfo.IsActive {
		s.closeWith(CloseTripInactive, "Trip is not active")
		return
	}

	s.registry.Connect(s.transport, s.tripID, user.ID)
	s.joined = true
	s.state = StateJoined

	count := len(s.registry.Participants(s.tripID))
	ack, _ := json.Marshal(ConnectionAck{
		Type:             TypeConnectionAck,
		TripID:           s.tripID,
		ParticipantCount: count,
		Message:          "Connected to trip: " + tripInfo.Name,
	})
	if err := s.transport.WriteMessage(ack); err != nil {
		return
	}

	joinMsg, _ := json.Marshal(ParticipantJoined{
		Type:             TypeParticipantJoined,
		UserID:           user.ID,
		FullName:         user.FullName,
		ParticipantCount: count,
	})
	s.registry.Broadcast(joinMsg, s.tripID, user.ID)

	s.loop()
}

// loop reads one message at a time until the peer disconnects. A bad message
// gets an error reply; it never tears the connection down.
func (s *Session) loop() {
	for {
		payload, err := s.transport.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(payload)
	}
}

func (s *Session) handleMessage(payload []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.sendError("Invalid JSON format", "")
		return
	}

	switch envelope.Type {
	case TypeLocationUpdate:
		var update LocationUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			s.sendError("Invalid JSON format", "")
			return
		}
		if err := validate.Struct(update); err != nil {
			s.sendError("Invalid location update", err.Error())
			return
		}
		if err := s.service.HandleLocationUpdate(s.tripID, s.user.ID, s.user.FullName, *update.Latitude, *update.Longitude); err != nil {
			s.sendError("Message processing failed", err.Error())
		}
	default:
		s.sendError("Unknown message type", "Received: "+envelope.Type)
	}
}

func (s *Session) sendError(errText, detail string) {
	payload, _ := json.Marshal(ErrorMessage{Type: TypeError, Error: errText, Detail: detail})
	if err := s.transport.WriteMessage(payload); err != nil {
		log.Printf("error reply failed for user %s: %v", s.user.ID, err)
	}
}

func (s *Session) closeWith(code int, reason string) {
	if err := s.transport.Close(code, reason); err != nil {
		log.Printf("close failed: %v", err)
	}
}

// teardown deregisters the session and notifies the remaining participants
// with the post-removal count.
func (s *Session) teardown() {
	s.state = StateClosing
	defer func() { s.state = StateClosed }()

	if !s.joined {
		return
	}

	s.registry.Disconnect(s.user.ID)

	remaining := len(s.registry.Participants(s.tripID))
	if remaining > 0 {
		leaveMsg, _ := json.Marshal(ParticipantLeft{
			Type:             TypeParticipantLeft,
			UserID:           s.user.ID,
			FullName:         s.user.FullName,
			ParticipantCount: remaining,
		})
		s.registry.Broadcast(leaveMsg, s.tripID, "")
	}
}
