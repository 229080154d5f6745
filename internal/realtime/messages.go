package realtime

// Wire message types exchanged over a trip's location channel.
const (
	TypeLocationUpdate      = "location_update"
	TypeParticipantLocation = "participant_location"
	TypeParticipantJoined   = "participant_joined"
	TypeParticipantLeft     = "participant_left"
	TypeConnectionAck       = "connection_ack"
	TypeError               = "error"
)

// Close codes, distinct per cause so clients can tell them apart.
const (
	CloseAuthFailure   = 4001
	CloseTripForbidden = 4003
	CloseTripInactive  = 4004
	CloseInternalError = 1011
)

type Location struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// LocationUpdate is the only client-to-server message. Coordinates are
// pointers so a message that omits a field fails validation instead of
// sliding through as (0,0).
type LocationUpdate struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

type ParticipantLocation struct {
	Type     string   `json:"type"`
	UserID   string   `json:"user_id"`
	FullName string   `json:"full_name"`
	Location Location `json:"location"`
}

type ParticipantJoined struct {
	Type             string `json:"type"`
	UserID           string `json:"user_id"`
	FullName         string `json:"full_name"`
	ParticipantCount int    `json:"participant_count"`
}

type ParticipantLeft struct {
	Type             string `json:"type"`
	UserID           string `json:"user_id"`
	FullName         string `json:"full_name"`
	ParticipantCount int    `json:"participant_count"`
}

type ConnectionAck struct {
	Type             string `json:"type"`
	TripID           string `json:"trip_id"`
	ParticipantCount int    `json:"participant_count"`
	Message          string `json:"message"`
}

type ErrorMessage struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
