package alert

import "time"

// Processing status of a persisted alert. A record only exists for the
// success and fallback paths; a catastrophic failure persists nothing.
const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
)

// Alert is an immutable record of one emergency-alert invocation.
type Alert struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Transcript       string    `json:"transcript"`
	Analysis         string    `json:"analysis"`
	ContactsNotified int       `json:"contacts_notified"`
	Status           string    `json:"status"`
	ErrorDetail      string    `json:"error_detail,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Outcome is what ProcessAlert reports back to the boundary layer.
type Outcome struct {
	Status        string `json:"status"`
	Analysis      string `json:"analysis"`
	NotifiedCount int    `json:"notified_count"`
	ErrorDetail   string `json:"error_detail,omitempty"`
}

// TriggerRequest carries the non-file fields of the emergency multipart form.
type TriggerRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}
