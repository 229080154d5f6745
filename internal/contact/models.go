package contact

import "time"

type EmergencyContact struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateRequest struct {
	ContactEmail string `json:"contact_email" validate:"required,email"`
}
