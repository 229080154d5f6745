package contact

import (
	"context"
	"errors"

	"github.com/davidshch/PathPal/internal/db"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("contact not found")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Add(ctx context.Context, userID, email string) (EmergencyContact, error) {
	contact := EmergencyContact{
		ID:           uuid.NewString(),
		UserID:       userID,
		ContactEmail: email,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO emergency_contacts (id, user_id, contact_email)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, contact.ID, contact.UserID, contact.ContactEmail)
	if err := row.Scan(&contact.CreatedAt); err != nil {
		return EmergencyContact{}, err
	}
	return contact, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]EmergencyContact, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, contact_email, created_at
		FROM emergency_contacts WHERE user_id=$1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []EmergencyContact{}
	for rows.Next() {
		var c EmergencyContact
		if err := rows.Scan(&c.ID, &c.UserID, &c.ContactEmail, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// EmailsForUser feeds the alert pipeline's contact precondition.
func (s *Service) EmailsForUser(ctx context.Context, userID string) ([]string, error) {
	contacts, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(contacts))
	for _, c := range contacts {
		emails = append(emails, c.ContactEmail)
	}
	return emails, nil
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM emergency_contacts WHERE id=$1 AND user_id=$2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
