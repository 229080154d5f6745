package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidshch/PathPal/internal/db"
)

var ErrNoContacts = errors.New("no emergency contacts configured")

const (
	unclearAnalysis  = "The situation is unclear from the audio."
	fallbackAnalysis = "AI processing unavailable"
)

// Transcriber converts audio bytes into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Analyzer summarizes a transcript in one sentence.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// Notifier delivers emergency messages to a list of recipients as one
// logical send.
type Notifier interface {
	SendEmergencyAlert(recipients []string, userName string, lat, lon float64, analysis string, at time.Time) error
	SendFallbackAlert(recipients []string, userName string, lat, lon float64, at time.Time) error
}

type Service struct {
	db          db.Querier
	transcriber Transcriber
	analyzer    Analyzer
	notifier    Notifier
}

func NewService(database db.Querier, transcriber Transcriber, analyzer Analyzer, notifier Notifier) *Service {
	return &Service{
		db:          database,
		transcriber: transcriber,
		analyzer:    analyzer,
		notifier:    notifier,
	}
}

// ProcessAlert runs the transcribe-analyze-notify pipeline for one alert.
// AI processing is best-effort: if transcription, analysis, or the rich
// notification fails, a basic notification is sent instead and the alert is
// recorded with fallback status. Only a failure of the fallback notification
// itself propagates as an error, and in that case nothing is persisted.
func (s *Service) ProcessAlert(ctx context.Context, userID, userName string, audio []byte, filename string, lat, lon float64, contacts []string) (Outcome, error) {
	if len(contacts) == 0 {
		return Outcome{}, ErrNoContacts
	}

	now := time.Now()

	outcome, cause := s.primaryPath(ctx, userID, userName, audio, filename, lat, lon, contacts, now)
	if cause == nil {
		return outcome, nil
	}

	log.Printf("alert pipeline falling back for user %s: %v", userID, cause)

	if err := s.notifier.SendFallbackAlert(contacts, userName, lat, lon, now); err != nil {
		return Outcome{}, fmt.Errorf("fallback notification failed: %w (after: %v)", err, cause)
	}

	record := Alert{
		ID:               uuid.NewString(),
		UserID:           userID,
		Latitude:         lat,
		Longitude:        lon,
		Transcript:       "",
		Analysis:         fallbackAnalysis,
		ContactsNotified: len(contacts),
		Status:           StatusFallback,
		ErrorDetail:      cause.Error(),
	}
	if err := s.insertAlert(ctx, &record); err != nil {
		// Contacts were already notified; a persistence failure must not
		// turn an attempted alert into a reported failure.
		log.Printf("alert persist failed for user %s: %v", userID, err)
	}

	return Outcome{
		Status:        StatusFallback,
		Analysis:      fallbackAnalysis,
		NotifiedCount: len(contacts),
		ErrorDetail:   cause.Error(),
	}, nil
}

func (s *Service) primaryPath(ctx context.Context, userID, userName string, audio []byte, filename string, lat, lon float64, contacts []string, now time.Time) (Outcome, error) {
	transcript, err := s.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return Outcome{}, err
	}

	var analysis string
	if strings.TrimSpace(transcript) == "" {
		analysis = unclearAnalysis
	} else {
		analysis, err = s.analyzer.Analyze(ctx, transcript)
		if err != nil {
			return Outcome{}, err
		}
	}

	if err := s.notifier.SendEmergencyAlert(contacts, userName, lat, lon, analysis, now); err != nil {
		return Outcome{}, err
	}

	record := Alert{
		ID:               uuid.NewString(),
		UserID:           userID,
		Latitude:         lat,
		Longitude:        lon,
		Transcript:       transcript,
		Analysis:         analysis,
		ContactsNotified: len(contacts),
		Status:           StatusSuccess,
	}
	if err := s.insertAlert(ctx, &record); err != nil {
		// Contacts were already notified; a persistence failure must not
		// re-enter the fallback path and notify them twice.
		log.Printf("alert persist failed for user %s: %v", userID, err)
	}

	return Outcome{
		Status:        StatusSuccess,
		Analysis:      analysis,
		NotifiedCount: len(contacts),
	}, nil
}

func (s *Service) insertAlert(ctx context.Context, record *Alert) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO alerts (id, user_id, latitude, longitude, transcript, analysis, contacts_notified, status, error_detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		record.ID, record.UserID, record.Latitude, record.Longitude,
		record.Transcript, record.Analysis, record.ContactsNotified,
		record.Status, record.ErrorDetail,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// History returns the user's ten most recent alerts, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Alert, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, latitude, longitude, transcript, analysis, contacts_notified, status, error_detail, created_at
		 FROM alerts
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 10`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.Latitude, &a.Longitude,
			&a.Transcript, &a.Analysis, &a.ContactsNotified, &a.Status,
			&a.ErrorDetail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
