package alert

import (
	"context"
	"io"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const maxAudioBytes = 25 << 20

var allowedAudioTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/mp3":   true,
	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/webm":  true,
}

var validate = validator.New()

// ContactSource supplies the user's emergency-contact emails.
type ContactSource interface {
	EmailsForUser(ctx context.Context, userID string) ([]string, error)
}

// UserDirectory resolves a user ID to a display name for notifications.
type UserDirectory interface {
	FullName(ctx context.Context, userID string) (string, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, contacts ContactSource, users UserDirectory, authMiddleware fiber.Handler) {
	r.Post("/emergency", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)

		fileHeader, err := c.FormFile("audio")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "audio file is required")
		}
		if fileHeader.Size == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "audio file is empty")
		}
		if fileHeader.Size > maxAudioBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "audio file exceeds 25MB limit")
		}
		if contentType := fileHeader.Header.Get("Content-Type"); !allowedAudioTypes[contentType] {
			return fiber.NewError(fiber.StatusBadRequest, "unsupported audio format: "+contentType)
		}

		lat, latErr := strconv.ParseFloat(c.FormValue("latitude"), 64)
		lon, lonErr := strconv.ParseFloat(c.FormValue("longitude"), 64)
		if latErr != nil || lonErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude are required")
		}
		if err := validate.Struct(TriggerRequest{Latitude: lat, Longitude: lon}); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read audio file")
		}
		defer file.Close()
		audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read audio file")
		}

		emails, err := contacts.EmailsForUser(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if len(emails) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, ErrNoContacts.Error())
		}

		userName, err := users.FullName(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		filename := fileHeader.Filename

		// The pipeline can take tens of seconds; respond immediately and
		// process in the background. The fresh context outlives the request.
		go func() {
			outcome, err := svc.ProcessAlert(context.Background(), userID, userName, audio, filename, lat, lon, emails)
			if err != nil {
				log.Printf("alert processing failed for user %s: %v", userID, err)
				return
			}
			log.Printf("alert processed for user %s: status=%s notified=%d", userID, outcome.Status, outcome.NotifiedCount)
		}()

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "processing",
			"message": "Emergency alert is being processed",
		})
	})

	r.Get("/history", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		alerts, err := svc.History(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(alerts)
	})
}
