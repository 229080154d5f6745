package server

import (
	"context"
	"strconv"

	"github.com/davidshch/PathPal/internal/alert"
	"github.com/davidshch/PathPal/internal/auth"
	"github.com/davidshch/PathPal/internal/config"
	"github.com/davidshch/PathPal/internal/contact"
	"github.com/davidshch/PathPal/internal/realtime"
	"github.com/davidshch/PathPal/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Registry *realtime.Registry
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Registry: realtime.NewRegistry(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)
	tripSvc := trip.NewService(s.DB, trip.NewMapboxClient(s.Cfg.MapboxAPIKey))
	contactSvc := contact.NewService(s.DB)

	openaiClient := alert.NewOpenAIClient(s.Cfg.OpenAIAPIKey)
	emailSvc := alert.NewEmailService(alert.SMTPConfig{
		Host:     s.Cfg.SMTPHost,
		Port:     strconv.Itoa(s.Cfg.SMTPPort),
		Username: s.Cfg.SMTPUsername,
		Password: s.Cfg.SMTPPassword,
		From:     s.Cfg.SMTPFromEmail,
	})
	alertSvc := alert.NewService(s.DB, openaiClient, openaiClient, emailSvc)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	trip.RegisterRoutes(s.App.Group("/trips"), tripSvc, jwtMiddleware)
	contact.RegisterRoutes(s.App.Group("/contacts"), contactSvc, jwtMiddleware)
	alert.RegisterRoutes(s.App.Group("/alerts"), alertSvc, contactSvc, authSvc, jwtMiddleware)
	realtime.RegisterRoutes(s.App.Group("/realtime"), s.Registry, realtime.NewService(s.Registry),
		identityAdapter{authSvc}, tripStoreAdapter{tripSvc})
}

// identityAdapter narrows the auth service to what a realtime session needs.
type identityAdapter struct {
	auth *auth.Service
}

func (a identityAdapter) UserFromToken(ctx context.Context, token string) (realtime.User, error) {
	user, err := a.auth.UserFromToken(ctx, token)
	if err != nil {
		return realtime.User{}, err
	}
	return realtime.User{ID: user.ID, FullName: user.FullName}, nil
}

// tripStoreAdapter exposes participant-scoped trip lookups to realtime
// sessions.
type tripStoreAdapter struct {
	trips *trip.Service
}

func (a tripStoreAdapter) TripForUser(ctx context.Context, tripID, userID string) (realtime.TripInfo, error) {
	t, err := a.trips.TripForParticipant(ctx, tripID, userID)
	if err != nil {
		return realtime.TripInfo{}, err
	}
	return realtime.TripInfo{ID: t.ID, Name: t.DestinationName, IsActive: t.IsActive}, nil
}
