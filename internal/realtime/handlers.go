package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the trip location channel. Authentication happens
// inside the session via the token query parameter because browsers cannot
// set headers on websocket upgrades.
func RegisterRoutes(r fiber.Router, registry *Registry, service *Service, identity Identity, trips TripStore) {
	r.Get("/ws/:tripID", websocket.New(func(c *websocket.Conn) {
		tripID := c.Params("tripID")
		token := c.Query("token")

		transport := newWSTransport(c)
		session := NewSession(transport, registry, service, identity, trips, tripID)
		session.Run(context.Background(), token)
	}))
}

// wsTransport wraps a websocket connection with a write mutex so the session
// loop and registry broadcasts from other goroutines never interleave writes.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, payload, err := t.conn.ReadMessage()
	return payload, err
}

func (t *wsTransport) WriteMessage(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

// Send satisfies the registry's Conn interface.
func (t *wsTransport) Send(payload []byte) error {
	return t.WriteMessage(payload)
}

func (t *wsTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return t.conn.Close()
}
