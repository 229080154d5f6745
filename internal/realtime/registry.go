package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "realtime:broadcast"

// Conn is a live connection handle the registry can push payloads to.
type Conn interface {
	Send(payload []byte) error
}

// Registry is a bidirectional index of trip memberships: trip -> connected
// users and user -> active trip. Both maps mutate in lockstep under one
// mutex. When a Redis client is supplied, broadcasts are additionally
// relayed through pub/sub so peers on other instances receive them.
type Registry struct {
	mu          sync.Mutex
	tripMembers map[string]map[string]Conn
	userTrip    map[string]string

	redis      *redis.Client
	instanceID string
}

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	TripID  string          `json:"trip_id"`
	Exclude string          `json:"exclude,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func NewRegistry(redisClient *redis.Client) *Registry {
	r := &Registry{
		tripMembers: map[string]map[string]Conn{},
		userTrip:    map[string]string{},
		redis:       redisClient,
		instanceID:  uuid.NewString(),
	}

	if redisClient != nil {
		go r.subscribeRelay()
	}
	return r
}

// Connect registers conn under tripID/userID. A user already registered
// under another trip is silently overwritten: last connect wins.
func (r *Registry) Connect(conn Conn, tripID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tripMembers[tripID] == nil {
		r.tripMembers[tripID] = map[string]Conn{}
	}
	r.tripMembers[tripID][userID] = conn
	r.userTrip[userID] = tripID

	log.Printf("user %s connected to trip %s", userID, tripID)
}

// Disconnect removes the user's registration; no-op for unknown users.
// Empty trips are pruned eagerly.
func (r *Registry) Disconnect(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectLocked(userID)
}

func (r *Registry) disconnectLocked(userID string) {
	tripID, ok := r.userTrip[userID]
	if !ok {
		return
	}
	delete(r.userTrip, userID)

	if members, ok := r.tripMembers[tripID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.tripMembers, tripID)
		}
	}

	log.Printf("user %s disconnected from trip %s", userID, tripID)
}

// SendToUser delivers a payload to a single user. Returns false if the user
// is not connected; a failed send is treated as a disconnect.
func (r *Registry) SendToUser(payload []byte, userID string) bool {
	r.mu.Lock()
	tripID, ok := r.userTrip[userID]
	var conn Conn
	if ok {
		conn = r.tripMembers[tripID][userID]
	}
	r.mu.Unlock()

	if conn == nil {
		return false
	}
	if err := conn.Send(payload); err != nil {
		log.Printf("send to user %s failed: %v", userID, err)
		r.Disconnect(userID)
		return false
	}
	return true
}

// Broadcast delivers a payload to every member of the trip except
// excludeUserID. Sends run against a snapshot so concurrent connects and
// disconnects cannot corrupt iteration; handles that fail are disconnected
// after the delivery pass so one broken peer never blocks the rest.
func (r *Registry) Broadcast(payload []byte, tripID, excludeUserID string) {
	r.mu.Lock()
	snapshot := make(map[string]Conn, len(r.tripMembers[tripID]))
	for userID, conn := range r.tripMembers[tripID] {
		snapshot[userID] = conn
	}
	r.mu.Unlock()

	var failed []string
	for userID, conn := range snapshot {
		if userID == excludeUserID {
			continue
		}
		if err := conn.Send(payload); err != nil {
			log.Printf("broadcast to user %s failed: %v", userID, err)
			failed = append(failed, userID)
		}
	}

	if len(failed) > 0 {
		r.mu.Lock()
		for _, userID := range failed {
			r.disconnectLocked(userID)
		}
		r.mu.Unlock()
	}

	r.publishRelay(payload, tripID, excludeUserID)
}

// Participants returns the user IDs currently connected to a trip.
func (r *Registry) Participants(tripID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]string, 0, len(r.tripMembers[tripID]))
	for userID := range r.tripMembers[tripID] {
		users = append(users, userID)
	}
	return users
}

func (r *Registry) publishRelay(payload []byte, tripID, excludeUserID string) {
	if r.redis == nil {
		return
	}

	envelope, _ := json.Marshal(relayEnvelope{
		Origin:  r.instanceID,
		TripID:  tripID,
		Exclude: excludeUserID,
		Payload: payload,
	})
	if err := r.redis.Publish(context.Background(), relayChannel, envelope).Err(); err != nil {
		log.Printf("redis relay publish error: %v", err)
	}
}

func (r *Registry) subscribeRelay() {
	pubsub := r.redis.Subscribe(context.Background(), relayChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var envelope relayEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			continue
		}
		if envelope.Origin == r.instanceID {
			continue
		}
		r.deliverLocal(envelope.Payload, envelope.TripID, envelope.Exclude)
	}
}

// deliverLocal fans a relayed payload out to local members only, without
// republishing.
func (r *Registry) deliverLocal(payload []byte, tripID, excludeUserID string) {
	r.mu.Lock()
	snapshot := make(map[string]Conn, len(r.tripMembers[tripID]))
	for userID, conn := range r.tripMembers[tripID] {
		snapshot[userID] = conn
	}
	r.mu.Unlock()

	var failed []string
	for userID, conn := range snapshot {
		if userID == excludeUserID {
			continue
		}
		if err := conn.Send(payload); err != nil {
			failed = append(failed, userID)
		}
	}

	if len(failed) > 0 {
		r.mu.Lock()
		for _, userID := range failed {
			r.disconnectLocked(userID)
		}
		r.mu.Unlock()
	}
}
