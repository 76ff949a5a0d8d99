package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	commonlog "studyhub/server/common/log"
)

// wsConn is the subset of *websocket.Conn the hub needs. Tests substitute a
// recording fake.
type wsConn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one live transport connection owned by one authenticated user.
type Client struct {
	UserID string
	conn   wsConn
	mu     sync.Mutex
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, conn: conn}
}

func (c *Client) WriteJSON(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = c.conn.WriteJSON(payload)
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Event names broadcast by the hub.
const (
	EventPresenceUpdate  = "presence:update"
	EventTypingUpdate    = "typing:update"
	EventNewMessage      = "new-message"
	EventMessageEdited   = "edited"
	EventMessageDeleted  = "deleted"
	EventReactionChanged = "reaction-changed"
	EventPinnedChanged   = "pinned-changed"
	EventPollVoted       = "poll-voted"
	EventNoteEdit        = "note:edit"
)

// Envelope is the server-to-client frame.
type Envelope struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Data  any    `json:"data,omitempty"`
}

const hubEventsChannel = "studyhub:events"

type bridgeEvent struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub tracks which user occupies which connection, which rooms each
// connection joined, and the advisory typing set per room. It is explicitly
// constructed and injected; there is no package-level instance. Events are
// best-effort with no delivery guarantee: clients recover by re-fetching
// history and de-duplicating by message id.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]map[*Client]struct{}
	connOwner map[*Client]string
	typing    map[string]map[string]struct{}

	redis     *redis.Client
	redisSub  *redis.PubSub
	subCancel context.CancelFunc
}

func NewHub() *Hub {
	return &Hub{
		rooms:     map[string]map[*Client]struct{}{},
		connOwner: map[*Client]string{},
		typing:    map[string]map[string]struct{}{},
	}
}

// UseRedis wires a cross-process event bridge. Without it the hub falls back
// to process-local fan-out.
func (h *Hub) UseRedis(client *redis.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redis = client
}

func (h *Hub) StartRedisSubscriber(ctx context.Context) error {
	h.mu.Lock()
	if h.redis == nil {
		h.mu.Unlock()
		return errors.New("redis client is nil")
	}
	if h.redisSub != nil {
		h.mu.Unlock()
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := h.redis.Subscribe(subCtx, hubEventsChannel)
	h.redisSub = sub
	h.subCancel = cancel
	h.mu.Unlock()

	go h.consumeEvents(subCtx, sub)
	return nil
}

func (h *Hub) StopRedisSubscriber() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subCancel != nil {
		h.subCancel()
		h.subCancel = nil
	}
	if h.redisSub != nil {
		_ = h.redisSub.Close()
		h.redisSub = nil
	}
}

// Join adds the connection to the room and broadcasts an online presence
// update. Duplicate joins re-broadcast, they are not deduplicated.
func (h *Hub) Join(room string, userID string, c *Client) {
	h.mu.Lock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = map[*Client]struct{}{}
	}
	h.rooms[room][c] = struct{}{}
	h.connOwner[c] = userID
	h.mu.Unlock()

	h.Broadcast(room, EventPresenceUpdate, presencePayload{UserID: userID, Status: "online"})
}

// Leave is idempotent: removing an absent connection is a no-op apart from
// the offline broadcast.
func (h *Hub) Leave(room string, userID string, c *Client) {
	h.mu.Lock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.connOwner, c)
	if users, ok := h.typing[room]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.typing, room)
		}
	}
	h.mu.Unlock()

	h.Broadcast(room, EventPresenceUpdate, presencePayload{UserID: userID, Status: "offline"})
}

// SetTyping mutates the advisory typing set and re-broadcasts the full set,
// not a delta. Entries are client-driven; a client that goes silent without
// an explicit stop leaves a stale entry until it disconnects.
func (h *Hub) SetTyping(room string, userID string, isTyping bool) {
	h.mu.Lock()
	if isTyping {
		if _, ok := h.typing[room]; !ok {
			h.typing[room] = map[string]struct{}{}
		}
		h.typing[room][userID] = struct{}{}
	} else if users, ok := h.typing[room]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.typing, room)
		}
	}
	h.mu.Unlock()

	h.Broadcast(room, EventTypingUpdate, typingPayload{Room: room, Typing: h.TypingUsers(room)})
}

// TypingUsers returns the current typing set for the room, sorted.
func (h *Hub) TypingUsers(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.typing[room]))
	for userID := range h.typing[room] {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// RoomSize reports how many connections are currently in the room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Disconnect drops the connection from every room it joined, broadcasts an
// offline presence update per room, and clears the owner from every room's
// typing set. The typing sweep scans all rooms; room counts are expected to
// stay small.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	userID, owned := h.connOwner[c]
	delete(h.connOwner, c)

	left := make([]string, 0)
	for room, conns := range h.rooms {
		if _, ok := conns[c]; !ok {
			continue
		}
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
		left = append(left, room)
	}
	if owned {
		for room, users := range h.typing {
			delete(users, userID)
			if len(users) == 0 {
				delete(h.typing, room)
			}
		}
	}
	h.mu.Unlock()

	if owned {
		for _, room := range left {
			h.Broadcast(room, EventPresenceUpdate, presencePayload{UserID: userID, Status: "offline"})
		}
	}
	c.close()
}

// Broadcast sends the event to every connection in the room, across
// processes when the redis bridge is up, locally otherwise.
func (h *Hub) Broadcast(room string, event string, payload any) {
	if h.publish(room, event, payload) {
		return
	}
	count := h.broadcastLocal(room, event, payload, nil)
	commonlog.Debugf("event=hub action=local_dispatch room=%s kind=%s fanout_count=%d", room, event, count)
}

// BroadcastExcept fans out locally, skipping one connection. Used for echoes
// the originator already has, e.g. note edits.
func (h *Hub) BroadcastExcept(room string, except *Client, event string, payload any) {
	h.broadcastLocal(room, event, payload, except)
}

func (h *Hub) broadcastLocal(room string, event string, payload any, except *Client) int {
	envelope := Envelope{Event: event, Room: room, Data: payload}
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.WriteJSON(envelope)
	}
	return len(conns)
}

func (h *Hub) publish(room string, event string, payload any) bool {
	h.mu.RLock()
	redisClient := h.redis
	h.mu.RUnlock()
	if redisClient == nil {
		return false
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	b, err := json.Marshal(bridgeEvent{Room: room, Event: event, Payload: raw})
	if err != nil {
		return false
	}
	if err := redisClient.Publish(context.Background(), hubEventsChannel, b).Err(); err != nil {
		commonlog.Errorf("event=hub action=publish status=failed room=%s kind=%s error=%v", room, event, err)
		return false
	}
	return true
}

func (h *Hub) consumeEvents(ctx context.Context, sub *redis.PubSub) {
	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		var event bridgeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}
		var payload any
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				continue
			}
		}
		count := h.broadcastLocal(event.Room, event.Event, payload, nil)
		commonlog.Debugf("event=hub action=consume status=ok room=%s kind=%s fanout_count=%d", event.Room, event.Event, count)
	}
}

type presencePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type typingPayload struct {
	Room   string   `json:"room"`
	Typing []string `json:"typing"`
}
