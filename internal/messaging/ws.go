package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/user"
)

const writeWait = 10 * time.Second

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// thread holds the sockets watching one bid.
type thread struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// broadcast writes under the thread lock, since a websocket connection
// allows only one concurrent writer.
func (t *thread) broadcast(payload []byte) []*websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	var dead []*websocket.Conn
	for c := range t.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			dead = append(dead, c)
		}
	}
	return dead
}

// Hub pushes bid thread events to connected participants. It is a
// marketplace.Notifier, so committed messages and bid decisions reach open
// sockets without the marketplace knowing about websockets.
type Hub struct {
	marketplace.NopNotifier

	mu      sync.Mutex
	threads map[string]*thread
}

func NewHub() *Hub {
	return &Hub{threads: make(map[string]*thread)}
}

func (h *Hub) register(bidID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.threads[bidID]
	if !ok {
		t = &thread{clients: make(map[*websocket.Conn]struct{})}
		h.threads[bidID] = t
	}
	t.mu.Lock()
	t.clients[c] = struct{}{}
	t.mu.Unlock()
}

func (h *Hub) unregister(bidID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.threads[bidID]
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.clients, c)
	empty := len(t.clients) == 0
	t.mu.Unlock()
	if empty {
		delete(h.threads, bidID)
	}
}

// Watchers reports how many sockets follow a bid.
func (h *Hub) Watchers(bidID string) int {
	h.mu.Lock()
	t, ok := h.threads[bidID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

func (h *Hub) publish(bidID string, evt wsEvent) error {
	h.mu.Lock()
	t, ok := h.threads[bidID]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	for _, c := range t.broadcast(payload) {
		h.unregister(bidID, c)
		_ = c.Close()
	}
	return nil
}

func (h *Hub) MessagePosted(_ context.Context, _ marketplace.ServiceRequest, bid marketplace.Bid, msg marketplace.BidMessage) error {
	return h.publish(bid.ID, wsEvent{Type: "message_new", Data: msg})
}

func (h *Hub) BidAccepted(_ context.Context, _ marketplace.ServiceRequest, bid marketplace.Bid) error {
	return h.publish(bid.ID, wsEvent{Type: "bid_status", Data: bid})
}

func (h *Hub) BidDeclined(_ context.Context, _ marketplace.ServiceRequest, bid marketplace.Bid) error {
	return h.publish(bid.ID, wsEvent{Type: "bid_status", Data: bid})
}

func (h *Hub) BidRejected(_ context.Context, _ marketplace.ServiceRequest, bid marketplace.Bid) error {
	return h.publish(bid.ID, wsEvent{Type: "bid_status", Data: bid})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GET /bids/:id/ws
func (h *Handler) ThreadSocket(c echo.Context) error {
	actor, ok := user.Current(c)
	if !ok {
		return unauthorized(c)
	}
	bidID := c.Param("id")
	if _, _, err := h.svc.Thread(c.Request().Context(), bidID, actor); err != nil {
		return apperr.Respond(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	log := zerolog.Ctx(c.Request().Context())
	log.Debug().Str("bid_id", bidID).Msg("thread socket opened")

	h.hub.register(bidID, ws)
	_ = h.hub.publish(bidID, wsEvent{Type: "presence_join", Data: echo.Map{"user_id": actor.ID}})

	// server push only; reads just detect the close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.unregister(bidID, ws)
	_ = ws.Close()
	_ = h.hub.publish(bidID, wsEvent{Type: "presence_leave", Data: echo.Map{"user_id": actor.ID}})
	log.Debug().Str("bid_id", bidID).Msg("thread socket closed")
	return nil
}
