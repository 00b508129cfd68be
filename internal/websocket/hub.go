package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

// Message is a ledger change pushed to every connected display.
type Message struct {
	Type    string `json:"type"`
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	ID      string `json:"id,omitempty"`
	ChildID int64  `json:"child_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewMessage builds a Message whose Type is entity_action.
func NewMessage(entity, action string, data any) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		Data:   data,
	}
}

// SettlementMessage announces a created, updated or deleted settlement.
func SettlementMessage(action string, st model.Settlement) Message {
	msg := NewMessage("settlement", action, st)
	msg.ID = st.ID
	msg.ChildID = st.ChildID
	return msg
}

// AutoSettlementMessage carries the results of one scheduler run.
func AutoSettlementMessage(results []model.SettlementResult) Message {
	return NewMessage("auto_settlement", "completed", results)
}

// RolloverMessage tells displays that monthly totals restarted.
func RolloverMessage(now time.Time) Message {
	return NewMessage("month", "rolled_over", map[string]int{
		"month": int(now.Month()),
		"year":  now.Year(),
	})
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", h.ClientCount())
}

// Unregister removes a client and closes its send channel. Unregistering
// twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues msg for every client. A client whose buffer is full
// misses the message rather than stalling the sender.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("broadcast dropped for slow clients", "type", msg.Type, "dropped", dropped)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
