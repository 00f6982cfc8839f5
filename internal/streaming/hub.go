package streaming

import (
	"log/slog"
	"sync"
)

// Broadcaster is the interface run-event producers broadcast through. It
// stays separate from Hub so a future Redis-backed fan-out can implement
// it for horizontal scaling, as the teacher's Hub/Broadcaster split does.
type Broadcaster interface {
	Broadcast(tenantID, runID string, event *RunEvent)
}

type broadcastMsg struct {
	tenantID string
	runID    string
	event    *RunEvent
}

// Hub manages WebSocket client connections and fans out RunEvents to the
// clients subscribed to a given run_id, scoped to the tenant that opened
// the connection (spec §5 tenant discipline applies to this channel too).
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	byTenantID map[string]map[*Client]bool
	byRunID    map[string]map[*Client]bool

	logger *slog.Logger
	mu     sync.RWMutex
}

// NewHub builds a Hub. Run must be started in a goroutine before clients
// are registered.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		byTenantID: make(map[string]map[*Client]bool),
		byRunID:    make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run is the hub's event loop; call it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastEvent(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.byTenantID[client.tenantID] == nil {
		h.byTenantID[client.tenantID] = make(map[*Client]bool)
	}
	h.byTenantID[client.tenantID][client] = true

	h.logger.Debug("streaming client registered", "client_id", client.id, "tenant_id", client.tenantID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	if clients, ok := h.byTenantID[client.tenantID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.byTenantID, client.tenantID)
		}
	}

	client.subs.mu.RLock()
	for runID := range client.subs.runs {
		if clients, ok := h.byRunID[runID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.byRunID, runID)
			}
		}
	}
	client.subs.mu.RUnlock()

	h.logger.Debug("streaming client unregistered", "client_id", client.id, "tenant_id", client.tenantID)
}

// Broadcast queues event for delivery to clients subscribed to runID
// within tenantID. Implements Broadcaster.
func (h *Hub) Broadcast(tenantID, runID string, event *RunEvent) {
	h.broadcast <- &broadcastMsg{tenantID: tenantID, runID: runID, event: event}
}

func (h *Hub) broadcastEvent(msg *broadcastMsg) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	tenantClients, ok := h.byTenantID[msg.tenantID]
	if !ok {
		return
	}

	runClients := h.byRunID[msg.runID]
	for client := range tenantClients {
		if _, subscribed := runClients[client]; !subscribed {
			continue
		}
		select {
		case client.send <- msg.event:
		default:
			h.logger.Warn("streaming client buffer full, dropping event",
				"client_id", client.id, "run_id", msg.runID)
		}
	}
}

// Subscribe adds client's subscription to runID.
func (h *Hub) Subscribe(client *Client, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.subs.mu.Lock()
	defer client.subs.mu.Unlock()

	client.subs.runs[runID] = true
	if h.byRunID[runID] == nil {
		h.byRunID[runID] = make(map[*Client]bool)
	}
	h.byRunID[runID][client] = true
}

// Unsubscribe removes client's subscription to runID.
func (h *Hub) Unsubscribe(client *Client, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.subs.mu.Lock()
	defer client.subs.mu.Unlock()

	delete(client.subs.runs, runID)
	if clients, ok := h.byRunID[runID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.byRunID, runID)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
