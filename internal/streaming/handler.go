package streaming

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Authenticator resolves the tenant_id a WebSocket upgrade request is
// authorized for. Request-level JWT/OIDC validation itself is a Non-goal
// (spec.md "SSO/JWT request validation"); composition wires a concrete
// Authenticator, this package only consumes the result.
type Authenticator interface {
	Authenticate(r *http.Request) (tenantID string, err error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated HTTP requests to streaming WebSocket
// clients, grounded on the teacher's internal/infrastructure/websocket
// Handler.
type Handler struct {
	hub    *Hub
	auth   Authenticator
	logger *slog.Logger
}

// NewHandler builds a Handler serving upgrades for hub.
func NewHandler(hub *Hub, auth Authenticator, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, auth: auth, logger: logger}
}

// ServeHTTP authenticates the request, upgrades it, and hands the
// resulting connection off to a new Client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.auth.Authenticate(r)
	if err != nil {
		h.logger.Warn("streaming upgrade rejected", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("streaming upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := NewClient(uuid.NewString(), tenantID, h.hub, conn)
	h.logger.Info("streaming client connected", "client_id", client.id, "tenant_id", tenantID)
	go client.Serve()
}
