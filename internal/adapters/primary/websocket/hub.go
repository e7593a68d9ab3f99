package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/infrastructure/metrics"
)

// ErrHubClosed is returned by Attach after Shutdown.
var ErrHubClosed = errors.New("websocket: hub closed")

// Hub owns the Registry and pushes events to the connections it resolves.
type Hub struct {
	registry *Registry
	metrics  *metrics.Realtime
	logger   *slog.Logger
	now      func() time.Time

	// mu orders Attach against Shutdown so no connection is admitted after it.
	mu     sync.Mutex
	closed bool
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a hub over registry. m may be nil.
func NewHub(registry *Registry, m *metrics.Realtime, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		metrics:  m,
		logger:   logger.With("component", "websocket_hub"),
		now:      time.Now,
	}
}

// Registry exposes the underlying registry for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Attach registers a freshly authenticated connection. If the principal
// already had a live connection, that one is evicted and closed.
func (h *Hub) Attach(conn Connection, principal domain.Principal) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	superseded := h.registry.Register(conn, principal)
	h.mu.Unlock()

	h.logger.Info("connection attached",
		"connection_id", conn.ID(),
		"user_id", principal.UserID,
		"role", principal.Role,
	)

	if superseded != nil {
		h.logger.Info("connection superseded",
			"connection_id", superseded.ID(),
			"user_id", principal.UserID,
			"replaced_by", conn.ID(),
		)
		h.Evict(superseded, CloseSuperseded, "superseded")
	}

	h.refreshOccupancy()
	return nil
}

// Detach unregisters a connection. It is safe to call more than once and
// reports whether this call did the removal.
func (h *Hub) Detach(id uuid.UUID) bool {
	removed := h.registry.Unregister(id)
	if removed {
		h.logger.Info("connection detached", "connection_id", id)
		h.refreshOccupancy()
	}
	return removed
}

// Join subscribes a registered connection to a community room.
func (h *Hub) Join(id uuid.UUID, communityID string) (bool, error) {
	changed, err := h.registry.Join(id, communityID)
	if err != nil {
		return false, err
	}
	if changed {
		h.logger.Debug("connection joined room", "connection_id", id, "community_id", communityID)
		h.refreshOccupancy()
	}
	return changed, nil
}

// Leave unsubscribes a registered connection from a community room.
func (h *Hub) Leave(id uuid.UUID, communityID string) (bool, error) {
	changed, err := h.registry.Leave(id, communityID)
	if err != nil {
		return false, err
	}
	if changed {
		h.logger.Debug("connection left room", "connection_id", id, "community_id", communityID)
		h.refreshOccupancy()
	}
	return changed, nil
}

// EmitToRoom pushes a room-scoped event to every connection in communityID.
// It never blocks on network I/O and never fails; an empty room is a no-op.
func (h *Hub) EmitToRoom(communityID string, name domain.EventName, payload any) {
	if !h.checkScope(name, domain.ScopeRoom) {
		return
	}

	targets := h.registry.ResolveByRoom(communityID)
	if len(targets) == 0 {
		return
	}

	frame, err := encodeFrame(string(name), payload, h.now())
	if err != nil {
		h.logger.Error("failed to encode event", "event", name, "community_id", communityID, "error", err)
		return
	}

	delivered := h.deliver(targets, string(name), frame)
	h.logger.Debug("event emitted to room",
		"event", name,
		"community_id", communityID,
		"targets", len(targets),
		"delivered", delivered,
	)
}

// EmitToPrincipal pushes a principal-scoped event to the connection bound to userID.
func (h *Hub) EmitToPrincipal(userID uuid.UUID, name domain.EventName, payload any) {
	if !h.checkScope(name, domain.ScopePrincipal) {
		return
	}

	conn, ok := h.registry.ResolveByPrincipal(userID)
	if !ok {
		return
	}

	frame, err := encodeFrame(string(name), payload, h.now())
	if err != nil {
		h.logger.Error("failed to encode event", "event", name, "user_id", userID, "error", err)
		return
	}

	h.deliver([]Connection{conn}, string(name), frame)
}

// SendSystem writes a server-originated frame to one connection. Unlike
// emitted events, a failure is returned to the caller, which owns the connection.
func (h *Hub) SendSystem(conn Connection, event string, payload any) error {
	frame, err := encodeFrame(event, payload, h.now())
	if err != nil {
		return err
	}
	return conn.Send(frame)
}

// Stats reports the registry size.
func (h *Hub) Stats() RegistryStats {
	return h.registry.Stats()
}

// Shutdown refuses new connections and closes every live one.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	conns := h.registry.Connections()
	for _, conn := range conns {
		h.Evict(conn, websocket.CloseGoingAway, "shutdown")
	}
	h.logger.Info("hub shut down", "closed_connections", len(conns))
}

func (h *Hub) checkScope(name domain.EventName, want domain.EventScope) bool {
	spec, ok := domain.LookupEvent(name)
	if !ok {
		h.logger.Warn("dropping unknown event", "event", name)
		return false
	}
	if spec.Scope != want {
		h.logger.Warn("dropping event emitted with the wrong scope",
			"event", name,
			"scope", spec.Scope.String(),
			"emitted_as", want.String(),
		)
		return false
	}
	return true
}

// deliver queues frame on each target. A target that cannot take it is
// evicted and the loop moves on to the next one.
func (h *Hub) deliver(targets []Connection, event string, frame []byte) int {
	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(frame); err != nil {
			reason := failureReason(err)
			h.metrics.RecordDeliveryFailure(reason)
			h.logger.Warn("delivery failed, evicting connection",
				"connection_id", conn.ID(),
				"event", event,
				"reason", reason,
			)
			h.Evict(conn, websocket.ClosePolicyViolation, reason)
			continue
		}
		h.metrics.RecordDelivery(event)
		delivered++
	}
	return delivered
}

// Evict unregisters conn and closes it with code.
func (h *Hub) Evict(conn Connection, code int, reason string) {
	if h.registry.Unregister(conn.ID()) {
		h.metrics.RecordEviction(reason)
		h.refreshOccupancy()
	}
	if err := conn.Close(code, reason); err != nil {
		h.logger.Debug("close after eviction failed", "connection_id", conn.ID(), "error", err)
	}
}

func (h *Hub) refreshOccupancy() {
	stats := h.registry.Stats()
	h.metrics.SetOccupancy(stats.Connections, stats.Rooms)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSendBufferFull):
		return "buffer_full"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	default:
		return "send_error"
	}
}
