package websocket

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/infrastructure/metrics"
)

type fakeConn struct {
	id        uuid.UUID
	mu        sync.Mutex
	received  [][]byte
	sendErr   error
	closed    bool
	closeCode int
	onSend    func()
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.New()}
}

func (f *fakeConn) ID() uuid.UUID { return f.id }

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	hook := f.onSend
	if f.sendErr != nil {
		err := f.sendErr
		f.mu.Unlock()
		return err
	}
	if f.closed {
		f.mu.Unlock()
		return ErrConnectionClosed
	}
	f.received = append(f.received, frame)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeConn) Close(code int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.closeCode = code
	}
	return nil
}

func (f *fakeConn) frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	frames := make([]Frame, 0, len(f.received))
	for _, raw := range f.received {
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err == nil {
			frames = append(frames, frame)
		}
	}
	return frames
}

func (f *fakeConn) isClosed() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) (*Hub, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewHub(NewRegistry(), metrics.NewRealtime(reg), testLogger()), reg
}

// metricValue reads a gauge or counter; label selects the child of a vector.
func metricValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if label != "" {
				labels := metric.GetLabel()
				if len(labels) == 0 || labels[0].GetValue() != label {
					continue
				}
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func attach(t *testing.T, h *Hub, principal domain.Principal, rooms ...string) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	require.NoError(t, h.Attach(conn, principal))
	for _, room := range rooms {
		_, err := h.Join(conn.ID(), room)
		require.NoError(t, err)
	}
	return conn
}

func TestHub_EmitToRoom_OnlyRoomMembers(t *testing.T) {
	h, _ := newTestHub(t)

	a := attach(t, h, resident(), "room-1")
	b := attach(t, h, resident(), "room-1")
	c := attach(t, h, resident(), "room-2")

	h.EmitToRoom("room-1", domain.EventStatsUpdated, domain.StatsUpdatedPayload{Type: domain.StatsMessages})

	for _, conn := range []*fakeConn{a, b} {
		frames := conn.frames()
		require.Len(t, frames, 1)
		assert.Equal(t, "stats:updated", frames[0].Event)
		assert.Equal(t, map[string]any{"type": "messages"}, frames[0].Data)
		assert.NotZero(t, frames[0].TS)
	}
	assert.Empty(t, c.frames())
}

func TestHub_EmitToRoom_ZeroSubscribers(t *testing.T) {
	h, reg := newTestHub(t)
	bystander := attach(t, h, resident())

	assert.NotPanics(t, func() {
		h.EmitToRoom("nobody-here", domain.EventChatMessage, map[string]string{"body": "hi"})
	})

	assert.Empty(t, bystander.frames())
	assert.Equal(t, float64(0), metricValue(t, reg, "community_hub_ws_deliveries_total", "chat:message"))
}

func TestHub_EmitToRoom_FailureDoesNotAbortFanOut(t *testing.T) {
	h, reg := newTestHub(t)

	conns := make([]*fakeConn, 0, 5)
	for i := 0; i < 5; i++ {
		conns = append(conns, attach(t, h, resident(), "room-1"))
	}
	full := conns[1]
	full.sendErr = ErrSendBufferFull

	// conns[3] disconnects while the fan-out is in progress.
	leaving := conns[3]
	for _, conn := range conns {
		if conn != leaving {
			conn.onSend = func() {
				h.Detach(leaving.ID())
				_ = leaving.Close(websocket.CloseNormalClosure, "")
			}
		}
	}

	h.EmitToRoom("room-1", domain.EventChatMessage, map[string]string{"body": "hello"})

	for _, conn := range conns {
		if conn == full || conn == leaving {
			continue
		}
		assert.Len(t, conn.frames(), 1, "healthy member %s", conn.ID())
	}

	closed, code := full.isClosed()
	assert.True(t, closed)
	assert.Equal(t, websocket.ClosePolicyViolation, code)

	members := connIDs(h.Registry().ResolveByRoom("room-1"))
	assert.NotContains(t, members, full.ID())
	assert.NotContains(t, members, leaving.ID())
	assert.Len(t, members, 3)
	assert.Equal(t, float64(1), metricValue(t, reg, "community_hub_ws_delivery_failures_total", "buffer_full"))
}

func TestHub_EmitToPrincipal_ReauthenticationRace(t *testing.T) {
	h, reg := newTestHub(t)
	principal := resident()

	x := attach(t, h, principal, "room-1")
	y := attach(t, h, principal)

	closed, code := x.isClosed()
	assert.True(t, closed, "superseded connection is closed")
	assert.Equal(t, CloseSuperseded, code)
	assert.Equal(t, float64(1), metricValue(t, reg, "community_hub_ws_evictions_total", "superseded"))
	assert.Empty(t, h.Registry().ResolveByRoom("room-1"))

	h.EmitToPrincipal(principal.UserID, domain.EventNotification, domain.NotificationPayload{Title: "t", Body: "b"})

	assert.Empty(t, x.frames())
	frames := y.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "notification", frames[0].Event)

	// The old connection's deferred cleanup leaves the new binding alone.
	assert.False(t, h.Detach(x.ID()))
	bound, ok := h.Registry().ResolveByPrincipal(principal.UserID)
	require.True(t, ok)
	assert.Equal(t, y.ID(), bound.ID())
}

func TestHub_EmitToPrincipal_NoConnection(t *testing.T) {
	h, _ := newTestHub(t)
	other := attach(t, h, resident())

	h.EmitToPrincipal(uuid.New(), domain.EventNotification, domain.NotificationPayload{Title: "t"})

	assert.Empty(t, other.frames())
}

func TestHub_DropsUnknownAndMisScopedEvents(t *testing.T) {
	h, _ := newTestHub(t)
	principal := resident()
	conn := attach(t, h, principal, "room-1")

	h.EmitToRoom("room-1", domain.EventName("ticket:created"), nil)
	h.EmitToRoom("room-1", domain.EventNotification, domain.NotificationPayload{Title: "t"})
	h.EmitToPrincipal(principal.UserID, domain.EventChatMessage, nil)

	assert.Empty(t, conn.frames())
}

func TestHub_DropsUnencodablePayload(t *testing.T) {
	h, _ := newTestHub(t)
	conn := attach(t, h, resident(), "room-1")

	h.EmitToRoom("room-1", domain.EventChatMessage, map[string]any{"bad": make(chan int)})

	assert.Empty(t, conn.frames())
	closed, _ := conn.isClosed()
	assert.False(t, closed)
}

func TestHub_PerConnectionOrder(t *testing.T) {
	h, _ := newTestHub(t)
	conn := attach(t, h, resident(), "room-1")

	for i := 0; i < 10; i++ {
		h.EmitToRoom("room-1", domain.EventChatMessage, map[string]int{"seq": i})
	}

	frames := conn.frames()
	require.Len(t, frames, 10)
	for i, frame := range frames {
		data, ok := frame.Data.(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, i, data["seq"])
	}
}

func TestHub_Shutdown(t *testing.T) {
	h, reg := newTestHub(t)
	a := attach(t, h, resident(), "room-1")
	b := attach(t, h, resident())

	h.Shutdown()
	h.Shutdown()

	for _, conn := range []*fakeConn{a, b} {
		closed, code := conn.isClosed()
		assert.True(t, closed)
		assert.Equal(t, websocket.CloseGoingAway, code)
	}
	assert.Equal(t, RegistryStats{}, h.Stats())
	assert.Equal(t, float64(2), metricValue(t, reg, "community_hub_ws_evictions_total", "shutdown"))

	err := h.Attach(newFakeConn(), resident())
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.Equal(t, 0, h.Stats().Connections)
}

func TestHub_OccupancyGauges(t *testing.T) {
	h, reg := newTestHub(t)
	a := attach(t, h, resident(), "room-1", "room-2")
	attach(t, h, resident(), "room-2")

	assert.Equal(t, float64(2), metricValue(t, reg, "community_hub_ws_connections", ""))
	assert.Equal(t, float64(2), metricValue(t, reg, "community_hub_ws_rooms", ""))

	h.Detach(a.ID())

	assert.Equal(t, float64(1), metricValue(t, reg, "community_hub_ws_connections", ""))
	assert.Equal(t, float64(1), metricValue(t, reg, "community_hub_ws_rooms", ""))
}

func TestHub_ConcurrentEmitAndChurn(t *testing.T) {
	h, _ := newTestHub(t)
	stable := attach(t, h, resident(), "room-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.EmitToRoom("room-1", domain.EventStatsUpdated, domain.StatsUpdatedPayload{Type: domain.StatsMembers})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				conn := newFakeConn()
				_ = h.Attach(conn, resident())
				_, _ = h.Join(conn.ID(), "room-1")
				h.Detach(conn.ID())
			}
		}()
	}
	wg.Wait()

	assert.Len(t, stable.frames(), 8*50)
	assert.Equal(t, 1, h.Stats().Connections)
}
