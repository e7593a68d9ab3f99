package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/community-hub/internal/auth"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

type stubAuthorizer struct {
	allowed map[string]bool
	err     error
}

func (a stubAuthorizer) CanJoin(_ context.Context, _ domain.Principal, communityID string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.allowed[communityID], nil
}

type harness struct {
	hub    *Hub
	tm     *auth.TokenManager
	server *httptest.Server
}

func newHarness(t *testing.T, configure func(*ControllerConfig), authorizer ports.RoomAuthorizer) *harness {
	t.Helper()

	cfg := ControllerConfig{
		AllowAllOrigins: true,
		AuthTimeout:     time.Second,
		CommandRate:     100,
		CommandBurst:    100,
	}
	if configure != nil {
		configure(&cfg)
	}
	if authorizer == nil {
		authorizer = stubAuthorizer{allowed: map[string]bool{"room-1": true, "room-2": true}}
	}

	hub := NewHub(NewRegistry(), nil, testLogger())
	tm := auth.NewTokenManager("test-secret", time.Hour)
	server := httptest.NewServer(NewController(hub, tm, authorizer, cfg, testLogger()))

	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
	})

	return &harness{hub: hub, tm: tm, server: server}
}

func (h *harness) url(query string) string {
	return "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws" + query
}

func (h *harness) token(t *testing.T, principal domain.Principal) string {
	t.Helper()
	token, err := h.tm.GenerateToken(principal.UserID, principal.Role)
	require.NoError(t, err)
	return token
}

// connect dials with a query-string token and consumes the connected frame.
func (h *harness) connect(t *testing.T, principal domain.Principal) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url("?token="+url.QueryEscape(h.token(t, principal))), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	frame := readFrame(t, conn)
	require.Equal(t, FrameConnected, frame.Event)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
		return closeErr.Code
	}
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmdType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(Command{Type: cmdType, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func payloadMap(t *testing.T, frame Frame) map[string]any {
	t.Helper()
	data, ok := frame.Data.(map[string]any)
	require.True(t, ok, "frame %s has no object payload", frame.Event)
	return data
}

func TestController_RejectsInvalidTokenBeforeUpgrade(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, resp, err := websocket.DefaultDialer.Dial(h.url("?token=not-a-token"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	header := http.Header{"Authorization": []string{"Basic dXNlcjpwYXNz"}}
	_, resp, err = websocket.DefaultDialer.Dial(h.url(""), header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, RegistryStats{}, h.hub.Stats())
}

func TestController_ConnectedFrame(t *testing.T) {
	h := newHarness(t, nil, nil)
	principal := resident()

	conn, _, err := websocket.DefaultDialer.Dial(h.url("?token="+h.token(t, principal)), nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := readFrame(t, conn)
	assert.Equal(t, FrameConnected, frame.Event)
	data := payloadMap(t, frame)
	assert.Equal(t, principal.UserID.String(), data["userId"])
	_, err = uuid.Parse(data["connectionId"].(string))
	assert.NoError(t, err)

	bound, ok := h.hub.Registry().ResolveByPrincipal(principal.UserID)
	require.True(t, ok)
	assert.Equal(t, data["connectionId"], bound.ID().String())
}

func TestController_CredentialSources(t *testing.T) {
	h := newHarness(t, nil, nil)

	t.Run("authorization header", func(t *testing.T) {
		principal := resident()
		header := http.Header{"Authorization": []string{"Bearer " + h.token(t, principal)}}
		conn, _, err := websocket.DefaultDialer.Dial(h.url(""), header)
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, FrameConnected, readFrame(t, conn).Event)
	})

	t.Run("subprotocol", func(t *testing.T) {
		principal := resident()
		dialer := websocket.Dialer{Subprotocols: []string{Subprotocol, bearerProtocolPrefix + h.token(t, principal)}}
		conn, _, err := dialer.Dial(h.url(""), nil)
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, Subprotocol, conn.Subprotocol())
		assert.Equal(t, FrameConnected, readFrame(t, conn).Event)
	})
}

func TestController_FirstFrameAuthentication(t *testing.T) {
	h := newHarness(t, nil, nil)
	principal := resident()

	conn, _, err := websocket.DefaultDialer.Dial(h.url(""), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 0, h.hub.Stats().Connections, "pending connections are not registered")

	sendCommand(t, conn, CommandAuth, AuthPayload{Token: h.token(t, principal)})

	frame := readFrame(t, conn)
	assert.Equal(t, FrameConnected, frame.Event)
	assert.Equal(t, principal.UserID.String(), payloadMap(t, frame)["userId"])
}

func TestController_FirstFrameRejected(t *testing.T) {
	tests := []struct {
		name  string
		frame func(t *testing.T, conn *websocket.Conn)
	}{
		{
			name: "bad token",
			frame: func(t *testing.T, conn *websocket.Conn) {
				sendCommand(t, conn, CommandAuth, AuthPayload{Token: "nope"})
			},
		},
		{
			name: "not an auth command",
			frame: func(t *testing.T, conn *websocket.Conn) {
				sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: "room-1"})
			},
		},
		{
			name: "garbage",
			frame: func(t *testing.T, conn *websocket.Conn) {
				require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, nil)

			conn, _, err := websocket.DefaultDialer.Dial(h.url(""), nil)
			require.NoError(t, err)
			defer conn.Close()

			tt.frame(t, conn)

			assert.Equal(t, CloseUnauthenticated, readCloseCode(t, conn))
			assert.Equal(t, RegistryStats{}, h.hub.Stats())
		})
	}
}

func TestController_AuthGracePeriod(t *testing.T) {
	h := newHarness(t, func(cfg *ControllerConfig) {
		cfg.AuthTimeout = 100 * time.Millisecond
	}, nil)

	conn, _, err := websocket.DefaultDialer.Dial(h.url(""), nil)
	require.NoError(t, err)
	defer conn.Close()

	start := time.Now()
	assert.Equal(t, CloseUnauthenticated, readCloseCode(t, conn))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, RegistryStats{}, h.hub.Stats())
}

func TestController_JoinReceiveLeave(t *testing.T) {
	h := newHarness(t, nil, nil)
	conn := h.connect(t, resident())

	sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: "room-1"})
	joined := readFrame(t, conn)
	assert.Equal(t, FrameJoined, joined.Event)
	assert.Equal(t, "room-1", payloadMap(t, joined)["communityId"])

	h.hub.EmitToRoom("room-1", domain.EventChatMessage, map[string]string{"body": "hello"})
	h.hub.EmitToRoom("room-2", domain.EventChatMessage, map[string]string{"body": "elsewhere"})

	event := readFrame(t, conn)
	assert.Equal(t, "chat:message", event.Event)
	assert.Equal(t, "hello", payloadMap(t, event)["body"])

	sendCommand(t, conn, CommandLeave, RoomPayload{CommunityID: "room-1"})
	assert.Equal(t, FrameLeft, readFrame(t, conn).Event)

	h.hub.EmitToRoom("room-1", domain.EventChatMessage, map[string]string{"body": "missed"})
	sendCommand(t, conn, CommandPing, nil)
	assert.Equal(t, FramePong, readFrame(t, conn).Event, "nothing is delivered after leave")
}

func TestController_JoinDenied(t *testing.T) {
	h := newHarness(t, nil, nil)
	principal := resident()
	conn := h.connect(t, principal)

	sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: "private"})

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Event)
	assert.Equal(t, ErrorCodeForbidden, payloadMap(t, frame)["code"])

	bound, ok := h.hub.Registry().ResolveByPrincipal(principal.UserID)
	require.True(t, ok)
	assert.Empty(t, h.hub.Registry().RoomsOf(bound.ID()))
}

func TestController_AuthorizerFailure(t *testing.T) {
	h := newHarness(t, nil, stubAuthorizer{err: errors.New("database down")})
	conn := h.connect(t, resident())

	sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: "room-1"})

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Event)
	assert.Equal(t, ErrorCodeInternal, payloadMap(t, frame)["code"])
	assert.Equal(t, 0, h.hub.Stats().Rooms)
}

func TestController_RejectsBadCommands(t *testing.T) {
	h := newHarness(t, nil, nil)
	conn := h.connect(t, resident())

	tests := []struct {
		name     string
		send     func()
		wantCode string
	}{
		{
			name:     "malformed json",
			send:     func() { require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json"))) },
			wantCode: ErrorCodeBadRequest,
		},
		{
			name:     "unknown command",
			send:     func() { sendCommand(t, conn, "subscribe", nil) },
			wantCode: ErrorCodeUnknownCommand,
		},
		{
			name:     "missing community id",
			send:     func() { sendCommand(t, conn, CommandJoin, RoomPayload{}) },
			wantCode: ErrorCodeBadRequest,
		},
		{
			name:     "community id too long",
			send:     func() { sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: strings.Repeat("x", 200)}) },
			wantCode: ErrorCodeBadRequest,
		},
		{
			name:     "auth after authentication",
			send:     func() { sendCommand(t, conn, CommandAuth, AuthPayload{Token: "again"}) },
			wantCode: ErrorCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.send()
			frame := readFrame(t, conn)
			assert.Equal(t, FrameError, frame.Event)
			assert.Equal(t, tt.wantCode, payloadMap(t, frame)["code"])
		})
	}

	// The connection survives rejected commands.
	sendCommand(t, conn, CommandPing, nil)
	assert.Equal(t, FramePong, readFrame(t, conn).Event)
}

func TestController_AbruptDisconnectCleansUp(t *testing.T) {
	h := newHarness(t, nil, nil)
	principal := resident()
	conn := h.connect(t, principal)

	sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: "room-1"})
	sendCommand(t, conn, CommandJoin, RoomPayload{CommunityID: "room-2"})
	require.Equal(t, FrameJoined, readFrame(t, conn).Event)
	require.Equal(t, FrameJoined, readFrame(t, conn).Event)
	require.Equal(t, RegistryStats{Connections: 1, Principals: 1, Rooms: 2}, h.hub.Stats())

	// Drop the TCP connection without a close handshake.
	require.NoError(t, conn.UnderlyingConn().Close())

	assert.Eventually(t, func() bool {
		return h.hub.Stats() == RegistryStats{}
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, h.hub.Registry().ResolveByRoom("room-1"))
	assert.Empty(t, h.hub.Registry().ResolveByRoom("room-2"))
	_, ok := h.hub.Registry().ResolveByPrincipal(principal.UserID)
	assert.False(t, ok)
}

func TestController_NewConnectionSupersedesOld(t *testing.T) {
	h := newHarness(t, nil, nil)
	principal := resident()

	first := h.connect(t, principal)
	second := h.connect(t, principal)

	assert.Equal(t, CloseSuperseded, readCloseCode(t, first))

	h.hub.EmitToPrincipal(principal.UserID, domain.EventNotification, domain.NotificationPayload{Title: "hi"})

	frame := readFrame(t, second)
	assert.Equal(t, "notification", frame.Event)
	assert.Equal(t, "hi", payloadMap(t, frame)["title"])

	assert.Eventually(t, func() bool {
		return h.hub.Stats().Connections == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestController_CommandRateLimit(t *testing.T) {
	h := newHarness(t, func(cfg *ControllerConfig) {
		cfg.CommandRate = 0.001
		cfg.CommandBurst = 2
	}, nil)
	conn := h.connect(t, resident())

	for i := 0; i < 3; i++ {
		sendCommand(t, conn, CommandPing, nil)
	}

	assert.Equal(t, FramePong, readFrame(t, conn).Event)
	assert.Equal(t, FramePong, readFrame(t, conn).Event)
	assert.Equal(t, websocket.ClosePolicyViolation, readCloseCode(t, conn))
}

func TestController_ShutdownClosesConnections(t *testing.T) {
	h := newHarness(t, nil, nil)
	conn := h.connect(t, resident())

	h.hub.Shutdown()

	assert.Equal(t, websocket.CloseGoingAway, readCloseCode(t, conn))
}

func TestController_OriginCheck(t *testing.T) {
	h := newHarness(t, func(cfg *ControllerConfig) {
		cfg.AllowAllOrigins = false
		cfg.AllowedOrigins = []string{"*.example.com", "localhost:3000"}
	}, nil)

	tests := []struct {
		origin string
		allow  bool
	}{
		{"https://app.example.com", true},
		{"https://example.com", true},
		{"http://localhost:3000", true},
		{"https://evil.com", false},
		{"https://example.com.evil.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			header := http.Header{"Origin": []string{tt.origin}}
			conn, resp, err := websocket.DefaultDialer.Dial(h.url("?token="+h.token(t, resident())), header)
			if tt.allow {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}
}

func TestCredentialFrom(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		header      http.Header
		wantToken   string
		wantPresent bool
	}{
		{"none", "/ws", nil, "", false},
		{"query", "/ws?token=abc", nil, "abc", true},
		{"bearer header", "/ws", http.Header{"Authorization": {"Bearer def"}}, "def", true},
		{"malformed header", "/ws", http.Header{"Authorization": {"def"}}, "", true},
		{"subprotocol", "/ws", http.Header{"Sec-Websocket-Protocol": {"community-hub.v1, bearer.ghi"}}, "ghi", true},
		{"query wins", "/ws?token=abc", http.Header{"Authorization": {"Bearer def"}}, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				r.Header[k] = v
			}
			token, present := credentialFrom(r)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantPresent, present)
		})
	}
}
