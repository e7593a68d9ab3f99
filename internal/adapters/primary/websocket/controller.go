package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/infrastructure/logging"
)

// Subprotocol is echoed back when offered, so browser clients may pass their
// credential as a "bearer.<token>" subprotocol entry alongside it.
const Subprotocol = "community-hub.v1"

const (
	bearerProtocolPrefix = "bearer."
	authorizeTimeout     = 5 * time.Second
)

// TokenVerifier authenticates the credential presented at connect time.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// ControllerConfig holds the handshake and per-connection policy.
type ControllerConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
	ReadBufferSize  int
	WriteBufferSize int
	AuthTimeout     time.Duration
	CommandRate     float64
	CommandBurst    int
	Client          ClientConfig
}

// Controller runs the lifecycle of every websocket connection:
// authenticate, attach, serve join/leave commands, detach.
type Controller struct {
	hub        *Hub
	verifier   TokenVerifier
	authorizer ports.RoomAuthorizer
	cfg        ControllerConfig
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewController creates the connection endpoint.
func NewController(
	hub *Hub,
	verifier TokenVerifier,
	authorizer ports.RoomAuthorizer,
	cfg ControllerConfig,
	logger *slog.Logger,
) *Controller {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 10 * time.Second
	}
	cfg.Client = cfg.Client.withDefaults()

	c := &Controller{
		hub:        hub,
		verifier:   verifier,
		authorizer: authorizer,
		cfg:        cfg,
		logger:     logger.With("component", "websocket_controller"),
	}

	c.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		Subprotocols:    []string{Subprotocol},
		CheckOrigin:     c.makeOriginChecker(),
	}

	return c
}

// makeOriginChecker creates an origin checking function based on configuration
func (c *Controller) makeOriginChecker() func(r *http.Request) bool {
	allowedOrigins := c.cfg.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if c.cfg.AllowAllOrigins {
			if origin != "" {
				c.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			c.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:]
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		c.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// ServeHTTP handles WebSocket connection requests
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.LoggerFromContext(r.Context(), c.logger)

	// 1. A credential sent with the handshake is checked before upgrading.
	var principal domain.Principal
	token, present := credentialFrom(r)
	if present {
		p, err := c.verifier.Verify(token)
		if err != nil {
			logger.Warn("websocket connection rejected: invalid token",
				"remote_addr", r.RemoteAddr,
				"error", err,
			)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		principal = p
	}

	// 2. Upgrade the connection
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade websocket connection", "error", err)
		return
	}

	client := NewClient(conn, c.cfg.Client, logger)
	logger = logger.With("connection_id", client.ID().String())

	go client.WritePump()
	defer client.Wait(2 * c.cfg.Client.WriteWait)

	// 3. Without a handshake credential the first frame must authenticate.
	if !present {
		principal, err = c.awaitAuth(client)
		if err != nil {
			logger.Warn("websocket connection rejected: authentication failed",
				"remote_addr", r.RemoteAddr,
				"error", err,
			)
			_ = client.Close(CloseUnauthenticated, "unauthenticated")
			return
		}
	}
	logger = logger.With("user_id", principal.UserID.String())

	// 4. Register; from here on Detach must run however the connection ends.
	if err := c.hub.Attach(client, principal); err != nil {
		logger.Info("websocket connection refused", "error", err)
		_ = client.Close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.LogPanic(logger, rec)
		}
		c.hub.Detach(client.ID())
		_ = client.Close(websocket.CloseNormalClosure, "")
		logger.Info("websocket connection closed")
	}()

	logger.Info("websocket connection established", "remote_addr", r.RemoteAddr)

	err = c.hub.SendSystem(client, FrameConnected, ConnectedPayload{
		ConnectionID: client.ID().String(),
		UserID:       principal.UserID.String(),
	})
	if err != nil {
		return
	}

	// 5. Serve commands on this goroutine until the peer goes away.
	s := &session{
		ctx:        r.Context(),
		hub:        c.hub,
		authorizer: c.authorizer,
		client:     client,
		principal:  principal,
		limiter:    newCommandLimiter(c.cfg.CommandRate, c.cfg.CommandBurst),
		logger:     logger,
	}
	client.ReadPump(s.handle)
}

func (c *Controller) awaitAuth(client *Client) (domain.Principal, error) {
	data, err := client.ReadFrame(c.cfg.AuthTimeout)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: no credential received: %v", apperrors.ErrUnauthenticated, err)
	}

	cmd, err := decodeCommand(data)
	if err != nil || cmd.Type != CommandAuth {
		return domain.Principal{}, fmt.Errorf("%w: first frame must be an auth command", apperrors.ErrUnauthenticated)
	}

	var payload AuthPayload
	if err := decodePayload(cmd, &payload); err != nil {
		return domain.Principal{}, fmt.Errorf("%w: malformed auth payload", apperrors.ErrUnauthenticated)
	}

	return c.verifier.Verify(payload.Token)
}

// credentialFrom looks for a bearer credential in the query string, the
// Authorization header, then the subprotocol list. present is true when a
// source was supplied even if it turns out to be malformed.
func credentialFrom(r *http.Request) (token string, present bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}

	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", true
		}
		return strings.TrimSpace(parts[1]), true
	}

	for _, proto := range websocket.Subprotocols(r) {
		if strings.HasPrefix(proto, bearerProtocolPrefix) {
			return strings.TrimPrefix(proto, bearerProtocolPrefix), true
		}
	}

	return "", false
}

func newCommandLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// session holds the state of one authenticated connection while it reads commands.
type session struct {
	ctx        context.Context
	hub        *Hub
	authorizer ports.RoomAuthorizer
	client     *Client
	principal  domain.Principal
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// handle processes one inbound frame and reports whether to keep reading.
func (s *session) handle(data []byte) bool {
	if !s.limiter.Allow() {
		s.logger.Warn("websocket command rate exceeded")
		s.hub.Evict(s.client, websocket.ClosePolicyViolation, "rate_limited")
		return false
	}

	cmd, err := decodeCommand(data)
	if err != nil {
		return s.reject(ErrorCodeBadRequest, "malformed command")
	}

	switch cmd.Type {
	case CommandJoin:
		return s.join(cmd)
	case CommandLeave:
		return s.leave(cmd)
	case CommandPing:
		return s.reply(FramePong, nil)
	case CommandAuth:
		return s.reject(ErrorCodeBadRequest, "already authenticated")
	default:
		s.logger.Debug("received unknown command", "type", cmd.Type)
		return s.reject(ErrorCodeUnknownCommand, fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

func (s *session) join(cmd Command) bool {
	communityID, ok := s.roomFrom(cmd)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(s.ctx, authorizeTimeout)
	allowed, err := s.authorizer.CanJoin(ctx, s.principal, communityID)
	cancel()
	if err != nil {
		s.logger.Error("room authorization failed", "community_id", communityID, "error", err)
		return s.reject(ErrorCodeInternal, "could not authorize join")
	}
	if !allowed {
		s.logger.Info("join denied", "community_id", communityID)
		return s.reject(ErrorCodeForbidden, "not a member of this community")
	}

	if _, err := s.hub.Join(s.client.ID(), communityID); err != nil {
		return s.gone(err)
	}
	return s.reply(FrameJoined, RoomPayload{CommunityID: communityID})
}

func (s *session) leave(cmd Command) bool {
	communityID, ok := s.roomFrom(cmd)
	if !ok {
		return true
	}

	if _, err := s.hub.Leave(s.client.ID(), communityID); err != nil {
		return s.gone(err)
	}
	return s.reply(FrameLeft, RoomPayload{CommunityID: communityID})
}

// roomFrom extracts and validates the community id, answering with an
// error frame when it is unusable.
func (s *session) roomFrom(cmd Command) (string, bool) {
	var payload RoomPayload
	if err := decodePayload(cmd, &payload); err != nil {
		s.reject(ErrorCodeBadRequest, "payload must contain communityId")
		return "", false
	}
	if err := domain.ValidateCommunityID(payload.CommunityID); err != nil {
		s.reject(ErrorCodeBadRequest, err.Error())
		return "", false
	}
	return payload.CommunityID, true
}

// gone handles a room command racing an eviction: the connection is no
// longer registered, so stop reading.
func (s *session) gone(err error) bool {
	if errors.Is(err, ErrUnknownConnection) {
		s.logger.Debug("command after eviction", "error", err)
	} else {
		s.logger.Error("room command failed", "error", err)
	}
	return false
}

func (s *session) reply(event string, payload any) bool {
	if err := s.hub.SendSystem(s.client, event, payload); err != nil {
		s.logger.Debug("failed to queue reply", "event", event, "error", err)
		return false
	}
	return true
}

func (s *session) reject(code, message string) bool {
	return s.reply(FrameError, ErrorPayload{Code: code, Message: message})
}

