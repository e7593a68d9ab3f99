package http

import (
	"log/slog"

	wsAdapter "github.com/lorrc/community-hub/internal/adapters/primary/websocket"
	"github.com/lorrc/community-hub/internal/config"
	"github.com/lorrc/community-hub/internal/core/ports"
)

// NewWebSocketHandler builds the /ws endpoint from application configuration
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	verifier wsAdapter.TokenVerifier,
	authorizer ports.RoomAuthorizer,
	cfg *config.Config,
	logger *slog.Logger,
) *wsAdapter.Controller {
	return wsAdapter.NewController(hub, verifier, authorizer, controllerConfig(cfg), logger)
}

func controllerConfig(cfg *config.Config) wsAdapter.ControllerConfig {
	ws := cfg.WebSocket
	return wsAdapter.ControllerConfig{
		AllowedOrigins:  ws.AllowedOrigins,
		AllowAllOrigins: cfg.IsDevelopment(),
		ReadBufferSize:  ws.ReadBufferSize,
		WriteBufferSize: ws.WriteBufferSize,
		AuthTimeout:     ws.AuthTimeout,
		CommandRate:     ws.CommandRPS,
		CommandBurst:    ws.CommandBurst,
		Client: wsAdapter.ClientConfig{
			SendBufferSize: ws.SendBufferSize,
			MaxMessageSize: ws.MaxMessageSize,
			WriteWait:      ws.WriteWait,
			PongWait:       ws.PongWait,
			PingPeriod:     ws.PingInterval,
		},
	}
}
