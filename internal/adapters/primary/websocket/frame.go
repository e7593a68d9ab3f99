package websocket

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

var errEmptyPayload = errors.New("empty payload")

// System frames are written by the server itself and cannot be emitted by producers.
const (
	FrameConnected = "connected"
	FrameJoined    = "joined"
	FrameLeft      = "left"
	FramePong      = "pong"
	FrameError     = "error"
)

// Inbound command types.
const (
	CommandAuth  = "auth"
	CommandJoin  = "join"
	CommandLeave = "leave"
	CommandPing  = "ping"
)

// Error codes carried by error frames.
const (
	ErrorCodeBadRequest     = "bad_request"
	ErrorCodeUnknownCommand = "unknown_command"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeInternal       = "internal"
)

// Frame is the envelope for every server push.
type Frame struct {
	Event string      `json:"event"`
	Data  any `json:"data,omitempty"`
	TS    int64       `json:"ts"`
}

// Command is the envelope for every client message.
type Command struct {
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// RoomPayload is the payload of join/leave commands and joined/left frames.
type RoomPayload struct {
	CommunityID string `json:"communityId"`
}

// AuthPayload is the payload of the auth command.
type AuthPayload struct {
	Token string `json:"token"`
}

// ConnectedPayload is sent once a connection is registered.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

// ErrorPayload describes a rejected command.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encodeFrame(event string, data any, now time.Time) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data, TS: now.UnixMilli()})
}

func decodeCommand(raw []byte) (Command, error) {
	var cmd Command
	err := json.Unmarshal(raw, &cmd)
	return cmd, err
}

func decodePayload(cmd Command, v any) error {
	if len(cmd.Payload) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(cmd.Payload, v)
}
