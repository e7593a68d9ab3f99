package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientConfig holds the per-connection transport limits.
type ClientConfig struct {
	SendBufferSize int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

// DefaultClientConfig returns the limits used when none are configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SendBufferSize: 256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = def.SendBufferSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	return c
}

// Client adapts a gorilla connection to the Connection interface.
// Frames are queued on send and written by WritePump, which is the only
// goroutine that writes data frames to the socket.
type Client struct {
	id     uuid.UUID
	conn   *websocket.Conn
	cfg    ClientConfig
	logger *slog.Logger

	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}

	// mu guards closed and the close frame fields, and makes Send after Close
	// return an error instead of racing the shutdown of the pump.
	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

var _ Connection = (*Client)(nil)

// NewClient wraps conn. WritePump must be started before frames are sent.
func NewClient(conn *websocket.Conn, cfg ClientConfig, logger *slog.Logger) *Client {
	id := uuid.New()
	cfg = cfg.withDefaults()
	return &Client{
		id:         id,
		conn:       conn,
		cfg:        cfg,
		logger:     logger.With("connection_id", id.String()),
		send:       make(chan []byte, cfg.SendBufferSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *Client) ID() uuid.UUID { return c.id }

// Send queues a frame without blocking.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close asks the write pump to flush queued frames, send a close frame with
// code and reason, and close the socket. Only the first call has any effect.
func (c *Client) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.done)
	return nil
}

// Wait blocks until the write pump has exited or timeout elapses.
func (c *Client) Wait(timeout time.Duration) {
	select {
	case <-c.writerDone:
	case <-time.After(timeout):
		c.logger.Warn("write pump did not stop in time")
		_ = c.conn.Close()
	}
}

// ReadFrame reads one data frame, failing if none arrives within timeout.
// Used while the connection is still waiting for credentials.
func (c *Client) ReadFrame(timeout time.Duration) ([]byte, error) {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// ReadPump reads frames until the peer goes away, the read deadline passes,
// or handle returns false. It runs on the caller's goroutine.
func (c *Client) ReadPump(handle func(data []byte) bool) {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if !handle(data) {
			return
		}
	}
}

// WritePump writes queued frames and keepalive pings to the socket.
// It runs in its own goroutine and owns closing the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				c.logger.Debug("failed to write frame", "error", err)
				c.abandon()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				c.abandon()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				c.abandon()
				return
			}

		case <-c.done:
			c.flush()
			c.writeClose()
			return
		}
	}
}

// flush writes whatever was queued before Close so per-connection order
// is kept up to the close frame.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) writeClose() {
	c.mu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.Debug("failed to send close message", "error", err)
	}
}

// abandon marks the client closed after a write failure so later sends fail fast.
func (c *Client) abandon() {
	_ = c.Close(websocket.CloseAbnormalClosure, "write failed")
}
