package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned when emitting on a channel that has been closed.
var ErrClosed = errors.New("channel closed")

// Config holds configuration for the realtime channel connection.
type Config struct {
	URL              string
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	HandshakeTimeout time.Duration
}

// DefaultConfig returns default channel configuration for the given URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   64 * 1024,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Handler receives channel events. Events are delivered one at a time, in the
// order the transport produced them, on a single goroutine.
type Handler func(Event)

// Channel is a live, authenticated websocket connection to the backend for
// one game session at a time.
type Channel struct {
	cfg       Config
	conn      *websocket.Conn
	handler   Handler
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens an authenticated channel and starts its read/write pumps. The
// handler receives a Connected event before any server push, and a
// Disconnected event when the socket goes down.
func Dial(ctx context.Context, cfg Config, token string, handler Handler) (*Channel, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial channel: %w", err)
	}

	c := &Channel{
		cfg:     cfg,
		conn:    conn,
		handler: handler,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()

	log.Info().Str("url", cfg.URL).Msg("channel connected")
	return c, nil
}

// JoinSession announces membership for a session. The server echoes session
// membership rather than the client assuming it silently.
func (c *Channel) JoinSession(sessionID string) error {
	return c.emit("joinGame", map[string]string{"gameId": sessionID})
}

// CreateSession asks the server to allocate a new session.
func (c *Channel) CreateSession() error {
	return c.emit("game:create", nil)
}

// SendMessage sends a user message into the session's chat pipeline.
func (c *Channel) SendMessage(sessionID, text string) error {
	return c.emit("sendMessage", map[string]string{
		"gameId":  sessionID,
		"message": text,
	})
}

// Close shuts the channel down. Idempotent; safe to call concurrently with
// the pumps.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Channel) emit(eventType string, payload interface{}) error {
	frame, err := json.Marshal(struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload,omitempty"`
	}{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", eventType, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().Err(err).Msg("failed to write channel frame")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("failed to send ping")
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Channel) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	c.handler(Connected{})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close; not an error.
				c.handler(Disconnected{})
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Msg("unexpected channel close")
				}
				c.handler(Disconnected{Err: err})
			}
			return
		}

		event, err := decodeEvent(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping undecodable channel event")
			continue
		}
		if event == nil {
			log.Debug().RawJSON("frame", data).Msg("ignoring unknown channel event")
			continue
		}

		c.handler(event)
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}
