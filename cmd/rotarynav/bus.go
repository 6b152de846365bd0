package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ============================================================================
// Notification bus client
// ============================================================================
// The dashboard exchanges JSON text frames over one websocket:
//
//   {"type":"notification","id":"...","notification":"NAME","payload":{...}}
//   {"type":"module","id":"...","action":"show","identifier":"clock","speed_ms":600}
//
// Outbound sends never block the daemon loop for longer than the write
// timeout and are dropped (with a warning) while disconnected. Inbound
// notifications are turned into ExternalNotification events.
// ============================================================================

// busFrame is the wire format for both directions.
type busFrame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	Notification string          `json:"notification,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`

	Action     string `json:"action,omitempty"` // "show" | "hide"
	Identifier string `json:"identifier,omitempty"`
	SpeedMS    int64  `json:"speed_ms,omitempty"`
}

// decodeBusFrame turns an inbound frame into a loop event.
// Frames that carry nothing for the menus return ok=false.
func decodeBusFrame(b []byte) (ev Event, ok bool, err error) {
	var f busFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, false, fmt.Errorf("unmarshal bus frame: %w", err)
	}
	if f.Type != "notification" {
		return nil, false, nil
	}
	if f.Notification == "" {
		return nil, false, errors.New("notification frame without name")
	}
	// the encoder bridge of the dashboard publishes gestures as notifications
	if strings.HasPrefix(f.Notification, "ROTARY_") {
		if re, err := ParseRotaryEvent(f.Notification); err == nil {
			return RotaryInput{Event: re, Source: "bus"}, true, nil
		}
	}
	return ExternalNotification{Notification: f.Notification, Payload: f.Payload}, true, nil
}

// BusClient manages the websocket connection to the dashboard notification bus.
type BusClient struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	url          string
	logger       *slog.Logger
	writeTimeout time.Duration
	retryDelay   time.Duration
}

// NewBusClient validates the URL; Run establishes the connection.
func NewBusClient(wsURL string, logger *slog.Logger, timeoutMS int) (*BusClient, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}
	return &BusClient{
		url:          wsURL,
		logger:       logger,
		writeTimeout: time.Duration(timeoutMS) * time.Millisecond,
		retryDelay:   500 * time.Millisecond,
	}, nil
}

// connect establishes a WebSocket connection to the bus
func (c *BusClient) connect(ctx context.Context) (*websocket.Conn, error) {
	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	return conn, nil
}

// connectWithRetry keeps dialing until it succeeds or ctx is canceled.
// The delay doubles per failure up to ten seconds.
func (c *BusClient) connectWithRetry(ctx context.Context) (*websocket.Conn, error) {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		conn, err := c.connect(ctx)
		if err == nil {
			c.logger.Info("connected to notification bus", "url", c.url)
			return conn, nil
		}
		c.logger.Warn("bus connection failed; retrying...", "error", err, "attempt", attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, 10*time.Second)
	}
}

// Run connects, forwards inbound frames to events and reconnects on error.
// It returns nil once ctx is canceled.
func (c *BusClient) Run(ctx context.Context, events chan<- Event) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		conn, err := c.connectWithRetry(ctx)
		if err != nil {
			return nil
		}

		c.readLoop(ctx, conn, events)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("bus connection lost; reconnecting...")
	}
}

func (c *BusClient) readLoop(ctx context.Context, conn *websocket.Conn, events chan<- Event) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Info("bus read stopped", "error", err)
			}
			return
		}

		ev, ok, err := decodeBusFrame(msg)
		if err != nil {
			c.logger.Warn("bus frame ignored", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// send writes one frame; it never waits for a reconnect.
func (c *BusClient) send(f busFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		// the read loop notices the broken connection and reconnects
		_ = c.conn.Close()
		return err
	}
	return nil
}

// SendNotification implements Notifier.
func (c *BusClient) SendNotification(notification string, payload json.RawMessage) {
	f := busFrame{
		Type:         "notification",
		ID:           uuid.NewString(),
		Notification: notification,
		Payload:      payload,
	}
	if err := c.send(f); err != nil {
		c.logger.Warn("bus notification dropped", "notification", notification, "error", err)
		return
	}
	c.logger.Debug("bus notification sent", "notification", notification, "id", f.ID)
}

// ShowModule implements ModuleController.
func (c *BusClient) ShowModule(id string, speed time.Duration) { c.moduleAction("show", id, speed) }

// HideModule implements ModuleController.
func (c *BusClient) HideModule(id string, speed time.Duration) { c.moduleAction("hide", id, speed) }

func (c *BusClient) moduleAction(action, id string, speed time.Duration) {
	f := busFrame{
		Type:       "module",
		ID:         uuid.NewString(),
		Action:     action,
		Identifier: id,
		SpeedMS:    speed.Milliseconds(),
	}
	if err := c.send(f); err != nil {
		c.logger.Warn("bus module action dropped", "action", action, "identifier", id, "error", err)
	}
}

// Close closes the WebSocket connection
func (c *BusClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
