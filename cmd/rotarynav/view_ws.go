package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ============================================================================
// View WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// Display clients (the dashboard overlay, view_listen) connect here and
// render the menus from JSON frames {type, ts, data}:
//
//   state_init        full ViewSnapshot, sent once on connect
//   active_changed    {"active": bool}
//   menu_visibility   {"menu": kind, "visible": bool}
//   title_changed     {"menu": kind, "title": string}
//   options_changed   {"options": [...]}            (rotation resets to 0)
//   options_rotated   {"degree": float}
//   info_flash        {"menu": kind, "text": string, "seq": int}
//   gauge_changed     {"rotation": float, "text": string}
//
// The snapshot on connect goes through the daemon loop, which is the only
// owner of view state. Slow clients are disconnected when their queue fills.
// ============================================================================

type wsActiveData struct {
	Active bool `json:"active"`
}

type wsMenuVisibilityData struct {
	Menu    MenuKind `json:"menu"`
	Visible bool     `json:"visible"`
}

type wsTitleData struct {
	Menu  MenuKind `json:"menu"`
	Title string   `json:"title"`
}

type wsOptionsData struct {
	Options []OptionSlot `json:"options"`
}

type wsRotateData struct {
	Degree float64 `json:"degree"`
}

type wsInfoData struct {
	Menu MenuKind `json:"menu"`
	Text string   `json:"text"`
	Seq  uint64   `json:"seq"`
}

// wsOutboundEvent is a pre-typed frame waiting for the broadcaster.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func marshalEnvelope(ev wsOutboundEvent) ([]byte, error) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
}

// ============================================================================
// wsView: View implementation feeding the broadcaster
// ============================================================================

// wsView keeps the retained state for state_init and queues one frame per change.
// Methods run on the loop goroutine; out is drained by RunBroadcaster.
type wsView struct {
	model  viewModel
	out    chan wsOutboundEvent
	logger *slog.Logger
}

func newWSView(buf int, logger *slog.Logger) *wsView {
	if buf <= 0 {
		buf = 128
	}
	return &wsView{model: newViewModel(), out: make(chan wsOutboundEvent, buf), logger: logger}
}

// Snapshot returns a copy of the retained state.
func (v *wsView) Snapshot() ViewSnapshot { return v.model.snapshot() }

// Outbound is the broadcaster's source.
func (v *wsView) Outbound() <-chan wsOutboundEvent { return v.out }

func (v *wsView) emit(typ string, data any) {
	select {
	case v.out <- wsOutboundEvent{Type: typ, Data: data, At: time.Now().UTC()}:
	default:
		v.logger.Warn("view broadcast queue full, dropping frame", "type", typ)
	}
}

func (v *wsView) SetActive(active bool) {
	v.model.setActive(active)
	v.emit("active_changed", wsActiveData{Active: active})
}

func (v *wsView) SetMenuVisible(kind MenuKind, visible bool) {
	v.model.setMenuVisible(kind, visible)
	v.emit("menu_visibility", wsMenuVisibilityData{Menu: kind, Visible: visible})
}

func (v *wsView) SetTitle(kind MenuKind, title string) {
	v.model.setTitle(kind, title)
	v.emit("title_changed", wsTitleData{Menu: kind, Title: title})
}

func (v *wsView) SetOptions(slots []OptionSlot) {
	v.model.setOptions(slots)
	v.emit("options_changed", wsOptionsData{Options: v.model.snapshot().Options})
}

func (v *wsView) RotateOptions(degree float64) {
	v.model.rotate(degree)
	v.emit("options_rotated", wsRotateData{Degree: degree})
}

func (v *wsView) SetInfo(kind MenuKind, text string) {
	seq := v.model.setInfo(kind, text)
	v.emit("info_flash", wsInfoData{Menu: kind, Text: text, Seq: seq})
}

func (v *wsView) SetGauge(rotation float64, text string) {
	v.model.setGauge(rotation, text)
	v.emit("gauge_changed", GaugeState{Rotation: rotation, Text: text})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size (default 32).
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size (default 128).
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("view hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("view hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("view client registered", "client", c.id, "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	// Closing send signals writePump to exit.
	c.closeSend()
	h.logger.Info("view client disconnected", "client", c.id, "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

// BroadcastBytes enqueues a pre-serialized JSON frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("view hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once

	id         string
	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	id := uuid.NewString()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		id:         id,
		remoteAddr: remoteAddr,
		logger:     logger.With("client", id),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Debug("view "+pump+" exiting (close)", "code", code, "reason", text)
		return
	}
	c.logger.Debug("view "+pump+" exiting", "error", err)
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump discards incoming messages; it only exists to process control
// frames and notice disconnects.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

// ============================================================================
// HTTP handler
// ============================================================================

// ViewServer serves the view websocket.
type ViewServer struct {
	logger *slog.Logger
	hub    *Hub

	// events carries RequestViewSnapshot into the daemon loop.
	events chan<- Event
}

func NewViewServer(logger *slog.Logger, events chan<- Event, cfg HubConfig) *ViewServer {
	return &ViewServer{
		logger: logger,
		hub:    NewHub(logger, cfg),
		events: events,
	}
}

func (s *ViewServer) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *ViewServer) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleViewWS)
}

var upgrader = websocket.Upgrader{
	// The overlay is served from the dashboard's own origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleViewWS upgrades and registers a client, then sends state_init.
func (s *ViewServer) handleViewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("view ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// The pumps outlive the handler; net/http cancels r.Context() on return.
	go client.writePump(context.Background())
	go client.readPump()

	if s.events == nil {
		return
	}

	reply := make(chan ViewSnapshot, 1)
	select {
	case <-r.Context().Done():
		return
	case s.events <- RequestViewSnapshot{Reply: reply}:
	}

	waitCtx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	select {
	case <-waitCtx.Done():
		if !errors.Is(waitCtx.Err(), context.Canceled) {
			s.logger.Warn("view snapshot request failed", "error", waitCtx.Err())
		}
	case snap := <-reply:
		initMsg, err := marshalEnvelope(wsOutboundEvent{Type: "state_init", Data: snap})
		if err != nil {
			s.logger.Warn("view state_init marshal failed", "error", err)
			return
		}
		select {
		case client.send <- initMsg:
		default:
			s.hub.unregister <- client
		}
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// gaugeCoalesceWindow bounds how often gauge updates from a fast spin are sent.
const gaugeCoalesceWindow = 50 * time.Millisecond

// RunBroadcaster marshals view frames and fans them out through the hub.
//
// gauge_changed frames are coalesced (latest wins, at most one per window);
// any other frame flushes a pending gauge first so ordering is kept.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan wsOutboundEvent, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	var pending *wsOutboundEvent
	var timer *time.Timer
	var timerC <-chan time.Time

	send := func(ev wsOutboundEvent) {
		msg, err := marshalEnvelope(ev)
		if err != nil {
			logger.Warn("view broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}
	flush := func() {
		if pending != nil {
			send(*pending)
			pending = nil
		}
	}
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		timerC = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			stopTimer()
			return

		case <-timerC:
			flush()
			stopTimer()

		case ev, ok := <-src:
			if !ok {
				flush()
				stopTimer()
				return
			}
			if ev.Type == "gauge_changed" {
				e := ev
				pending = &e
				if timer == nil {
					timer = time.NewTimer(gaugeCoalesceWindow)
					timerC = timer.C
				}
				continue
			}
			flush()
			stopTimer()
			send(ev)
		}
	}
}
