package main

import (
	"context"
	"testing"
	"time"
)

// These tests drive the hub without a network: clients have a nil conn and
// the hub guards every conn.Close against nil.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(testLogger(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buf),
		id:         name,
		remoteAddr: name,
		logger:     testLogger(),
	}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.id+" not registered in time")
}

func runHub(t *testing.T, hub *Hub) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for hub to stop")
		}
	}
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)
	defer stop()

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerClient(t, hub, c1)
	registerClient(t, hub, c2)
	if hub.ClientCount() != 2 {
		t.Fatalf("clients=%d, want 2", hub.ClientCount())
	}

	msg := []byte(`{"type":"title_changed","data":{"menu":"navigation","title":"Clock"}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s got %q, want %q", c.id, got, msg)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.id)
		}
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	stop := runHub(t, hub)
	defer stop()

	slow := newTestClient(hub, "slow", 1)
	fast := newTestClient(hub, "fast", 8)
	registerClient(t, hub, slow)
	registerClient(t, hub, fast)

	// stuck client
	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"gauge_changed","data":{"rotation":-90,"text":"5"}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("fast client got %q, want %q", got, msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")

	if hub.ClientCount() != 1 {
		t.Fatalf("clients=%d, want 1", hub.ClientCount())
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)

	c := newTestClient(hub, "c", 4)
	registerClient(t, hub, c)
	stop()

	if _, ok := <-c.send; ok {
		t.Fatalf("send channel still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("clients=%d after shutdown", hub.ClientCount())
	}
}

func TestHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)
	defer stop()

	c := newTestClient(hub, "c", 4)
	registerClient(t, hub, c)
	hub.unregister <- c
	hub.unregister <- c
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.ClientCount() == 0 }, "client not removed")
}

func TestHub_BroadcastBytesDropsWhenFull(t *testing.T) {
	hub := newTestHub(t, 4, 1)
	// hub not running: the queue fills after one message
	hub.BroadcastBytes([]byte("a"))
	hub.BroadcastBytes([]byte("b"))
	if len(hub.broadcast) != 1 {
		t.Fatalf("queued=%d, want 1", len(hub.broadcast))
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
