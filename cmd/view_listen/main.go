package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// view_listen prints the frames rotarynav publishes to display clients.
// It is the quickest way to watch the menus react to rotary-ctl.

type envelope struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws", "rotarynav view websocket URL")
		raw   = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The daemon pings every 20s; answer pongs keep the deadline moving.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				fmt.Printf("%s\n", message)
				continue
			}
			handleFrame(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleFrame prints one line per frame, keyed by frame type.
func handleFrame(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", message)
		return
	}

	var data map[string]any
	_ = json.Unmarshal(env.Data, &data)
	ts := env.Ts.Local().Format("15:04:05.000")

	switch env.Type {
	case "state_init":
		pretty, _ := json.MarshalIndent(data, "", "  ")
		fmt.Printf("%s [STATE_INIT]\n%s\n", ts, pretty)
	case "active_changed":
		fmt.Printf("%s [ACTIVE] %v\n", ts, data["active"])
	case "menu_visibility":
		fmt.Printf("%s [VISIBLE] %v=%v\n", ts, data["menu"], data["visible"])
	case "title_changed":
		fmt.Printf("%s [TITLE] %v: %v\n", ts, data["menu"], data["title"])
	case "options_changed":
		fmt.Printf("%s [OPTIONS] %s\n", ts, optionTitles(data["options"]))
	case "options_rotated":
		fmt.Printf("%s [ROTATE] %v°\n", ts, data["degree"])
	case "info_flash":
		fmt.Printf("%s [INFO] %v: %q (#%v)\n", ts, data["menu"], data["text"], data["seq"])
	case "gauge_changed":
		fmt.Printf("%s [GAUGE] %v° %q\n", ts, data["rotation"], data["text"])
	default:
		fmt.Printf("%s [%s] %s\n", ts, env.Type, env.Data)
	}
}

func optionTitles(v any) []string {
	opts, _ := v.([]any)
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		m, _ := o.(map[string]any)
		title, _ := m["title"].(string)
		out = append(out, title)
	}
	return out
}
