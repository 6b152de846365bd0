package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// rotary-ctl - Command-line IPC Client
// ============================================================================
// Injects encoder gestures and bus notifications into a running rotarynav
// daemon, so the menus can be driven without hardware.
//
// Usage:
//   rotary-ctl left
//   rotary-ctl press
//   rotary-ctl notify value '{"value": 42}'
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/rotarynav.sock)
// ============================================================================

// Event types (duplicated from the daemon for a standalone binary)
type Event interface{}

type RotaryInput struct {
	Event  string `json:"event"`
	Source string `json:"source,omitempty"`
}

type ExternalNotification struct {
	Notification string          `json:"notification"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var gestures = map[string]string{
	"left":  "ROTARY_LEFT",
	"prev":  "ROTARY_LEFT",
	"right": "ROTARY_RIGHT",
	"next":  "ROTARY_RIGHT",
	"press": "ROTARY_PRESS",
	"short": "ROTARY_SHORT_PRESS",
	"long":  "ROTARY_LONG_PRESS",
}

func main() {
	socketPath := "/tmp/rotarynav.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var events []Event

	switch cmd := strings.ToLower(args[0]); cmd {
	case "left", "prev", "right", "next", "press", "short", "long":
		// a repeat count turns several detents in one call: rotary-ctl left 3
		n := 1
		if len(args) > 1 {
			var err error
			if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
				fmt.Fprintf(os.Stderr, "error: invalid count: %s\n", args[1])
				os.Exit(1)
			}
		}
		for i := 0; i < n; i++ {
			events = append(events, RotaryInput{Event: gestures[cmd], Source: "rotary-ctl"})
		}

	case "notify", "notification":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: notify requires a notification name\n")
			os.Exit(1)
		}
		n := ExternalNotification{Notification: args[1]}
		if len(args) > 2 {
			if !json.Valid([]byte(args[2])) {
				fmt.Fprintf(os.Stderr, "error: payload is not valid JSON\n")
				os.Exit(1)
			}
			n.Payload = json.RawMessage(args[2])
		}
		events = append(events, n)

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := sendEvents(socketPath, events); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// sendEvents writes every event on one connection and waits for each reply.
func sendEvents(socketPath string, events []Event) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(conn)
	for _, ev := range events {
		data, err := marshalEvent(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		// Line-delimited JSON
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return fmt.Errorf("send event: %w", err)
		}

		var response IPCResponse
		if err := decoder.Decode(&response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if response.Status == "error" {
			return fmt.Errorf("daemon error: %s", response.Error)
		}
	}
	return nil
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope

	switch e := ev.(type) {
	case RotaryInput:
		env.Type = "rotary"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal RotaryInput: %w", err)
		}
		env.Data = data

	case ExternalNotification:
		env.Type = "notification"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ExternalNotification: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `rotary-ctl - Drive the rotarynav daemon via IPC

Usage:
  rotary-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/rotarynav.sock)

Commands:
  left, prev [N]               Turn the encoder left (N detents)
  right, next [N]              Turn the encoder right (N detents)
  press                        Press the encoder button
  short                        Short press gesture
  long                         Long press gesture
  notify NAME [JSON]           Inject a bus notification with an optional payload
  help, -h, --help             Show this help message

Examples:
  rotary-ctl left 3
  rotary-ctl press
  rotary-ctl notify value '{"value": 42}'
  rotary-ctl -socket /run/rotarynav.sock right
`)
}
