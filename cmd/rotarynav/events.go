package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================================
// Event Types
// ============================================================================
// Events are everything the daemon loop consumes: rotary gestures from the
// evdev bridge or IPC, notifications from the bus, and snapshot requests from
// view clients. Only the loop goroutine touches menu state.
// ============================================================================

// Event is a marker interface for all daemon loop inputs.
type Event interface {
	eventMarker()
}

// RotaryEvent is one abstract input gesture from the encoder.
type RotaryEvent string

const (
	RotaryLeft       RotaryEvent = "ROTARY_LEFT"
	RotaryRight      RotaryEvent = "ROTARY_RIGHT"
	RotaryPress      RotaryEvent = "ROTARY_PRESS"
	RotaryShortPress RotaryEvent = "ROTARY_SHORT_PRESS"
	RotaryLongPress  RotaryEvent = "ROTARY_LONG_PRESS"
)

// ParseRotaryEvent accepts the canonical names, the PREV/NEXT aliases used by
// some bus senders and the short lower-case forms used on the command line.
func ParseRotaryEvent(s string) (RotaryEvent, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ROTARY_LEFT", "ROTARY_PREV", "LEFT", "PREV":
		return RotaryLeft, nil
	case "ROTARY_RIGHT", "ROTARY_NEXT", "RIGHT", "NEXT":
		return RotaryRight, nil
	case "ROTARY_PRESS", "PRESS":
		return RotaryPress, nil
	case "ROTARY_SHORT_PRESS", "SHORT_PRESS", "SHORT":
		return RotaryShortPress, nil
	case "ROTARY_LONG_PRESS", "LONG_PRESS", "LONG":
		return RotaryLongPress, nil
	default:
		return "", fmt.Errorf("unknown rotary event: %q", s)
	}
}

// RotaryInput carries one gesture into the daemon loop.
type RotaryInput struct {
	Event  RotaryEvent `json:"event"`
	Source string      `json:"source,omitempty"` // "evdev", "ipc", "bus"
}

func (RotaryInput) eventMarker() {}

// ExternalNotification is a named notification received from the bus or IPC.
type ExternalNotification struct {
	Notification string          `json:"notification"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func (ExternalNotification) eventMarker() {}

// RequestViewSnapshot asks the loop for a copy of the retained view state.
// The loop replies without blocking; Reply should be buffered.
type RequestViewSnapshot struct {
	Reply chan<- ViewSnapshot
}

func (RequestViewSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "rotary":
		var raw struct {
			Event  string `json:"event"`
			Source string `json:"source"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal RotaryInput: %w", err)
		}
		ev, err := ParseRotaryEvent(raw.Event)
		if err != nil {
			return nil, err
		}
		src := raw.Source
		if src == "" {
			src = "ipc"
		}
		return RotaryInput{Event: ev, Source: src}, nil

	case "notification":
		var n ExternalNotification
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return nil, fmt.Errorf("unmarshal ExternalNotification: %w", err)
		}
		if n.Notification == "" {
			return nil, fmt.Errorf("notification name is empty")
		}
		return n, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
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
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
