package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// decodeInputEvent parses one little-endian input_event record.
func decodeInputEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ev); err != nil {
		return inputEvent{}, fmt.Errorf("decode input event: %w", err)
	}
	return ev, nil
}

// readInputEvents reads input events from a single reader and sends them to a channel.
// It is the fallback on platforms without epoll and what the tests drive.
func readInputEvents(r io.Reader, events chan<- inputEvent, readErr chan<- error) {
	buf := make([]byte, binary.Size(inputEvent{}))
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			readErr <- err
			return
		}
		ev, err := decodeInputEvent(buf)
		if err != nil {
			// Skip malformed events
			continue
		}
		events <- ev
	}
}

// inputDevices is a set of opened (and possibly grabbed) evdev devices.
type inputDevices struct {
	files   []*os.File
	grabbed []bool
	logger  *slog.Logger
}

// openInputDevices opens every path and optionally takes an exclusive grab so
// the encoder's key events do not also reach the console.
func openInputDevices(paths []string, grab bool, logger *slog.Logger) (*inputDevices, error) {
	d := &inputDevices{logger: logger}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}
		d.files = append(d.files, f)

		grabbed := false
		if grab {
			if err := grabDevice(f, true); err != nil {
				d.Close()
				return nil, fmt.Errorf("grab input device %s: %w", p, err)
			}
			grabbed = true
		}
		d.grabbed = append(d.grabbed, grabbed)
		logger.Info("opened input device", "device", p, "grabbed", grabbed)
	}
	return d, nil
}

// Close releases grabs and closes the devices. Safe to call more than once.
func (d *inputDevices) Close() {
	for i, f := range d.files {
		if i < len(d.grabbed) && d.grabbed[i] {
			if err := grabDevice(f, false); err != nil {
				d.logger.Warn("release input grab failed", "device", f.Name(), "error", err)
			}
		}
		_ = f.Close()
	}
	d.files = nil
	d.grabbed = nil
}

// runInputBridge reads the devices, translates gestures and feeds the loop.
// It returns when ctx is canceled or a device fails.
func runInputBridge(ctx context.Context, devs *inputDevices, tr *gestureTranslator, events chan<- Event, logger *slog.Logger) error {
	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readDevices(devs.files, raw, readErr)

	for {
		select {
		case <-ctx.Done():
			devs.Close()
			return nil

		case err := <-readErr:
			devs.Close()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-raw:
			for _, g := range tr.translate(ev) {
				logger.Debug("rotary gesture", "event", g, "code", ev.Code, "value", ev.Value)
				select {
				case events <- RotaryInput{Event: g, Source: "evdev"}:
				case <-ctx.Done():
					devs.Close()
					return nil
				}
			}
		}
	}
}
