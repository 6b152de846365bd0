package main

import "time"

// gestureConfig controls how raw evdev events become rotary gestures.
type gestureConfig struct {
	ButtonCode    uint16
	RelCode       uint16
	Invert        bool
	LongPress     time.Duration
	DebugKeyboard bool // arrow keys turn, Enter presses
}

// gestureTranslator turns evdev events into RotaryEvents.
//
// Presses are classified on release using the kernel event timestamps, so the
// result does not depend on how fast the reader goroutine is scheduled.
// Not safe for concurrent use; one translator runs on the input goroutine.
type gestureTranslator struct {
	cfg       gestureConfig
	pressedAt map[uint16]time.Time
}

func newGestureTranslator(cfg gestureConfig) *gestureTranslator {
	if cfg.LongPress <= 0 {
		cfg.LongPress = defaultLongPressMS * time.Millisecond
	}
	return &gestureTranslator{cfg: cfg, pressedAt: make(map[uint16]time.Time)}
}

func (ev inputEvent) time() time.Time {
	return time.Unix(ev.Sec, ev.Usec*int64(time.Microsecond))
}

// translate returns the gestures for one event, usually none or one.
// A release emits ROTARY_PRESS followed by the short or long classification.
func (t *gestureTranslator) translate(ev inputEvent) []RotaryEvent {
	switch ev.Type {
	case EV_REL:
		if ev.Code != t.cfg.RelCode || ev.Value == 0 {
			return nil
		}
		return t.turn(ev.Value)

	case EV_KEY:
		if t.isButton(ev.Code) {
			return t.button(ev)
		}
		if !t.cfg.DebugKeyboard || ev.Value != evValueRelease {
			return nil
		}
		switch ev.Code {
		case KEY_LEFT:
			return []RotaryEvent{RotaryLeft}
		case KEY_RIGHT:
			return []RotaryEvent{RotaryRight}
		}
	}
	return nil
}

// turn emits one event per detent; negative values turn left.
func (t *gestureTranslator) turn(value int32) []RotaryEvent {
	dir := RotaryRight
	if value < 0 {
		dir = RotaryLeft
		value = -value
	}
	if t.cfg.Invert {
		if dir == RotaryLeft {
			dir = RotaryRight
		} else {
			dir = RotaryLeft
		}
	}
	out := make([]RotaryEvent, value)
	for i := range out {
		out[i] = dir
	}
	return out
}

func (t *gestureTranslator) isButton(code uint16) bool {
	if code == t.cfg.ButtonCode {
		return true
	}
	return t.cfg.DebugKeyboard && (code == KEY_ENTER || code == KEY_KPENTER)
}

func (t *gestureTranslator) button(ev inputEvent) []RotaryEvent {
	switch ev.Value {
	case evValuePress:
		if _, down := t.pressedAt[ev.Code]; !down {
			t.pressedAt[ev.Code] = ev.time()
		}
		return nil

	case evValueRelease:
		down, ok := t.pressedAt[ev.Code]
		delete(t.pressedAt, ev.Code)
		// a release without a press (device grabbed mid-press) counts as short
		if ok && ev.time().Sub(down) > t.cfg.LongPress {
			return []RotaryEvent{RotaryPress, RotaryLongPress}
		}
		return []RotaryEvent{RotaryPress, RotaryShortPress}
	}

	// evValueRepeat: the kernel autorepeat says nothing new about the hold
	return nil
}
