package main

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// RangeConfig holds the range menu timings.
type RangeConfig struct {
	AutoHide   time.Duration
	ResetDelay time.Duration // value is forgotten this long after hiding
}

// Defaults applied when an action's range block leaves a name or path empty.
const (
	defaultRangeValueNotification = "value"
	defaultRangeValuePath         = "value"
	defaultRangeSetNotification   = "set"
	defaultRangeSetPath           = "value"
)

// RangeMenu adjusts a bounded numeric value and commits it with a press.
type RangeMenu struct {
	menuBase

	notifier Notifier

	// seeded is false until the first change or external value; the gauge
	// shows no text while unseeded.
	value  float64
	seeded bool

	resetDelay time.Duration
	resetTask  Task

	logger *slog.Logger
}

func NewRangeMenu(cfg RangeConfig, deps menuDeps, notifier Notifier, logger *slog.Logger) *RangeMenu {
	return &RangeMenu{
		menuBase:   newMenuBase(MenuRange, deps, cfg.AutoHide),
		notifier:   notifier,
		resetDelay: cfg.ResetDelay,
		logger:     logger,
	}
}

// Value returns the current value and whether it has been set.
func (m *RangeMenu) Value() (float64, bool) { return m.value, m.seeded }

func (m *RangeMenu) Show(cfg ShowConfig) {
	stopTask(m.resetTask)
	m.resetTask = nil

	m.show(cfg)
	if m.seeded {
		// a value kept across a quick reopen must fit the new bounds
		m.setValue(m.value)
	} else {
		m.render()
	}

	if name := m.config.RequestNotification; name != "" {
		m.notifier.SendNotification(name, nil)
	}
}

// Hide schedules the value reset; showing again before it fires keeps the value.
func (m *RangeMenu) Hide() {
	if !m.hide() {
		return
	}
	stopTask(m.resetTask)
	m.resetTask = m.deps.sched.AfterFunc(m.resetDelay, func() {
		m.resetTask = nil
		m.value = 0
		m.seeded = false
		m.render()
	})
}

func (m *RangeMenu) RotaryEventReceived(ev RotaryEvent) {
	m.resetAutoHide()

	switch ev {
	case RotaryLeft:
		m.changeValue(-m.step())
	case RotaryRight:
		m.changeValue(m.step())
	case RotaryPress:
		m.commit()
	}
}

// ExternalNotificationReceived seeds the value from the configured value notification.
func (m *RangeMenu) ExternalNotificationReceived(notification string, payload json.RawMessage) {
	if !m.hasConfig || m.options() == nil {
		return
	}
	if notification != orDefault(m.config.ValueNotification, defaultRangeValueNotification) {
		return
	}
	path := orDefault(m.config.ValuePath, defaultRangeValuePath)
	v, ok := numberAt(payload, path)
	if !ok {
		m.logger.Debug("range value notification without number", "notification", notification, "path", path)
		return
	}
	m.setValue(v)
}

func (m *RangeMenu) options() *RangeOptions {
	if !m.hasConfig {
		return nil
	}
	return m.config.Options
}

func (m *RangeMenu) step() float64 {
	if o := m.options(); o != nil && o.Step != 0 {
		return o.Step
	}
	return 1
}

func (m *RangeMenu) current() float64 {
	if !m.seeded {
		return 0
	}
	return m.value
}

// changeValue adds delta to the current value. Without options it does nothing.
func (m *RangeMenu) changeValue(delta float64) {
	if m.options() == nil {
		return
	}
	m.setValue(m.current() + delta)
}

// setValue clamps v into [min, max] and seeds the menu with it.
func (m *RangeMenu) setValue(v float64) {
	o := m.options()
	if o == nil {
		return
	}
	m.value = clamp(v, o.Min, o.Max)
	m.seeded = true
	m.render()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// commit sends the set notification and asks the host to close the menu.
// An unseeded value commits as 0, clamped into the bounds.
func (m *RangeMenu) commit() {
	if o := m.options(); o != nil {
		name := orDefault(m.config.SetNotification, defaultRangeSetNotification)
		value := clamp(m.current(), o.Min, o.Max)
		payload, err := valuePayload(orDefault(m.config.SetPath, defaultRangeSetPath), value, m.config.TargetModuleID)
		if err != nil {
			m.logger.Warn("range set payload", "error", err)
		} else {
			m.notifier.SendNotification(name, payload)
		}
	}
	m.deps.setActiveMenu(MenuNone, ShowConfig{})
}

func (m *RangeMenu) render() {
	o := m.options()
	if o == nil {
		return
	}
	rate := 0.0
	if m.seeded && o.Max != o.Min {
		rate = (m.value - o.Min) / (o.Max - o.Min)
	}
	text := ""
	if m.seeded {
		text = strconv.FormatFloat(m.value, 'f', -1, 64)
	}
	m.deps.view.SetGauge(rate*gaugeSweepDegrees-gaugeSweepDegrees, text)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
