package main

import (
	"log/slog"
	"time"
)

// NotificationConfig holds the notification menu timings.
type NotificationConfig struct {
	AutoHide    time.Duration
	Info        time.Duration // how long a gesture name stays flashed
	ModuleSpeed time.Duration // show/hide speed of the target module
}

// NotificationMenu turns gestures into configured bus notifications.
type NotificationMenu struct {
	menuBase

	notifier Notifier
	info     time.Duration
	infoTask Task

	logger *slog.Logger
}

func NewNotificationMenu(cfg NotificationConfig, deps menuDeps, notifier Notifier, logger *slog.Logger) *NotificationMenu {
	return &NotificationMenu{
		menuBase: newMenuBase(MenuNotification, deps, cfg.AutoHide),
		notifier: notifier,
		info:     cfg.Info,
		logger:   logger,
	}
}

func (m *NotificationMenu) Show(cfg ShowConfig) { m.show(cfg) }

func (m *NotificationMenu) Hide() { m.hide() }

// RotaryEventReceived maps turns the opposite way round from the carousel:
// left is "prev" here while it advances the navigation menu.
func (m *NotificationMenu) RotaryEventReceived(ev RotaryEvent) {
	m.resetAutoHide()

	switch ev {
	case RotaryLeft:
		m.handleGesture(GesturePrev)
	case RotaryRight:
		m.handleGesture(GestureNext)
	case RotaryPress:
		m.handleGesture(GesturePress)
	case RotaryLongPress:
		m.handleGesture(GestureLongPress)
	case RotaryShortPress:
		m.handleGesture(GestureShortPress)
	}
}

func (m *NotificationMenu) handleGesture(g Gesture) {
	if !m.hasConfig {
		return
	}
	ev, ok := m.config.Events[g]
	if !ok {
		return
	}

	if ev.Notification != "" {
		m.logger.Debug("notification menu sending", "gesture", g, "notification", ev.Notification)
		m.notifier.SendNotification(ev.Notification, identifierPayload(m.config.TargetModuleID))
		m.flashInfo(string(g))
	}
	if ev.Close {
		m.Hide()
	}
}

// flashInfo shows text for the info duration. A new flash cancels the pending clear.
func (m *NotificationMenu) flashInfo(text string) {
	stopTask(m.infoTask)
	m.deps.view.SetInfo(MenuNotification, text)
	m.infoTask = m.deps.sched.AfterFunc(m.info, func() {
		m.infoTask = nil
		m.deps.view.SetInfo(MenuNotification, "")
	})
}
