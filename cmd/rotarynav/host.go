package main

import (
	"encoding/json"
	"log/slog"
	"time"
)

// HostConfig is the menu part of Config, converted to durations.
type HostConfig struct {
	Actions      []Action
	Debounce     time.Duration
	Navigation   NavigationConfig
	Notification NotificationConfig
	Range        RangeConfig
}

// HostDeps are the host's collaborators. Nil fields get no-op implementations.
type HostDeps struct {
	Notifier  Notifier
	Modules   ModuleController
	View      View
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Host owns the menu table and is the only writer of the active menu.
//
// States are "no menu active" and "menu k active". Every SetMenu opens a
// debounce window in which rotary events are dropped, which swallows the
// release burst that follows the press that switched menus.
type Host struct {
	menus        map[MenuKind]Menu
	navigation   *NavigationMenu
	notification *NotificationMenu
	rng          *RangeMenu

	active MenuKind

	listenBlocked bool
	debounce      time.Duration
	debounceTask  Task

	sched  Scheduler
	view   View
	logger *slog.Logger
}

func NewHost(cfg HostConfig, deps HostDeps) *Host {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Modules == nil {
		deps.Modules = nopModules{}
	}
	if deps.View == nil {
		deps.View = nopView{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	h := &Host{
		debounce: cfg.Debounce,
		sched:    deps.Scheduler,
		view:     deps.View,
		logger:   deps.Logger,
	}

	md := menuDeps{sched: deps.Scheduler, view: deps.View, setActiveMenu: h.SetMenu}
	h.navigation = NewNavigationMenu(cfg.Actions, cfg.Navigation, md, deps.Logger.With("menu", MenuNavigation))
	h.notification = NewNotificationMenu(cfg.Notification, md, deps.Notifier, deps.Logger.With("menu", MenuNotification))
	h.rng = NewRangeMenu(cfg.Range, md, deps.Notifier, deps.Logger.With("menu", MenuRange))

	h.menus = map[MenuKind]Menu{
		MenuNavigation:   h.navigation,
		MenuNotification: h.notification,
		MenuRange:        h.rng,
	}

	// A menu hiding itself (notification close) must release the active slot.
	h.navigation.OnHide(func(ShowConfig) { h.menuHidden(MenuNavigation) })
	h.notification.OnHide(func(ShowConfig) { h.menuHidden(MenuNotification) })
	h.rng.OnHide(func(ShowConfig) { h.menuHidden(MenuRange) })

	speed := cfg.Notification.ModuleSpeed
	modules := deps.Modules
	h.notification.OnShow(func(c ShowConfig) {
		if c.TargetModuleID != "" {
			modules.ShowModule(c.TargetModuleID, speed)
		}
	})
	h.notification.OnHide(func(c ShowConfig) {
		if c.TargetModuleID != "" {
			modules.HideModule(c.TargetModuleID, speed)
		}
	})

	h.view.SetActive(false)
	return h
}

// Active returns the active menu kind, MenuNone when nothing is shown.
func (h *Host) Active() MenuKind { return h.active }

// ListenBlocked reports whether the debounce window is open.
func (h *Host) ListenBlocked() bool { return h.listenBlocked }

func (h *Host) Navigation() *NavigationMenu     { return h.navigation }
func (h *Host) Notification() *NotificationMenu { return h.notification }
func (h *Host) Range() *RangeMenu               { return h.rng }

// SetMenu hides the active menu and shows kind with cfg. MenuNone and
// unknown kinds leave nothing active.
func (h *Host) SetMenu(kind MenuKind, cfg ShowConfig) {
	if prev := h.active; prev != MenuNone {
		// cleared first so the hide observer does not treat this as a self-close
		h.active = MenuNone
		h.menus[prev].Hide()
	}

	if m, ok := h.menus[kind]; ok {
		if cfg.Type == MenuNone {
			cfg.Type = kind
		}
		m.Show(cfg)
		h.active = kind
	} else if kind != MenuNone {
		h.logger.Warn("unknown menu kind, closing menus", "kind", kind)
	}

	h.logger.Debug("active menu", "kind", h.active)
	h.startDebounce()
	h.view.SetActive(h.active != MenuNone)
}

// Dispatch routes one rotary event. With nothing active the event opens the
// navigation menu and is consumed.
func (h *Host) Dispatch(ev RotaryEvent) {
	if h.listenBlocked {
		h.logger.Debug("rotary event dropped (debounce)", "event", ev)
		return
	}
	if h.active == MenuNone {
		h.SetMenu(MenuNavigation, ShowConfig{Type: MenuNavigation})
		return
	}
	h.menus[h.active].RotaryEventReceived(ev)
}

// ForwardExternalNotification hands a bus notification to the active menu.
func (h *Host) ForwardExternalNotification(notification string, payload json.RawMessage) {
	if h.active == MenuNone {
		return
	}
	if r, ok := h.menus[h.active].(externalNotificationReceiver); ok {
		r.ExternalNotificationReceived(notification, payload)
	}
}

func (h *Host) menuHidden(kind MenuKind) {
	if h.active != kind {
		return
	}
	h.active = MenuNone
	h.logger.Debug("active menu closed itself", "kind", kind)
	h.view.SetActive(false)
}

func (h *Host) startDebounce() {
	stopTask(h.debounceTask)
	h.debounceTask = nil
	if h.debounce <= 0 {
		h.listenBlocked = false
		return
	}
	h.listenBlocked = true
	h.debounceTask = h.sched.AfterFunc(h.debounce, func() {
		h.debounceTask = nil
		h.listenBlocked = false
	})
}
