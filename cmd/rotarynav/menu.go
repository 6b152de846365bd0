package main

import (
	"encoding/json"
	"time"
)

// MenuKind identifies one of the three overlay menus.
type MenuKind string

const (
	MenuNone         MenuKind = ""
	MenuNavigation   MenuKind = "navigation"
	MenuNotification MenuKind = "notification"
	MenuRange        MenuKind = "range"
)

// Known reports whether k names a menu the host can show.
func (k MenuKind) Known() bool {
	switch k {
	case MenuNavigation, MenuNotification, MenuRange:
		return true
	default:
		return false
	}
}

// Gesture is the name a notification menu uses to look up its configured events.
type Gesture string

const (
	GestureNext       Gesture = "next"
	GesturePrev       Gesture = "prev"
	GesturePress      Gesture = "press"
	GestureShortPress Gesture = "shortPress"
	GestureLongPress  Gesture = "longPress"
)

// NotificationEvent is what a gesture does inside a notification menu.
type NotificationEvent struct {
	Notification string `yaml:"notification,omitempty"`
	Close        bool   `yaml:"close,omitempty"`
}

// NotificationMenuConfig maps gestures to outgoing notifications.
type NotificationMenuConfig struct {
	Events map[Gesture]NotificationEvent `yaml:"events,omitempty"`
}

// RangeOptions bounds the range menu value.
type RangeOptions struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step,omitempty"` // 0 means 1
}

// RangeMenuConfig configures the range menu and its bus round trips.
type RangeMenuConfig struct {
	Options *RangeOptions `yaml:"options,omitempty"`

	// RequestNotification is sent on show to ask for the current value.
	RequestNotification string `yaml:"request_notification,omitempty"`

	// ValueNotification seeds the value; ValuePath is a gjson path into its payload.
	ValueNotification string `yaml:"value_notification,omitempty"`
	ValuePath         string `yaml:"value_path,omitempty"`

	// SetNotification carries the committed value at SetPath (an sjson path).
	SetNotification string `yaml:"set_notification,omitempty"`
	SetPath         string `yaml:"set_path,omitempty"`
}

// ShowConfig is the menu specific configuration handed to Menu.Show.
// It is decoded straight from an action's "menu" block.
type ShowConfig struct {
	Type MenuKind `yaml:"type"`

	// TargetModuleID names the bus module that is shown while the menu is
	// open and that outgoing payloads are tagged with.
	TargetModuleID string `yaml:"target_module_id,omitempty"`

	NotificationMenuConfig `yaml:",inline"`
	RangeMenuConfig        `yaml:",inline"`
}

// Action is one entry of the navigation carousel.
type Action struct {
	Icon  string      `yaml:"icon"`
	Title string      `yaml:"title"`
	Menu  *ShowConfig `yaml:"menu,omitempty"`
}

// Menu is the contract the host drives every menu through.
type Menu interface {
	Show(cfg ShowConfig)
	Hide()
	RotaryEventReceived(ev RotaryEvent)
}

// externalNotificationReceiver is implemented by menus that consume bus notifications.
type externalNotificationReceiver interface {
	ExternalNotificationReceived(notification string, payload json.RawMessage)
}

// Notifier sends named notifications to the bus.
type Notifier interface {
	SendNotification(notification string, payload json.RawMessage)
}

// ModuleController shows and hides other bus modules.
type ModuleController interface {
	ShowModule(id string, speed time.Duration)
	HideModule(id string, speed time.Duration)
}

// setActiveMenuFunc lets a menu ask the host to switch (or close, with MenuNone).
type setActiveMenuFunc func(kind MenuKind, cfg ShowConfig)

type nopNotifier struct{}

func (nopNotifier) SendNotification(string, json.RawMessage) {}

type nopModules struct{}

func (nopModules) ShowModule(string, time.Duration) {}
func (nopModules) HideModule(string, time.Duration) {}

// ============================================================================
// menuBase: visibility, auto-hide and show/hide observers
// ============================================================================

// menuDeps are the collaborators every menu needs.
type menuDeps struct {
	sched         Scheduler
	view          View
	setActiveMenu setActiveMenuFunc
}

type menuBase struct {
	kind MenuKind
	deps menuDeps

	visible   bool
	config    ShowConfig
	hasConfig bool

	autoHide     time.Duration
	autoHideTask Task

	onShow []func(ShowConfig)
	onHide []func(ShowConfig)
}

func newMenuBase(kind MenuKind, deps menuDeps, autoHide time.Duration) menuBase {
	return menuBase{kind: kind, deps: deps, autoHide: autoHide}
}

// OnShow registers fn to run after every Show.
func (m *menuBase) OnShow(fn func(ShowConfig)) { m.onShow = append(m.onShow, fn) }

// OnHide registers fn to run after a visible menu is hidden.
func (m *menuBase) OnHide(fn func(ShowConfig)) { m.onHide = append(m.onHide, fn) }

// Visible reports whether the menu is currently shown.
func (m *menuBase) Visible() bool { return m.visible }

func (m *menuBase) show(cfg ShowConfig) {
	m.config = cfg
	m.hasConfig = true
	m.visible = true
	m.deps.view.SetMenuVisible(m.kind, true)
	m.resetAutoHide()
	for _, fn := range m.onShow {
		fn(cfg)
	}
}

// hide reports false when the menu was already hidden; nothing is emitted then.
func (m *menuBase) hide() bool {
	if !m.visible {
		return false
	}
	m.visible = false
	m.clearAutoHide()
	m.deps.view.SetMenuVisible(m.kind, false)
	for _, fn := range m.onHide {
		fn(m.config)
	}
	return true
}

// resetAutoHide restarts the inactivity timer. Called on show and on every rotary event.
func (m *menuBase) resetAutoHide() {
	m.clearAutoHide()
	if m.autoHide <= 0 {
		return
	}
	m.autoHideTask = m.deps.sched.AfterFunc(m.autoHide, func() {
		m.autoHideTask = nil
		m.deps.setActiveMenu(MenuNone, ShowConfig{})
	})
}

func (m *menuBase) clearAutoHide() {
	stopTask(m.autoHideTask)
	m.autoHideTask = nil
}
