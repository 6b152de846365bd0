package main

import (
	"log/slog"
	"time"
)

// NavigationConfig holds the navigation menu timings.
type NavigationConfig struct {
	AutoHide   time.Duration
	Transition time.Duration
}

// NavigationMenu is the circular carousel of top level actions.
//
// Turning starts a rotation transition; further turns are dropped until the
// transition completes and the carousel is re-laid out around the new action.
type NavigationMenu struct {
	menuBase

	actions     []Action
	activeIndex int

	block          bool
	transition     time.Duration
	transitionTask Task

	logger *slog.Logger
}

func NewNavigationMenu(actions []Action, cfg NavigationConfig, deps menuDeps, logger *slog.Logger) *NavigationMenu {
	m := &NavigationMenu{
		menuBase:   newMenuBase(MenuNavigation, deps, cfg.AutoHide),
		actions:    actions,
		transition: cfg.Transition,
		logger:     logger,
	}
	if len(actions) > 0 {
		deps.view.SetTitle(MenuNavigation, actions[0].Title)
		deps.view.SetOptions(layoutSlots(createEndlessOptions(0, actions)))
	}
	return m
}

// ActiveIndex is the index of the action in the middle slot.
func (m *NavigationMenu) ActiveIndex() int { return m.activeIndex }

// Blocked reports whether a rotation transition is in progress.
func (m *NavigationMenu) Blocked() bool { return m.block }

func (m *NavigationMenu) Show(cfg ShowConfig) { m.show(cfg) }

// Hide leaves a running transition alone so the carousel still settles.
func (m *NavigationMenu) Hide() { m.hide() }

func (m *NavigationMenu) RotaryEventReceived(ev RotaryEvent) {
	m.resetAutoHide()

	switch ev {
	case RotaryLeft:
		m.move(1)
	case RotaryRight:
		m.move(-1)
	case RotaryPress:
		m.openMenu()
	}
}

// move steps the carousel; dir 1 is next, -1 is previous.
func (m *NavigationMenu) move(dir int) {
	n := len(m.actions)
	if n == 0 {
		return
	}
	if m.block {
		m.logger.Debug("navigation turn dropped (transition running)")
		return
	}
	m.block = true

	m.activeIndex = ((m.activeIndex+dir)%n + n) % n
	slots := layoutSlots(createEndlessOptions(m.activeIndex, m.actions))

	m.deps.view.SetTitle(MenuNavigation, m.actions[m.activeIndex].Title)
	m.deps.view.RotateOptions(rotationDegree * float64(-dir))

	m.transitionTask = m.deps.sched.AfterFunc(m.transition, func() {
		m.transitionTask = nil
		m.deps.view.SetOptions(slots)
		m.block = false
	})
}

// openMenu opens the active action's submenu, if it has one.
func (m *NavigationMenu) openMenu() {
	if len(m.actions) == 0 {
		return
	}
	a := m.actions[m.activeIndex]
	if a.Menu == nil {
		m.logger.Debug("navigation press on action without menu", "title", a.Title)
		return
	}
	m.clearAutoHide()
	m.deps.setActiveMenu(a.Menu.Type, *a.Menu)
}
