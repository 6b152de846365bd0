package main

import (
	"maps"
	"slices"
)

// OptionSlot is a carousel option placed at its angular position.
type OptionSlot struct {
	RotaryOption
	Degree float64 `json:"degree"`
}

// View renders menu state. Menus and the host call it from the loop goroutine only.
type View interface {
	// SetActive toggles the whole overlay.
	SetActive(active bool)
	SetMenuVisible(kind MenuKind, visible bool)
	SetTitle(kind MenuKind, title string)

	// SetOptions replaces the carousel and resets its rotation to zero.
	SetOptions(slots []OptionSlot)

	// RotateOptions starts the carousel transition by degree.
	RotateOptions(degree float64)

	// SetInfo flashes text on a menu; an empty text clears it.
	SetInfo(kind MenuKind, text string)

	// SetGauge moves the range gauge; rotation runs from -180 (min) to 0 (max).
	SetGauge(rotation float64, text string)
}

// ViewSnapshot is the retained view state sent to clients that connect late.
type ViewSnapshot struct {
	Active   bool                       `json:"active"`
	Menus    map[MenuKind]MenuViewState `json:"menus"`
	Options  []OptionSlot               `json:"options"`
	Rotation float64                    `json:"rotation"`
	Gauge    GaugeState                 `json:"gauge"`
}

// MenuViewState is the per menu part of a ViewSnapshot.
type MenuViewState struct {
	Visible bool   `json:"visible"`
	Title   string `json:"title,omitempty"`
	Info    string `json:"info,omitempty"`

	// InfoSeq increases on every flash so renderers restart the animation
	// even when the same text is flashed twice.
	InfoSeq uint64 `json:"info_seq"`
}

// GaugeState is the range gauge position.
type GaugeState struct {
	Rotation float64 `json:"rotation"`
	Text     string  `json:"text"`
}

// viewModel keeps the retained state behind the websocket and terminal views.
type viewModel struct {
	snap    ViewSnapshot
	infoSeq uint64
}

func newViewModel() viewModel {
	return viewModel{snap: ViewSnapshot{
		Menus: make(map[MenuKind]MenuViewState),
		Gauge: GaugeState{Rotation: -gaugeSweepDegrees},
	}}
}

func (m *viewModel) setActive(active bool) { m.snap.Active = active }

func (m *viewModel) setMenuVisible(kind MenuKind, visible bool) {
	st := m.snap.Menus[kind]
	st.Visible = visible
	m.snap.Menus[kind] = st
}

func (m *viewModel) setTitle(kind MenuKind, title string) {
	st := m.snap.Menus[kind]
	st.Title = title
	m.snap.Menus[kind] = st
}

func (m *viewModel) setOptions(slots []OptionSlot) {
	m.snap.Options = slices.Clone(slots)
	m.snap.Rotation = 0
}

func (m *viewModel) rotate(degree float64) { m.snap.Rotation = degree }

// setInfo returns the flash sequence number assigned to text.
func (m *viewModel) setInfo(kind MenuKind, text string) uint64 {
	st := m.snap.Menus[kind]
	st.Info = text
	if text != "" {
		m.infoSeq++
		st.InfoSeq = m.infoSeq
	}
	m.snap.Menus[kind] = st
	return st.InfoSeq
}

func (m *viewModel) setGauge(rotation float64, text string) {
	m.snap.Gauge = GaugeState{Rotation: rotation, Text: text}
}

// snapshot returns a deep copy that is safe to hand to another goroutine.
func (m *viewModel) snapshot() ViewSnapshot {
	s := m.snap
	s.Menus = maps.Clone(m.snap.Menus)
	s.Options = slices.Clone(m.snap.Options)
	return s
}

// ============================================================================
// Fan-out and no-op views
// ============================================================================

// multiView forwards every call to all its views in order.
type multiView []View

func (mv multiView) SetActive(active bool) {
	for _, v := range mv {
		v.SetActive(active)
	}
}

func (mv multiView) SetMenuVisible(kind MenuKind, visible bool) {
	for _, v := range mv {
		v.SetMenuVisible(kind, visible)
	}
}

func (mv multiView) SetTitle(kind MenuKind, title string) {
	for _, v := range mv {
		v.SetTitle(kind, title)
	}
}

func (mv multiView) SetOptions(slots []OptionSlot) {
	for _, v := range mv {
		v.SetOptions(slots)
	}
}

func (mv multiView) RotateOptions(degree float64) {
	for _, v := range mv {
		v.RotateOptions(degree)
	}
}

func (mv multiView) SetInfo(kind MenuKind, text string) {
	for _, v := range mv {
		v.SetInfo(kind, text)
	}
}

func (mv multiView) SetGauge(rotation float64, text string) {
	for _, v := range mv {
		v.SetGauge(rotation, text)
	}
}

type nopView struct{}

func (nopView) SetActive(bool)                {}
func (nopView) SetMenuVisible(MenuKind, bool) {}
func (nopView) SetTitle(MenuKind, string)     {}
func (nopView) SetOptions([]OptionSlot)       {}
func (nopView) RotateOptions(float64)         {}
func (nopView) SetInfo(MenuKind, string)      {}
func (nopView) SetGauge(float64, string)      {}
