package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// termView draws the overlay on a terminal, redrawing the whole frame per change.
// It is meant for bench testing an encoder without the dashboard attached.
type termView struct {
	model viewModel
	out   io.Writer
	width int
	tty   bool

	frame    lipgloss.Style
	slot     lipgloss.Style
	selected lipgloss.Style
	title    lipgloss.Style
	info     lipgloss.Style
	dim      lipgloss.Style
}

const (
	termDefaultWidth = 80
	gaugeCells       = 24
)

func newTermView(f *os.File) *termView {
	v := &termView{
		model: newViewModel(),
		out:   f,
		width: termDefaultWidth,
	}
	if fd := int(f.Fd()); term.IsTerminal(fd) {
		v.tty = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			v.width = w
		}
	}

	v.frame = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)
	v.slot = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	v.selected = lipgloss.NewStyle().Padding(0, 1).Bold(true).
		Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))
	v.title = lipgloss.NewStyle().Bold(true)
	v.info = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
	v.dim = lipgloss.NewStyle().Faint(true)
	return v
}

func (v *termView) SetActive(active bool) {
	v.model.setActive(active)
	v.redraw()
}

func (v *termView) SetMenuVisible(kind MenuKind, visible bool) {
	v.model.setMenuVisible(kind, visible)
	v.redraw()
}

func (v *termView) SetTitle(kind MenuKind, title string) {
	v.model.setTitle(kind, title)
	v.redraw()
}

func (v *termView) SetOptions(slots []OptionSlot) {
	v.model.setOptions(slots)
	v.redraw()
}

func (v *termView) RotateOptions(degree float64) {
	v.model.rotate(degree)
	v.redraw()
}

func (v *termView) SetInfo(kind MenuKind, text string) {
	v.model.setInfo(kind, text)
	v.redraw()
}

func (v *termView) SetGauge(rotation float64, text string) {
	v.model.setGauge(rotation, text)
	v.redraw()
}

func (v *termView) redraw() {
	var b strings.Builder
	if v.tty {
		b.WriteString("\x1b[H\x1b[2J")
	}
	b.WriteString(v.render())
	b.WriteString("\n")
	_, _ = io.WriteString(v.out, b.String())
}

// render builds the frame for the current state.
func (v *termView) render() string {
	s := v.model.snap
	if !s.Active {
		return v.dim.Render("(turn the encoder to open the menu)")
	}

	var body string
	switch {
	case s.Menus[MenuRange].Visible:
		body = v.renderRange(s)
	case s.Menus[MenuNotification].Visible:
		body = v.renderNotification(s)
	default:
		body = v.renderCarousel(s)
	}
	return lipgloss.PlaceHorizontal(v.width, lipgloss.Center, v.frame.Render(body))
}

func (v *termView) renderCarousel(s ViewSnapshot) string {
	cells := make([]string, 0, len(s.Options))
	for i, o := range s.Options {
		label := o.Icon
		if label == "" {
			label = o.Title
		}
		if i == carouselCenter {
			cells = append(cells, v.selected.Render(label))
		} else {
			cells = append(cells, v.slot.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, cells...)

	lines := []string{row, v.title.Render(s.Menus[MenuNavigation].Title)}
	if s.Rotation != 0 {
		lines = append(lines, v.dim.Render(fmt.Sprintf("rotating %+.0f°", s.Rotation)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (v *termView) renderNotification(s ViewSnapshot) string {
	st := s.Menus[MenuNotification]
	lines := []string{v.title.Render("notification")}
	if st.Info != "" {
		lines = append(lines, v.info.Render(st.Info))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (v *termView) renderRange(s ViewSnapshot) string {
	return lipgloss.JoinVertical(lipgloss.Center,
		v.gaugeBar(s.Gauge.Rotation),
		v.title.Render(s.Gauge.Text),
	)
}

// gaugeBar maps the -180..0 needle rotation onto a horizontal bar.
func (v *termView) gaugeBar(rotation float64) string {
	rate := (rotation + gaugeSweepDegrees) / gaugeSweepDegrees
	filled := int(math.Round(math.Max(0, math.Min(1, rate)) * gaugeCells))
	return v.selected.Render(strings.Repeat("█", filled)) + v.dim.Render(strings.Repeat("░", gaugeCells-filled))
}
