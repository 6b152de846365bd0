package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScheduler is a manual clock. Advance runs due callbacks in time order,
// including ones scheduled by callbacks that ran during the same Advance.
type fakeScheduler struct {
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTask) Stop() { t.stopped = true }

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Task {
	s.seq++
	t := &fakeTask{at: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *fakeScheduler) next(until time.Duration) *fakeTask {
	var best *fakeTask
	for _, t := range s.tasks {
		if t.stopped || t.fired || t.at > until {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *fakeScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		t := s.next(target)
		if t == nil {
			break
		}
		s.now = t.at
		t.fired = true
		t.fn()
	}
	s.now = target
}

// Pending counts tasks that are neither stopped nor fired.
func (s *fakeScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recordingView records every view call.
type recordingView struct {
	active    []bool
	visible   map[MenuKind][]bool
	titles    map[MenuKind][]string
	options   [][]OptionSlot
	rotations []float64
	infos     map[MenuKind][]string
	gauges    []GaugeState
}

func newRecordingView() *recordingView {
	return &recordingView{
		visible: make(map[MenuKind][]bool),
		titles:  make(map[MenuKind][]string),
		infos:   make(map[MenuKind][]string),
	}
}

func (v *recordingView) SetActive(active bool) { v.active = append(v.active, active) }
func (v *recordingView) SetMenuVisible(kind MenuKind, visible bool) {
	v.visible[kind] = append(v.visible[kind], visible)
}
func (v *recordingView) SetTitle(kind MenuKind, title string) {
	v.titles[kind] = append(v.titles[kind], title)
}
func (v *recordingView) SetOptions(slots []OptionSlot) { v.options = append(v.options, slots) }
func (v *recordingView) RotateOptions(degree float64) { v.rotations = append(v.rotations, degree) }
func (v *recordingView) SetInfo(kind MenuKind, text string) {
	v.infos[kind] = append(v.infos[kind], text)
}
func (v *recordingView) SetGauge(rotation float64, text string) {
	v.gauges = append(v.gauges, GaugeState{Rotation: rotation, Text: text})
}

func (v *recordingView) lastTitle(kind MenuKind) string {
	ts := v.titles[kind]
	if len(ts) == 0 {
		return ""
	}
	return ts[len(ts)-1]
}

func (v *recordingView) lastGauge(t *testing.T) GaugeState {
	t.Helper()
	if len(v.gauges) == 0 {
		t.Fatalf("no gauge updates recorded")
	}
	return v.gauges[len(v.gauges)-1]
}

func (v *recordingView) countActive(want bool) int {
	n := 0
	for _, a := range v.active {
		if a == want {
			n++
		}
	}
	return n
}

type sentNotification struct {
	Name    string
	Payload json.RawMessage
}

type recordingNotifier struct {
	sent []sentNotification
}

func (n *recordingNotifier) SendNotification(name string, payload json.RawMessage) {
	n.sent = append(n.sent, sentNotification{Name: name, Payload: payload})
}

func (n *recordingNotifier) names() []string {
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Name
	}
	return out
}

type moduleCall struct {
	Action string
	ID     string
	Speed  time.Duration
}

type recordingModules struct {
	calls []moduleCall
}

func (m *recordingModules) ShowModule(id string, speed time.Duration) {
	m.calls = append(m.calls, moduleCall{Action: "show", ID: id, Speed: speed})
}

func (m *recordingModules) HideModule(id string, speed time.Duration) {
	m.calls = append(m.calls, moduleCall{Action: "hide", ID: id, Speed: speed})
}

// testHost bundles a host with its fakes.
type testHost struct {
	*Host
	sched    *fakeScheduler
	view     *recordingView
	notifier *recordingNotifier
	modules  *recordingModules
}

func testHostConfig(actions []Action) HostConfig {
	return HostConfig{
		Actions:  actions,
		Debounce: 100 * time.Millisecond,
		Navigation: NavigationConfig{
			AutoHide:   10 * time.Second,
			Transition: 300 * time.Millisecond,
		},
		Notification: NotificationConfig{
			AutoHide:    5 * time.Second,
			Info:        1500 * time.Millisecond,
			ModuleSpeed: 600 * time.Millisecond,
		},
		Range: RangeConfig{
			AutoHide:   5 * time.Second,
			ResetDelay: 300 * time.Millisecond,
		},
	}
}

func newTestHost(t *testing.T, cfg HostConfig) *testHost {
	t.Helper()
	th := &testHost{
		sched:    &fakeScheduler{},
		view:     newRecordingView(),
		notifier: &recordingNotifier{},
		modules:  &recordingModules{},
	}
	th.Host = NewHost(cfg, HostDeps{
		Notifier:  th.notifier,
		Modules:   th.modules,
		View:      th.view,
		Scheduler: th.sched,
		Logger:    testLogger(),
	})
	return th
}

// open switches to kind and waits out the debounce window.
func (th *testHost) open(kind MenuKind, cfg ShowConfig) {
	th.SetMenu(kind, cfg)
	th.sched.Advance(100 * time.Millisecond)
}

func sampleActions(n int) []Action {
	actions := make([]Action, n)
	for i := range actions {
		actions[i] = Action{Icon: string(rune('a' + i)), Title: "Action " + string(rune('A'+i))}
	}
	return actions
}
