package main

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHost_StartsInactive(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	if th.Active() != MenuNone {
		t.Fatalf("active=%q, want none", th.Active())
	}
	if len(th.view.active) != 1 || th.view.active[0] {
		t.Fatalf("view active=%v, want [false]", th.view.active)
	}
	if th.ListenBlocked() {
		t.Fatalf("listen blocked before any menu switch")
	}
}

func TestHost_FirstEventOpensNavigationAndIsConsumed(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))

	th.Dispatch(RotaryLeft)
	if th.Active() != MenuNavigation {
		t.Fatalf("active=%q, want navigation", th.Active())
	}
	if th.Navigation().ActiveIndex() != 0 {
		t.Fatalf("opening event moved the carousel to %d", th.Navigation().ActiveIndex())
	}
	if len(th.view.rotations) != 0 {
		t.Fatalf("opening event rotated the carousel")
	}
	if !th.view.active[len(th.view.active)-1] {
		t.Fatalf("view not activated")
	}
}

func TestHost_DebounceDropsEvents(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))

	th.Dispatch(RotaryPress) // opens navigation
	if !th.ListenBlocked() {
		t.Fatalf("expected debounce window after menu switch")
	}

	th.sched.Advance(50 * time.Millisecond)
	th.Dispatch(RotaryLeft)
	if th.Navigation().ActiveIndex() != 0 {
		t.Fatalf("event inside debounce window was handled")
	}

	th.sched.Advance(50 * time.Millisecond)
	if th.ListenBlocked() {
		t.Fatalf("debounce window still open after 100ms")
	}
	th.Dispatch(RotaryLeft)
	if th.Navigation().ActiveIndex() != 1 {
		t.Fatalf("activeIndex=%d, want 1", th.Navigation().ActiveIndex())
	}
}

func TestHost_SwitchRestartsDebounce(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	th.SetMenu(MenuNavigation, ShowConfig{})
	th.sched.Advance(80 * time.Millisecond)
	th.SetMenu(MenuNotification, ShowConfig{})
	th.sched.Advance(80 * time.Millisecond)
	if !th.ListenBlocked() {
		t.Fatalf("second switch did not restart the debounce window")
	}
	th.sched.Advance(20 * time.Millisecond)
	if th.ListenBlocked() {
		t.Fatalf("debounce window still open")
	}
}

func TestHost_ZeroDebounce(t *testing.T) {
	cfg := testHostConfig(sampleActions(3))
	cfg.Debounce = 0
	th := newTestHost(t, cfg)

	th.Dispatch(RotaryLeft)
	th.Dispatch(RotaryLeft)
	if th.Navigation().ActiveIndex() != 1 {
		t.Fatalf("activeIndex=%d, want 1", th.Navigation().ActiveIndex())
	}
}

func TestHost_SetMenuHidesPrevious(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	th.open(MenuNavigation, ShowConfig{})
	th.open(MenuRange, volumeMenu(0, 10))

	if th.Navigation().Visible() {
		t.Fatalf("navigation still visible")
	}
	if !th.Range().Visible() {
		t.Fatalf("range not visible")
	}
	if th.Active() != MenuRange {
		t.Fatalf("active=%q, want range", th.Active())
	}
	// switching is not a close: the view stays active throughout
	if got := th.view.countActive(false); got != 1 {
		t.Fatalf("view deactivated %d times, want only the initial one", got)
	}
}

func TestHost_UnknownKindClosesMenus(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	th.open(MenuNavigation, ShowConfig{})

	th.SetMenu(MenuKind("bogus"), ShowConfig{})
	if th.Active() != MenuNone {
		t.Fatalf("active=%q, want none", th.Active())
	}
	if th.Navigation().Visible() {
		t.Fatalf("navigation still visible")
	}
	if th.view.active[len(th.view.active)-1] {
		t.Fatalf("view still active")
	}
}

func TestHost_ForwardExternalNotification(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))

	// nothing active: ignored
	th.ForwardExternalNotification("value", json.RawMessage(`{"value":4}`))

	// navigation does not receive notifications
	th.open(MenuNavigation, ShowConfig{})
	th.ForwardExternalNotification("value", json.RawMessage(`{"value":4}`))

	th.open(MenuRange, volumeMenu(0, 10))
	th.ForwardExternalNotification("value", json.RawMessage(`{"value":4}`))
	if got := rangeValue(t, th.Range()); got != 4 {
		t.Fatalf("value=%v, want 4", got)
	}
}

func TestHost_AutoHideClosesOnce(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	th.open(MenuRange, volumeMenu(0, 10))

	th.sched.Advance(5 * time.Second)
	if th.Active() != MenuNone {
		t.Fatalf("active=%q, want none", th.Active())
	}
	if got := th.view.countActive(false); got != 2 {
		t.Fatalf("view deactivated %d times, want 2", got)
	}
	if vis := th.view.visible[MenuRange]; len(vis) != 2 || vis[1] {
		t.Fatalf("range visibility=%v, want [true false]", vis)
	}
}

// Heavy use must not pile up timers: every menu keeps at most one pending
// auto-hide, transition, info and reset task.
func TestHost_PendingTimersBounded(t *testing.T) {
	actions := sampleActions(4)
	actions[1].Menu = &ShowConfig{Type: MenuRange, RangeMenuConfig: RangeMenuConfig{Options: &RangeOptions{Min: 0, Max: 100}}}
	actions[2].Menu = &ShowConfig{Type: MenuNotification, NotificationMenuConfig: NotificationMenuConfig{
		Events: map[Gesture]NotificationEvent{GestureNext: {Notification: "N"}, GesturePrev: {Notification: "P"}},
	}}
	th := newTestHost(t, testHostConfig(actions))

	for round := 0; round < 50; round++ {
		th.Dispatch(RotaryLeft) // opens navigation
		th.sched.Advance(100 * time.Millisecond)
		for i := 0; i < 1+round%3; i++ {
			th.Dispatch(RotaryLeft)
			th.sched.Advance(300 * time.Millisecond)
		}
		th.Dispatch(RotaryPress)
		th.sched.Advance(100 * time.Millisecond)
		for i := 0; i < 10; i++ {
			th.Dispatch(RotaryRight)
			th.Dispatch(RotaryLeft)
		}
		if th.Active() == MenuRange {
			th.Dispatch(RotaryPress)
		} else {
			th.SetMenu(MenuNone, ShowConfig{})
		}
		th.sched.Advance(100 * time.Millisecond)

		if p := th.sched.Pending(); p > 6 {
			t.Fatalf("round %d: %d pending timers", round, p)
		}
	}

	th.sched.Advance(time.Minute)
	if p := th.sched.Pending(); p != 0 {
		t.Fatalf("%d timers still pending after a minute idle", p)
	}
}

func TestHost_ReshowSameMenuDoesNotDuplicateTimers(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	cfg := clockMenu(map[Gesture]NotificationEvent{GesturePress: {Notification: "FOO"}})

	th.open(MenuNotification, cfg)
	base := th.sched.Pending()
	for i := 0; i < 20; i++ {
		th.open(MenuNotification, cfg)
	}
	if p := th.sched.Pending(); p != base {
		t.Fatalf("pending=%d after re-showing, want %d", p, base)
	}
	if !th.Notification().Visible() || th.Active() != MenuNotification {
		t.Fatalf("menu not active after re-show")
	}
}
