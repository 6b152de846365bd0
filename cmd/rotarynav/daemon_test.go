package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestHandleEvent_RoutesToHost(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	logger := testLogger()

	handleEvent(th.Host, RotaryInput{Event: RotaryRight, Source: "ipc"}, nil, logger)
	if th.Active() != MenuNavigation {
		t.Fatalf("active=%q, want navigation", th.Active())
	}

	th.open(MenuRange, volumeMenu(0, 10))
	handleEvent(th.Host, ExternalNotification{Notification: "value", Payload: json.RawMessage(`{"value":6}`)}, nil, logger)
	if got := rangeValue(t, th.Range()); got != 6 {
		t.Fatalf("value=%v, want 6", got)
	}
}

func TestHandleEvent_SnapshotReply(t *testing.T) {
	th := newTestHost(t, testHostConfig(sampleActions(3)))
	v := newWSView(0, testLogger())
	v.SetActive(true)
	v.SetTitle(MenuNavigation, "Clock")

	reply := make(chan ViewSnapshot, 1)
	handleEvent(th.Host, RequestViewSnapshot{Reply: reply}, v.Snapshot, testLogger())
	select {
	case snap := <-reply:
		if !snap.Active || snap.Menus[MenuNavigation].Title != "Clock" {
			t.Fatalf("snapshot=%+v", snap)
		}
	default:
		t.Fatalf("no snapshot reply")
	}

	// no retained view: an empty snapshot
	handleEvent(th.Host, RequestViewSnapshot{Reply: reply}, nil, testLogger())
	if snap := <-reply; snap.Active || snap.Menus != nil {
		t.Fatalf("snapshot=%+v, want zero", snap)
	}

	// a full reply channel never blocks the loop
	reply <- ViewSnapshot{}
	handleEvent(th.Host, RequestViewSnapshot{Reply: reply}, v.Snapshot, testLogger())
	handleEvent(th.Host, RequestViewSnapshot{}, v.Snapshot, testLogger())
}

// The loop runs timer callbacks and events on one goroutine, in order.
func TestRunDaemon_TimersAndEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 8)
	timers := make(chan func(), 8)
	sched := newLoopScheduler(ctx, timers)

	cfg := testHostConfig(sampleActions(3))
	cfg.Debounce = 20 * time.Millisecond
	cfg.Navigation.Transition = 10 * time.Millisecond
	host := NewHost(cfg, HostDeps{Scheduler: sched, Logger: testLogger()})

	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(ctx, events, timers, host, nil, testLogger())
	}()

	events <- RotaryInput{Event: RotaryLeft}
	time.Sleep(50 * time.Millisecond) // debounce expires through the timers channel
	events <- RotaryInput{Event: RotaryLeft}

	reply := make(chan ViewSnapshot, 1)
	events <- RequestViewSnapshot{Reply: reply}
	select {
	case <-reply:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for the loop")
	}

	// reading host state is only safe once the loop stopped
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop")
	}
	if host.Active() != MenuNavigation || host.Navigation().ActiveIndex() != 1 {
		t.Fatalf("active=%q index=%d, want navigation at 1", host.Active(), host.Navigation().ActiveIndex())
	}
}

func TestRunDaemon_StopsWhenEventsClosed(t *testing.T) {
	events := make(chan Event)
	close(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		host := NewHost(testHostConfig(sampleActions(1)), HostDeps{Scheduler: &fakeScheduler{}, Logger: testLogger()})
		runDaemon(context.Background(), events, nil, host, nil, testLogger())
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop")
	}
}
