package main

import (
	"context"
	"time"
)

// Task is a handle to a scheduled callback.
type Task interface {
	// Stop cancels the callback. A stopped task never runs, even if its timer
	// already fired and the callback is queued on the loop.
	Stop()
}

// Scheduler schedules callbacks onto the goroutine that owns menu state.
// Menus, the host and their timers must only be touched from that goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// stopTask cancels t when one is pending.
func stopTask(t Task) {
	if t != nil {
		t.Stop()
	}
}

// loopScheduler hands expired timers to the daemon loop through a channel.
type loopScheduler struct {
	ctx  context.Context
	post chan<- func()
}

func newLoopScheduler(ctx context.Context, post chan<- func()) *loopScheduler {
	return &loopScheduler{ctx: ctx, post: post}
}

type loopTask struct {
	timer *time.Timer

	// stopped is only read and written on the loop goroutine.
	stopped bool
}

func (s *loopScheduler) AfterFunc(d time.Duration, fn func()) Task {
	t := &loopTask{}
	t.timer = time.AfterFunc(d, func() {
		run := func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		}
		select {
		case s.post <- run:
		case <-s.ctx.Done():
		}
	})
	return t
}

func (t *loopTask) Stop() {
	t.stopped = true
	t.timer.Stop()
}
