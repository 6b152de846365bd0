package main

import (
	"context"
	"fmt"
	"log/slog"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
// The loop goroutine is the only one that touches the host, the menus and the
// views. Other goroutines reach it through two channels:
//
//   events  - rotary gestures, bus notifications, view snapshot requests
//   timers  - callbacks posted by loopScheduler when a timer expires
//
// Events are handled strictly in arrival order. Stale timers are filtered by
// the scheduler, so a callback received here is always current.
// ============================================================================

// snapshotFunc returns the retained view state, or nil when no view retains it.
type snapshotFunc func() ViewSnapshot

// runDaemon runs until ctx is canceled or events is closed.
func runDaemon(ctx context.Context, events <-chan Event, timers <-chan func(), host *Host, snapshot snapshotFunc, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case fn := <-timers:
			fn()

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			handleEvent(host, ev, snapshot, logger)
		}
	}
}

func handleEvent(host *Host, ev Event, snapshot snapshotFunc, logger *slog.Logger) {
	switch e := ev.(type) {
	case RotaryInput:
		logger.Debug("rotary input", "event", e.Event, "source", e.Source, "active", host.Active())
		host.Dispatch(e.Event)

	case ExternalNotification:
		logger.Debug("external notification", "notification", e.Notification, "active", host.Active())
		host.ForwardExternalNotification(e.Notification, e.Payload)

	case RequestViewSnapshot:
		if e.Reply == nil {
			return
		}
		var snap ViewSnapshot
		if snapshot != nil {
			snap = snapshot()
		}
		select {
		case e.Reply <- snap:
		default:
		}

	default:
		logger.Warn("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}
