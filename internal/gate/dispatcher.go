package gate

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/pledgegate/pledgegate/internal/ledger"
	"github.com/pledgegate/pledgegate/internal/metrics"
)

// Settings key holding the last persisted update cursor.
const cursorKey = "update_cursor"

const (
	pollBackoffMin = time.Second
	pollBackoffMax = 30 * time.Second
	// Pause after a failed handler before the next event.
	handlerErrorDelay = time.Second
)

// Dispatcher pulls updates from the feed and drives the engine. The
// cursor advances after every event regardless of handler outcome, so
// one poisoned event can never stall the stream. Crash before the
// cursor persists means redelivery, which handlers tolerate.
type Dispatcher struct {
	feed        Feed
	engine      *Engine
	store       *ledger.Store
	metrics     *metrics.Metrics
	pollTimeout time.Duration
}

func NewDispatcher(feed Feed, engine *Engine, store *ledger.Store, m *metrics.Metrics, pollTimeout time.Duration) *Dispatcher {
	if pollTimeout <= 0 {
		pollTimeout = 50 * time.Second
	}
	return &Dispatcher{
		feed:        feed,
		engine:      engine,
		store:       store,
		metrics:     m,
		pollTimeout: pollTimeout,
	}
}

// Run consumes the feed until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	offset := d.loadCursor()
	slog.Info("Dispatcher started", "offset", offset, "poll_timeout", d.pollTimeout.String())

	backoff := pollBackoffMin
	for {
		updates, next, err := d.feed.GetUpdates(ctx, offset, d.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Dispatcher stopped", "reason", "context_canceled")
				return nil
			}
			d.metrics.IncPollError()
			slog.Warn("Update poll failed", "error", err, "backoff", backoff.String())
			sleep(ctx, backoff)
			backoff = min(backoff*2, pollBackoffMax)
			continue
		}
		backoff = pollBackoffMin

		for _, u := range updates {
			if ctx.Err() != nil {
				slog.Info("Dispatcher stopped", "reason", "context_canceled")
				return nil
			}
			if err := d.engine.Handle(ctx, u); err != nil {
				slog.Error("Event handler failed", "update_id", u.UpdateID, "error", err)
				sleep(ctx, handlerErrorDelay)
			}
			offset = u.UpdateID + 1
			d.persistCursor(offset)
		}
		if next > offset {
			offset = next
			d.persistCursor(offset)
		}
	}
}

func (d *Dispatcher) loadCursor() int64 {
	raw, err := d.store.GetSetting(cursorKey)
	if err != nil {
		return 0
	}
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("Stored cursor unreadable, starting from beginning", "value", raw, "error", err)
		return 0
	}
	return offset
}

// persistCursor is best effort: the in-memory offset keeps the loop
// moving even when the write fails, at the cost of redelivery after a
// restart.
func (d *Dispatcher) persistCursor(offset int64) {
	if err := d.store.SetSetting(cursorKey, strconv.FormatInt(offset, 10)); err != nil {
		slog.Warn("Cursor persist failed", "offset", offset, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
