package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"snsapi/internal/metrics"
	"snsapi/internal/model"
	"snsapi/internal/store"
)

// Timeline is the read side of a channel.
type Timeline interface {
	Name() string
	HomeTimeline(ctx context.Context, count int) ([]model.Message, error)
}

func homeCursorKey(channel string) string { return "home:" + channel }

// SyncHome fetches one page of the home timeline, stores it and advances the
// channel cursor to the newest message time. It returns how many messages
// are newer than the previous cursor.
func SyncHome(ctx context.Context, db *store.DB, tl Timeline, count int, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	metrics.SyncRuns.Inc()
	defer metrics.ObserveSyncDuration(start)

	key := homeCursorKey(tl.Name())
	var since time.Time
	if v, err := db.LoadCursor(ctx, key); err == nil && v != "" {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			since = ts
		}
	}

	msgs, err := tl.HomeTimeline(ctx, count)
	if err != nil {
		metrics.SyncErrors.Inc()
		return 0, err
	}
	if _, err := db.PutMessages(ctx, msgs); err != nil {
		metrics.SyncErrors.Inc()
		return 0, err
	}
	newest := since
	fresh := 0
	for _, m := range msgs {
		if m.Time.After(since) {
			fresh++
		}
		if m.Time.After(newest) {
			newest = m.Time
		}
	}
	if newest.After(since) {
		if err := db.SaveCursor(ctx, key, newest.Format(time.RFC3339Nano)); err != nil {
			return fresh, err
		}
	}
	log.Info("home sync", zap.String("channel", tl.Name()), zap.Int("fetched", len(msgs)), zap.Int("new", fresh))
	return fresh, nil
}

// RunSyncLoop runs SyncHome on a ticker until ctx is cancelled.
func RunSyncLoop(ctx context.Context, db *store.DB, tl Timeline, count int, interval time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if _, err := SyncHome(ctx, db, tl, count, log); err != nil {
		log.Error("home sync failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("sync loop stop")
			return ctx.Err()
		case <-t.C:
			if _, err := SyncHome(ctx, db, tl, count, log); err != nil {
				log.Error("home sync failed", zap.Error(err))
			}
		}
	}
}
