package engage

import (
	"context"
	"time"

	"snsapi/internal/config"
	"snsapi/internal/store"
)

const (
	ActionUpdate = "update"
	ActionReply  = "reply"
)

// Allow checks hourly/daily budgets before a mutation. Budgets are shared by
// all mutation types; a zero limit disables that check.
func Allow(ctx context.Context, db *store.DB, cfg config.BudgetConfig, now time.Time) (bool, error) {
	now = now.UTC()
	startHour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if cfg.MaxPerHour > 0 {
		n, err := db.CountActionsWithin(ctx, startHour, startHour.Add(time.Hour), "")
		if err != nil {
			return false, err
		}
		if n >= cfg.MaxPerHour {
			return false, nil
		}
	}
	if cfg.MaxPerDay > 0 {
		n, err := db.CountActionsWithin(ctx, startDay, startDay.Add(24*time.Hour), "")
		if err != nil {
			return false, err
		}
		if n >= cfg.MaxPerDay {
			return false, nil
		}
	}
	return true, nil
}

// Record logs a successful mutation.
func Record(ctx context.Context, db *store.DB, typ string, now time.Time) error {
	return db.PutAction(ctx, now, typ)
}
