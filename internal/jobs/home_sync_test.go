package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snsapi/internal/model"
	"snsapi/internal/store"
)

type fakeHome struct {
	pages [][]model.Message
	err   error
	calls int
}

func (f *fakeHome) Name() string { return "rr" }

func (f *fakeHome) HomeTimeline(ctx context.Context, count int) ([]model.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func msg(id string, ts time.Time) model.Message {
	return model.Message{
		ID:           model.StatusID{Platform: "RenrenStatus", StatusID: id, SourceUserID: "7"},
		Channel:      "rr",
		Time:         ts,
		RepostsCount: model.NotAvailable,
	}
}

func TestSyncHomeStoresAndAdvancesCursor(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	base := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)

	f := &fakeHome{pages: [][]model.Message{
		{msg("1", base), msg("2", base.Add(time.Minute))},
		{msg("2", base.Add(time.Minute)), msg("3", base.Add(2*time.Minute))},
	}}

	n, err := SyncHome(ctx, db, f, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	v, err := db.LoadCursor(ctx, homeCursorKey("rr"))
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Minute).Format(time.RFC3339Nano), v)

	n, err = SyncHome(ctx, db, f, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := db.LoadMessages(ctx, "rr", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Equal(t, "3", stored[0].ID.StatusID)
}

func TestSyncHomePropagatesFetchError(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = SyncHome(context.Background(), db, &fakeHome{err: errors.New("down")}, 20, nil)
	assert.Error(t, err)
}

func TestRunSyncLoopStopsOnCancel(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeHome{}
	done := make(chan error, 1)
	go func() { done <- RunSyncLoop(ctx, db, f, 20, time.Hour, nil) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
