package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	f, err := NewFile(zerolog.Nop(), dir)
	require.NoError(t, err)

	rec := SessionRecord{
		ID:        "sess-1",
		RoomID:    "stake-10",
		Status:    "active",
		CreatedAt: time.Now().UTC(),
		Stake:     10,
		PrizePool: 18,
	}
	require.NoError(t, f.SaveSession(ctx, rec))
	require.NoError(t, f.AppendDraw(ctx, "sess-1", 42, 1))
	require.NoError(t, f.AppendDraw(ctx, "sess-1", 7, 2))
	require.NoError(t, f.SaveWin(ctx, WinRecord{SessionID: "sess-1", WinnerID: "alice", Pattern: "row-1", Payout: 18}))

	got, ok := f.Session("sess-1")
	require.True(t, ok)
	assert.Equal(t, "stake-10", got.RoomID)
	assert.Equal(t, []int{42, 7}, f.Draws("sess-1"))

	// a second store over the same directory sees everything
	reopened, err := NewFile(zerolog.Nop(), dir)
	require.NoError(t, err)
	got, ok = reopened.Session("sess-1")
	require.True(t, ok)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, []int{42, 7}, reopened.Draws("sess-1"))
	win, ok := reopened.Win("sess-1")
	require.True(t, ok)
	assert.Equal(t, "alice", win.WinnerID)
}

func TestFileStoreSessionsListing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	f, err := NewFile(zerolog.Nop(), dir)
	require.NoError(t, err)
	assert.Empty(t, f.Sessions())

	require.NoError(t, f.SaveSession(ctx, SessionRecord{ID: "sess-a", Status: "finished"}))
	require.NoError(t, f.SaveSession(ctx, SessionRecord{ID: "sess-b", Status: "cancelled"}))

	reopened, err := NewFile(zerolog.Nop(), dir)
	require.NoError(t, err)
	ids := map[string]string{}
	for _, rec := range reopened.Sessions() {
		ids[rec.ID] = rec.Status
	}
	assert.Equal(t, map[string]string{"sess-a": "finished", "sess-b": "cancelled"}, ids)
}

func TestFileStoreSequenceRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, err := NewFile(zerolog.Nop(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.AppendDraw(ctx, "sess-2", 10, 1))
	// retried write of the last draw is idempotent
	require.NoError(t, f.AppendDraw(ctx, "sess-2", 10, 1))
	// same seq with a different number is a conflict
	require.Error(t, f.AppendDraw(ctx, "sess-2", 11, 1))
	// gaps are rejected
	require.Error(t, f.AppendDraw(ctx, "sess-2", 12, 3))
	require.NoError(t, f.AppendDraw(ctx, "sess-2", 12, 2))
	assert.Equal(t, []int{10, 12}, f.Draws("sess-2"))
}

func TestFileStoreWinWrittenOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, err := NewFile(zerolog.Nop(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.SaveWin(ctx, WinRecord{SessionID: "sess-3", WinnerID: "alice"}))
	require.Error(t, f.SaveWin(ctx, WinRecord{SessionID: "sess-3", WinnerID: "bob"}))
}

func TestFileStoreSkipsCorruptFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0o644))

	f, err := NewFile(zerolog.Nop(), dir)
	require.NoError(t, err)
	_, ok := f.Session("garbage")
	assert.False(t, ok)
}
