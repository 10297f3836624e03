package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAppendDrawSequence(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AppendDraw(ctx, "s1", 12, 1))
	require.NoError(t, m.AppendDraw(ctx, "s1", 45, 2))
	assert.Equal(t, []int{12, 45}, m.Draws("s1"))

	// Retrying the last write is idempotent.
	require.NoError(t, m.AppendDraw(ctx, "s1", 45, 2))
	assert.Equal(t, []int{12, 45}, m.Draws("s1"))

	// Skipping a sequence number is rejected.
	assert.Error(t, m.AppendDraw(ctx, "s1", 7, 4))
}

func TestMemoryInjectedAppendFailures(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	m.FailNextAppends(2)
	assert.Error(t, m.AppendDraw(ctx, "s1", 3, 1))
	assert.Error(t, m.AppendDraw(ctx, "s1", 3, 1))
	require.NoError(t, m.AppendDraw(ctx, "s1", 3, 1))
	assert.Equal(t, []int{3}, m.Draws("s1"))
}

func TestMemorySaveWinOnce(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveWin(ctx, WinRecord{SessionID: "s1", WinnerID: "p1", Pattern: "row-1"}))
	assert.Error(t, m.SaveWin(ctx, WinRecord{SessionID: "s1", WinnerID: "p2"}), "win records are immutable")

	rec, ok := m.Win("s1")
	require.True(t, ok)
	assert.Equal(t, "p1", rec.WinnerID)
}

func TestMemorySaveSession(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveSession(ctx, SessionRecord{ID: "s1", Status: "waiting"}))
	require.NoError(t, m.SaveSession(ctx, SessionRecord{ID: "s1", Status: "active"}))

	rec, ok := m.Session("s1")
	require.True(t, ok)
	assert.Equal(t, "active", rec.Status)
}
