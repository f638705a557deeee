package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerMarksOnce(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(time.Minute)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	first, err := l.Mark(ctx, 42)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := l.Mark(ctx, 42)
	require.NoError(t, err)
	assert.False(t, again)

	now = now.Add(2 * time.Minute)
	expired, err := l.Mark(ctx, 42)
	require.NoError(t, err)
	assert.True(t, expired, "ids are forgotten after the retention window")
}

func TestMemoryLedgerCollectsOldIDs(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(time.Minute)
	l.gcEach = 3
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Mark(ctx, 1)
	_, _ = l.Mark(ctx, 2)
	now = now.Add(time.Hour)
	_, _ = l.Mark(ctx, 3)
	assert.Equal(t, 1, l.Len())
}
