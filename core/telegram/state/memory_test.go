package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetDefaultsToIdle(t *testing.T) {
	m := NewMemoryManager()
	st := m.Get(1)
	assert.Equal(t, FlowIdle, st.Flow)
	assert.False(t, st.Active())
}

func TestSetReplacesWholeState(t *testing.T) {
	m := NewMemoryManager()
	m.Set(1, FlowState{Flow: "registering", Step: "collecting_email", Data: Accumulator{"name": "Al", "phone": ""}})
	m.Set(1, Enter("searching", "awaiting_query"))

	st := m.Get(1)
	assert.True(t, st.In("searching", "awaiting_query"))
	assert.Empty(t, st.Data, "accumulator of the previous flow must not leak")
	assert.Equal(t, 1, m.Len())
}

func TestSetIdleClears(t *testing.T) {
	m := NewMemoryManager()
	m.Set(1, Enter("checking_out", "collecting_address"))
	m.Set(1, Idle())
	assert.Zero(t, m.Len())
}

func TestStoredStateIsIsolatedFromCaller(t *testing.T) {
	m := NewMemoryManager()
	data := Accumulator{"name": "Al"}
	m.Set(1, FlowState{Flow: "registering", Step: "collecting_phone", Data: data})
	data["name"] = "changed"

	got := m.Get(1)
	got.Data["name"] = "mutated"
	assert.Equal(t, "Al", m.Get(1).Data.Get("name"))
}

func TestAccumulatorWithCopies(t *testing.T) {
	base := Accumulator{"name": "Al"}
	next := base.With("phone", "+998901234567", "dangling")
	assert.Equal(t, Accumulator{"name": "Al"}, base)
	assert.Equal(t, "+998901234567", next.Get("phone"))
	assert.False(t, next.Has("dangling"))
}

func TestExpiredStateReadsIdleAndIsSwept(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemoryManager(WithTTL(time.Minute), WithClock(clock.Now))
	m.Set(1, Enter("searching", "awaiting_query"))
	m.Set(2, Enter("searching", "awaiting_query"))

	clock.Advance(30 * time.Second)
	m.Set(2, Enter("tracking", "awaiting_order_ref"))
	clock.Advance(45 * time.Second)

	assert.False(t, m.Get(1).Active())
	assert.True(t, m.Get(2).Active())
	require.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := NewMemoryManager(WithTTL(0), WithClock(clock.Now))
	m.Set(1, Enter("rating", "collecting_stars"))
	clock.Advance(24 * time.Hour)
	assert.True(t, m.Get(1).Active())
	assert.Zero(t, m.Sweep())
}
