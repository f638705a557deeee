package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/internal/catalog"
)

type fakeCache struct {
	calls int
	err   error
}

func (c *fakeCache) Reload(context.Context) (int, int, error) {
	c.calls++
	return 2, 5, c.err
}

type refreshRecorder struct {
	got [][3]int
}

func (r *refreshRecorder) DataRefreshed(_ context.Context, c, p, promos int) error {
	r.got = append(r.got, [3]int{c, p, promos})
	return nil
}

type watcherFixture struct {
	dir      string
	cache    *fakeCache
	seeds    int
	notifier *refreshRecorder
	w        *ReloadWatcher
}

func newWatcher(t *testing.T) *watcherFixture {
	t.Helper()
	f := &watcherFixture{dir: t.TempDir(), cache: &fakeCache{}, notifier: &refreshRecorder{}}
	w, err := NewReloadWatcher(ReloadOptions{
		ForceFlag:  filepath.Join(f.dir, "force_reload_flag.txt"),
		UpdateFlag: filepath.Join(f.dir, "data_update_flag.txt"),
		Cache:      f.cache,
		Notifier:   f.notifier,
		Seed: func(context.Context) (catalog.Summary, error) {
			f.seeds++
			return catalog.Summary{Categories: 2, Products: 5, Promotions: 1}, nil
		},
	})
	require.NoError(t, err)
	f.w = w
	return f
}

func (f *watcherFixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReloadWatcherIdleWithoutFlags(t *testing.T) {
	f := newWatcher(t)
	reloaded, err := f.w.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.Zero(t, f.cache.calls)
}

func TestForceFlagReseedsAndReloads(t *testing.T) {
	f := newWatcher(t)
	flag := f.write(t, "force_reload_flag.txt", "")
	update := f.write(t, "data_update_flag.txt", "100")

	reloaded, err := f.w.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, 1, f.seeds)
	assert.Equal(t, 1, f.cache.calls)
	assert.Equal(t, [][3]int{{2, 5, 1}}, f.notifier.got)
	assert.NoFileExists(t, flag)
	assert.FileExists(t, update, "the update flag waits for the next check")
}

func TestUpdateFlagReloadsOnlyNewerStamps(t *testing.T) {
	f := newWatcher(t)
	ctx := context.Background()

	flag := f.write(t, "data_update_flag.txt", "1775000000.5\n")
	reloaded, err := f.w.Check(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Zero(t, f.seeds, "plain updates only refresh the cache")
	assert.NoFileExists(t, flag)

	f.write(t, "data_update_flag.txt", "1775000000")
	reloaded, err = f.w.Check(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.FileExists(t, flag)
	assert.Equal(t, 1, f.cache.calls)
}

func TestMalformedUpdateFlagIsDiscarded(t *testing.T) {
	f := newWatcher(t)
	flag := f.write(t, "data_update_flag.txt", "yesterday")
	_, err := f.w.Check(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, flag)
	assert.Zero(t, f.cache.calls)
}

func TestFailedForcedReloadStillClearsFlag(t *testing.T) {
	f := newWatcher(t)
	f.cache.err = errors.New("db down")
	flag := f.write(t, "force_reload_flag.txt", "")

	reloaded, err := f.w.Check(context.Background())
	require.Error(t, err)
	assert.False(t, reloaded)
	assert.NoFileExists(t, flag)
	assert.Empty(t, f.notifier.got)
}

func TestNewReloadWatcherDefaults(t *testing.T) {
	_, err := NewReloadWatcher(ReloadOptions{})
	require.Error(t, err)

	w, err := NewReloadWatcher(ReloadOptions{Cache: &fakeCache{}})
	require.NoError(t, err)
	assert.Equal(t, "force_reload_flag.txt", w.opts.ForceFlag)
	assert.Equal(t, "data_update_flag.txt", w.opts.UpdateFlag)
	assert.Equal(t, 5*time.Second, w.opts.Interval)
}

type countingStates struct{ sweeps atomic.Int32 }

func (c *countingStates) Sweep() int {
	c.sweeps.Add(1)
	return 1
}

func TestStateSweeperRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	states := &countingStates{}
	done := make(chan error, 1)
	go func() { done <- NewStateSweeper(states, time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool { return states.sweeps.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
