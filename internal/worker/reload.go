// Package worker holds the bot's background loops.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/catalog"
)

// CatalogReloader refreshes an in-memory catalog from the store.
type CatalogReloader interface {
	Reload(ctx context.Context) (categories, products int, err error)
}

// RefreshNotifier is told about every completed reload.
type RefreshNotifier interface {
	DataRefreshed(ctx context.Context, categories, products, promotions int) error
}

// ReloadOptions configures NewReloadWatcher.
type ReloadOptions struct {
	// ForceFlag requests a full reload: re-apply the seed, then refresh the cache.
	ForceFlag string
	// UpdateFlag holds a unix timestamp; the cache is refreshed when it is
	// newer than the previous refresh.
	UpdateFlag string
	Interval   time.Duration

	// Seed re-applies the catalog file; nil skips seeding on forced reloads.
	Seed     func(ctx context.Context) (catalog.Summary, error)
	Cache    CatalogReloader
	Notifier RefreshNotifier
}

// ReloadWatcher polls two flag files dropped by operators or sync jobs.
type ReloadWatcher struct {
	opts ReloadOptions
	last float64
}

// NewReloadWatcher applies defaults: the flag names used by the sync tooling
// and a five second poll.
func NewReloadWatcher(opts ReloadOptions) (*ReloadWatcher, error) {
	if opts.Cache == nil {
		return nil, errors.New("worker: reload watcher needs a catalog")
	}
	if opts.ForceFlag == "" {
		opts.ForceFlag = "force_reload_flag.txt"
	}
	if opts.UpdateFlag == "" {
		opts.UpdateFlag = "data_update_flag.txt"
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	return &ReloadWatcher{opts: opts}, nil
}

// Run checks the flags every interval until ctx is done. Failures are
// logged and the loop keeps going.
func (w *ReloadWatcher) Run(ctx context.Context) error {
	logger.LogEvent(ctx, logger.SVCWorker, slog.LevelInfo, "reload_watcher.started",
		slog.String("force_flag", w.opts.ForceFlag),
		slog.String("update_flag", w.opts.UpdateFlag),
		slog.Duration("interval", w.opts.Interval),
	)
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Error(ctx, "worker", "reload.failed", slog.String("err", err.Error()))
			}
		}
	}
}

// Check handles at most one flag per call, the forced one first, and
// reports whether a reload happened. A flag that could not be processed is
// removed so it does not fail forever.
func (w *ReloadWatcher) Check(ctx context.Context) (bool, error) {
	if exists(w.opts.ForceFlag) {
		err := w.reload(ctx, true)
		removeFlag(ctx, w.opts.ForceFlag)
		return err == nil, err
	}
	if !exists(w.opts.UpdateFlag) {
		return false, nil
	}

	data, err := os.ReadFile(w.opts.UpdateFlag)
	if err != nil {
		removeFlag(ctx, w.opts.UpdateFlag)
		return false, fmt.Errorf("worker: read update flag: %w", err)
	}
	stamp, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		removeFlag(ctx, w.opts.UpdateFlag)
		return false, fmt.Errorf("worker: malformed update flag %q: %w", strings.TrimSpace(string(data)), err)
	}
	if stamp <= w.last {
		return false, nil
	}
	if err := w.reload(ctx, false); err != nil {
		removeFlag(ctx, w.opts.UpdateFlag)
		return false, err
	}
	w.last = stamp
	removeFlag(ctx, w.opts.UpdateFlag)
	return true, nil
}

func (w *ReloadWatcher) reload(ctx context.Context, full bool) error {
	start := time.Now()
	var summary catalog.Summary
	if full && w.opts.Seed != nil {
		s, err := w.opts.Seed(ctx)
		if err != nil {
			return fmt.Errorf("worker: reseed: %w", err)
		}
		summary = s
	}
	categories, products, err := w.opts.Cache.Reload(ctx)
	if err != nil {
		return fmt.Errorf("worker: reload catalog: %w", err)
	}

	logger.LogEvent(ctx, logger.SVCWorker, slog.LevelInfo, "data.reloaded",
		slog.Bool("full", full),
		slog.Int("categories", categories),
		slog.Int("products", products),
		slog.Int("promotions", summary.Promotions),
		slog.Duration("duration", time.Since(start)),
	)
	if w.opts.Notifier != nil {
		if err := w.opts.Notifier.DataRefreshed(ctx, categories, products, summary.Promotions); err != nil {
			logger.Warn(ctx, "worker", "reload.notify_failed", slog.String("err", err.Error()))
		}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeFlag(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "worker", "flag.remove_failed",
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
	}
}
