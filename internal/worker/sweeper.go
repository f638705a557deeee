package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

// Sweepable drops expired entries and reports how many were removed.
type Sweepable interface {
	Sweep() int
}

// StateSweeper evicts abandoned conversations so memory does not grow with
// every user who ever started a flow.
type StateSweeper struct {
	states   Sweepable
	interval time.Duration
}

// NewStateSweeper sweeps every interval (a minute when interval <= 0).
func NewStateSweeper(states Sweepable, interval time.Duration) *StateSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StateSweeper{states: states, interval: interval}
}

func (s *StateSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.states.Sweep(); n > 0 {
				logger.LogEvent(ctx, logger.SVCWorker, slog.LevelDebug, "state.swept", slog.Int("expired", n))
			}
		}
	}
}
