package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

// Seeder loads reference data into storage.
type Seeder interface {
	Seed(ctx context.Context) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context) error {
	return f(ctx)
}

// RunSeeders executes seeders in order and stops at the first failure.
func RunSeeders(ctx context.Context, seeders ...Seeder) error {
	start := time.Now()
	ran := 0
	for i, s := range seeders {
		if s == nil {
			continue
		}
		if err := s.Seed(ctx); err != nil {
			logger.SEED.Error("seeder failed",
				slog.String("event", "seed"),
				slog.Int("count", i),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("seeder %d: %w", i, err)
		}
		ran++
	}
	logger.SEED.Info("seeders finished",
		slog.String("event", "seed"),
		slog.Int("count", ran),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
