package telegram

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/logger"
)

// UpdateSource yields updates starting at an offset cursor.
type UpdateSource interface {
	Updates(ctx context.Context, offset int) ([]tele.Update, error)
	// Commit acknowledges every update below offset.
	Commit(ctx context.Context, offset int) error
}

// commitTimeout bounds the offset confirmation made on shutdown.
const commitTimeout = 5 * time.Second

// ConsumerOptions configures NewConsumer.
type ConsumerOptions struct {
	Source UpdateSource
	// Ledger filters redelivered updates; nil disables deduplication.
	Ledger Ledger
	Handle func(ctx context.Context, u tele.Update)

	Workers   int
	QueueSize int

	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	// OnSkip is told about updates that were not handed to Handle.
	OnSkip func(reason string)
}

// Consumer pulls updates and fans them out to sequential workers keyed by
// sender, so one user's updates are handled one at a time and in arrival
// order while different users proceed in parallel.
type Consumer struct {
	opts   ConsumerOptions
	shards []chan tele.Update
	wg     sync.WaitGroup
}

// NewConsumer validates opts and applies defaults.
func NewConsumer(opts ConsumerOptions) (*Consumer, error) {
	if opts.Source == nil {
		return nil, errors.New("telegram: consumer needs an update source")
	}
	if opts.Handle == nil {
		return nil, errors.New("telegram: consumer needs a handler")
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.MaxBackoff < opts.RetryBackoff {
		opts.MaxBackoff = 30 * time.Second
	}
	return &Consumer{opts: opts}, nil
}

// Run polls until ctx is done, then stops polling, waits until every queued
// update has been handled and commits the offset past the last one. Handlers
// receive a context that is not cancelled by shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	base := context.WithoutCancel(ctx)
	c.shards = make([]chan tele.Update, c.opts.Workers)
	for i := range c.shards {
		c.shards[i] = make(chan tele.Update, c.opts.QueueSize)
		c.wg.Add(1)
		go c.worker(base, i, c.shards[i])
	}

	logger.TG.LogAttrs(ctx, slog.LevelInfo, "consumer.started",
		slog.String("status", "ok"),
		slog.Int("workers", c.opts.Workers),
		slog.Int("queue_size", c.opts.QueueSize),
	)

	offset := c.poll(ctx)

	for _, ch := range c.shards {
		close(ch)
	}
	c.wg.Wait()

	logger.TG.LogAttrs(base, slog.LevelInfo, "consumer.drained", slog.String("status", "ok"))
	c.commit(base, offset)
	return nil
}

// commit confirms offset so updates handled before shutdown are not
// redelivered after a restart. The ledger still filters the ones a failed
// commit leaves behind.
func (c *Consumer) commit(ctx context.Context, offset int) {
	if offset == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()
	if err := c.opts.Source.Commit(ctx, offset); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "offset.commit_failed",
			slog.String("status", "fail"),
			slog.Int("offset", offset),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "offset.committed",
		slog.String("status", "ok"),
		slog.Int("offset", offset),
	)
}

// poll feeds the shards until ctx is done and returns the next offset.
func (c *Consumer) poll(ctx context.Context) int {
	offset := 0
	backoff := c.opts.RetryBackoff
	for ctx.Err() == nil {
		updates, err := c.opts.Source.Updates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return offset
			}
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "poll.failed",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
				slog.Duration("backoff", backoff),
			)
			if !sleep(ctx, backoff) {
				return offset
			}
			backoff = min(backoff*2, c.opts.MaxBackoff)
			continue
		}
		backoff = c.opts.RetryBackoff

		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			if !c.first(ctx, u.ID) {
				c.skip("duplicate")
				continue
			}
			// Blocking send: a full shard slows polling down instead of
			// dropping updates.
			c.shards[c.shardFor(u)] <- u
		}
	}
	return offset
}

func (c *Consumer) first(ctx context.Context, updateID int) bool {
	if c.opts.Ledger == nil {
		return true
	}
	ok, err := c.opts.Ledger.Mark(ctx, updateID)
	if err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "ledger.failed",
			slog.String("status", "fail"),
			slog.Int("update_id", updateID),
			slog.String("err", err.Error()),
		)
		return true
	}
	return ok
}

func (c *Consumer) skip(reason string) {
	if c.opts.OnSkip != nil {
		c.opts.OnSkip(reason)
	}
}

func (c *Consumer) shardFor(u tele.Update) int {
	return int(uint64(SenderID(u)) % uint64(len(c.shards)))
}

func (c *Consumer) worker(ctx context.Context, idx int, ch <-chan tele.Update) {
	defer c.wg.Done()
	for u := range ch {
		c.handle(ctx, idx, u)
	}
}

func (c *Consumer) handle(ctx context.Context, idx int, u tele.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.TG.LogAttrs(ctx, slog.LevelError, "consumer.panic",
				slog.String("status", "fail"),
				slog.Int("worker", idx),
				slog.Int("update_id", u.ID),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	c.opts.Handle(ctx, u)
}

// SenderID returns the user an update came from, or 0.
func SenderID(u tele.Update) int64 {
	switch {
	case u.Callback != nil && u.Callback.Sender != nil:
		return u.Callback.Sender.ID
	case u.Message != nil && u.Message.Sender != nil:
		return u.Message.Sender.ID
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
