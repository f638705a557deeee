package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
)

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config  *coreconfig.Config
	Gateway *Gateway
	Ledger  Ledger

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	// Handler receives every update after the middleware chain.
	Handler  tele.HandlerFunc
	Commands []tele.Command

	DisableWebhookCleanup bool
	OnSkip                func(reason string)

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Gateway    *Gateway
	Dispatcher *tgsender.Dispatcher
}

// RunTelegram polls for updates and feeds them through the middleware chain
// until ctx is done, then drains queued updates and runs OnStop.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Gateway == nil {
		return fmt.Errorf("telegram: nil gateway provided")
	}
	if opts.Handler == nil {
		return fmt.Errorf("telegram: nil handler provided")
	}
	cfg := opts.Config
	gw := opts.Gateway

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	rt := Runtime{Gateway: gw, Dispatcher: dispatcher}

	logger.TG.Info("polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", cfg.Telegram.LongPollTimeoutSeconds),
		slog.String("bot", gw.Username()),
	)

	if !opts.DisableWebhookCleanup {
		if err := gw.DeleteWebhook(ctx); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", err.Error()),
			)
		}
	}
	if len(opts.Commands) > 0 {
		if err := gw.SetCommands(ctx, opts.Commands); err != nil {
			logger.TG.Warn("failed to set commands",
				slog.String("event", "set_commands"),
				slog.String("err", err.Error()),
			)
		} else {
			logger.TWire.Info("commands published",
				slog.String("event", "set_commands"),
				slog.Int("commands", len(opts.Commands)),
			)
		}
	}

	handler := Chain(opts.Handler, opts.Middlewares)
	bot := gw.Bot()
	consumer, err := NewConsumer(ConsumerOptions{
		Source:       gw,
		Ledger:       opts.Ledger,
		Workers:      cfg.Telegram.Workers,
		QueueSize:    cfg.Telegram.QueueSize,
		RetryBackoff: pollRetry,
		OnSkip:       opts.OnSkip,
		Handle: func(ctx context.Context, u tele.Update) {
			c := bot.NewContext(u)
			middleware.StoreContext(c, ctx)
			if err := handler(c); err != nil {
				logger.TG.LogAttrs(middleware.Context(c), slog.LevelWarn, "update.failed",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
			}
		},
	})
	if err != nil {
		dispatcher.Close()
		return err
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			dispatcher.Close()
			return err
		}
	}

	runErr := consumer.Run(ctx)

	var stopErr error
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		stopErr = opts.OnStop(stopCtx, rt)
		cancel()
	}
	dispatcher.Close()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
