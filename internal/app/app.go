package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/bootstrap"
	"github.com/m3rciful/shopbot/core/cmd"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/metrics"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/catalog"
	"github.com/m3rciful/shopbot/internal/flow"
	"github.com/m3rciful/shopbot/internal/notify"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/store"
	"github.com/m3rciful/shopbot/internal/store/memory"
	"github.com/m3rciful/shopbot/internal/store/postgres"
	"github.com/m3rciful/shopbot/internal/ui"
	"github.com/m3rciful/shopbot/internal/worker"
)

// App owns every long-lived component of the bot.
type App struct {
	cfg *Config

	store   store.Store
	cache   *catalog.Cache
	states  state.Manager
	locales *ui.Locales
	metrics *metrics.Collector

	gateway    *coretelegram.Gateway
	dispatcher *tgsender.Dispatcher
	engine     *flow.Engine
	emitter    *reply.Emitter

	redis     *redis.Client
	publisher *notify.Publisher
	reload    *worker.ReloadWatcher
}

var _ cmd.TelegramApp = (*App)(nil)

// Bootstrap adapts New to the process runner.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg)
}

// New connects storage, seeds reference data and builds the engine.
func New(ctx context.Context, cfg *Config) (*App, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:        &cfg.Config,
		Database:      cfg.Database,
		Migrations:    postgres.Migrations,
		MigrationsDir: postgres.MigrationsDir,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, metrics: metrics.New()}
	if res.DB != nil {
		a.store = postgres.New(res.DB)
	} else {
		a.store = memory.New()
	}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg
	if err := bootstrap.RunSeeders(ctx,
		bootstrap.SeederFunc(a.seedCatalog),
		bootstrap.SeederFunc(a.promoteAdmins),
	); err != nil {
		return err
	}

	locales, err := ui.LoadLocales()
	if err != nil {
		return fmt.Errorf("app: locales: %w", err)
	}
	a.locales = locales
	a.cache = catalog.NewCache(a.store)
	a.states = state.NewMemoryManager(state.WithTTL(cfg.Shop.FlowTTL))

	a.gateway, err = coretelegram.NewGateway(coretelegram.GatewayOptions{
		Token:    cfg.Telegram.Token,
		APIURL:   cfg.Telegram.APIURL,
		LongPoll: time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	a.dispatcher = tgsender.NewDispatcher(tgsender.Options{MaxRetries: 3})

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			logger.Warn(ctx, "app", "redis.unreachable",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("err", err.Error()),
			)
		}
		cancel()
	}

	tgNotifier, err := notify.NewTelegram(notify.TelegramOptions{
		Sender:    a.gateway,
		Queue:     a.dispatcher,
		Directory: a.store,
		Locales:   a.locales,
		Currency:  cfg.Shop.Currency,
		AdminIDs:  cfg.Telegram.AdminIDs,
	})
	if err != nil {
		return err
	}
	notifiers := notify.Multi{tgNotifier}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = notify.NewPublisher(notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		notifiers = append(notifiers, a.publisher)
	}

	a.engine, err = flow.New(flow.Config{
		Currency:  cfg.Shop.Currency,
		AwardRate: cfg.Shop.Rate(),
	}, flow.Deps{
		Store:       a.store,
		States:      a.states,
		Locales:     a.locales,
		Catalog:     a.cache,
		Notifier:    notifiers,
		Recommender: notify.NewPopular(a.store),
		Onboarding:  tgNotifier,
		Observer:    a.metrics,
		Reloader:    a.cache,
	})
	if err != nil {
		return err
	}
	a.emitter = reply.NewEmitter(a.gateway, a.metrics)

	reloadOpts := worker.ReloadOptions{
		ForceFlag:  cfg.Shop.ForceFlag,
		UpdateFlag: cfg.Shop.UpdateFlag,
		Interval:   cfg.Shop.ReloadInterval,
		Cache:      a.cache,
		Notifier:   tgNotifier,
	}
	if cfg.Shop.CatalogFile != "" {
		reloadOpts.Seed = func(ctx context.Context) (catalog.Summary, error) {
			return catalog.SeedFile(ctx, a.store, cfg.Shop.CatalogFile)
		}
	}
	a.reload, err = worker.NewReloadWatcher(reloadOpts)
	return err
}

func (a *App) seedCatalog(ctx context.Context) error {
	if a.cfg.Shop.CatalogFile == "" {
		return nil
	}
	_, err := catalog.SeedFile(ctx, a.store, a.cfg.Shop.CatalogFile)
	return err
}

func (a *App) promoteAdmins(ctx context.Context) error {
	for _, id := range a.cfg.Telegram.AdminIDs {
		if err := a.store.PromoteAdmin(ctx, id); err != nil {
			return fmt.Errorf("promote admin %d: %w", id, err)
		}
	}
	if n := len(a.cfg.Telegram.AdminIDs); n > 0 {
		logger.LogEvent(ctx, logger.SEED, slog.LevelInfo, "admins.promoted", slog.Int("count", n))
	}
	return nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := &a.cfg.Config
	hooks := coretelegram.MiddlewareHooks{
		OnPanic:   a.onPanic,
		OnLimited: a.onLimited,
		Observer:  a.metrics,
	}
	var ledger coretelegram.Ledger = coretelegram.NewMemoryLedger(0)
	if a.redis != nil {
		ledger = coretelegram.NewRedisLedger(a.redis, "", 0)
		if cfg.RateLimit.PerSecond > 0 {
			limit := max(cfg.RateLimit.Burst, int(math.Ceil(cfg.RateLimit.PerSecond)))
			hooks.Limiter = middleware.NewRedisLimiter(a.redis, "", limit, time.Second)
		}
	}

	return coretelegram.RunOptions{
		Config:      cfg,
		Gateway:     a.gateway,
		Ledger:      ledger,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, hooks),
		Handler:     newHandler(a.engine, a.emitter),
		Commands:    botCommands(a.engine.Registry()),
		OnSkip:      a.metrics.Skip,
		OnStop:      a.stop,
	}, nil
}

// Background implements cmd.TelegramApp.
func (a *App) Background() map[string]func(ctx context.Context) error {
	loops := map[string]func(ctx context.Context) error{
		"catalog_reload": a.reload.Run,
		"state_sweeper":  worker.NewStateSweeper(a.states, time.Minute).Run,
	}
	if a.cfg.Metrics.Listen != "" {
		checks := map[string]metrics.HealthCheck{"store": a.store.Ping}
		if a.redis != nil {
			checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
		}
		loops["metrics"] = metrics.NewServer(a.cfg.Metrics.Listen, a.metrics, checks).Run
	}
	return loops
}

func botCommands(reg *flow.Registry) []tele.Command {
	list := reg.ListCommands(true)
	cmds := make([]tele.Command, 0, len(list))
	for _, c := range list {
		cmds = append(cmds, tele.Command{Text: c.Text, Description: c.Description})
	}
	return cmds
}

// stop runs after the consumer drained and before the dispatcher closes.
func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	done := make(chan struct{})
	go func() {
		a.engine.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn(ctx, "app", "shutdown.notifications_abandoned", slog.String("err", ctx.Err().Error()))
	}
	return a.close()
}

func (a *App) close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
