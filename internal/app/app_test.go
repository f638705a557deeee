package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/catalog"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/flow"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store/memory"
	"github.com/m3rciful/shopbot/internal/ui"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_ids: [42]
database:
  driver: memory
kafka:
  brokers: ["localhost:9092"]
shop:
  award_rate: "0.1"
  flow_ttl: 10m
  catalog_file: catalog.yaml
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, cfg.Telegram.AdminIDs)
	assert.Equal(t, 25, cfg.Telegram.LongPollTimeoutSeconds)
	assert.Equal(t, coredatabase.DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "shop.orders", cfg.Kafka.Topic)
	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.Shop.Rate()))
	assert.Equal(t, 10*time.Minute, cfg.Shop.FlowTTL)
	assert.Equal(t, "force_reload_flag.txt", cfg.Shop.ForceFlag)
	assert.Equal(t, "data_update_flag.txt", cfg.Shop.UpdateFlag)
	assert.Equal(t, 5*time.Second, cfg.Shop.ReloadInterval)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: from-file\ndatabase:\n  driver: memory\n")
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_ADMIN_IDS", "7,8")
	t.Setenv("SHOP_CURRENCY", "UZS")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, []int64{7, 8}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "UZS", cfg.Shop.Currency)
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Shop.Rate()), "default award rate")
}

func TestLoadConfigFatalErrors(t *testing.T) {
	cases := map[string]string{
		"award rate":   "telegram:\n  token: t\ndatabase:\n  driver: memory\nshop:\n  award_rate: \"1.5\"\n",
		"db driver":    "telegram:\n  token: t\ndatabase:\n  driver: oracle\n",
		"negative ttl": "telegram:\n  token: t\ndatabase:\n  driver: memory\nshop:\n  flow_ttl: -1m\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			var fatal *coreconfig.FatalConfigError
			require.ErrorAs(t, err, &fatal)
		})
	}
}

type fakeRouter struct {
	raws []event.Raw
}

func (r *fakeRouter) Handle(_ context.Context, raw event.Raw) []reply.Reply {
	r.raws = append(r.raws, raw)
	return []reply.Reply{reply.Text(raw.ChatID, "hi", nil)}
}

type fakeEmitter struct {
	replies []reply.Reply
}

func (e *fakeEmitter) Emit(_ context.Context, replies []reply.Reply) int {
	e.replies = append(e.replies, replies...)
	return len(replies)
}

func newContext(t *testing.T, u tele.Update) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Token: "1:test", Offline: true})
	require.NoError(t, err)
	c := bot.NewContext(u)
	middleware.StoreContext(c, context.Background())
	return c
}

func TestHandlerRoutesAndEmits(t *testing.T) {
	router := &fakeRouter{}
	emitter := &fakeEmitter{}
	h := newHandler(router, emitter)

	require.NoError(t, h(newContext(t, tele.Update{ID: 3, Message: &tele.Message{
		Sender: &tele.User{ID: 9},
		Chat:   &tele.Chat{ID: 90},
		Text:   "/start",
	}})))
	require.Len(t, router.raws, 1)
	assert.Equal(t, "/start", router.raws[0].Text)
	require.Len(t, emitter.replies, 1)
	assert.EqualValues(t, 90, emitter.replies[0].ChatID)

	// Updates without a sender never reach the router.
	require.NoError(t, h(newContext(t, tele.Update{ID: 4, Message: &tele.Message{Chat: &tele.Chat{ID: 1}}})))
	assert.Len(t, router.raws, 1)
}

type recordingGateway struct {
	mu      sync.Mutex
	texts   []string
	answers []string
}

func (g *recordingGateway) SendText(_ context.Context, _ int64, text string, _ *keyboard.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *recordingGateway) SendImage(context.Context, int64, string, string, *keyboard.Keyboard) error {
	return errors.New("unexpected image")
}

func (g *recordingGateway) EditControls(context.Context, int64, int, *keyboard.Keyboard) error {
	return nil
}

func (g *recordingGateway) AnswerCallback(_ context.Context, _ string, text string, _ bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, text)
	return nil
}

func newTestApp(t *testing.T) (*App, *recordingGateway) {
	t.Helper()
	locales, err := ui.LoadLocales()
	require.NoError(t, err)
	gw := &recordingGateway{}
	a := &App{
		cfg:     &Config{},
		store:   memory.New(),
		locales: locales,
		emitter: reply.NewEmitter(gw, nil),
	}
	return a, gw
}

func TestNoticesUseTheSendersLanguage(t *testing.T) {
	a, gw := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.CreateUser(ctx, &shop.User{ID: 5, Name: "Ann", Language: shop.LangUZ}))

	msg := newContext(t, tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: 5},
		Text:   "hello",
	}})
	require.NoError(t, a.onLimited(msg))
	require.Len(t, gw.texts, 1)
	assert.Equal(t, a.locales.For(shop.LangUZ).T("common.slow_down"), gw.texts[0])

	cb := newContext(t, tele.Update{ID: 2, Callback: &tele.Callback{
		ID:     "cb-1",
		Sender: &tele.User{ID: 6, LanguageCode: "ru"},
		Data:   "category_1",
	}})
	a.onPanic(cb, "boom")
	require.Len(t, gw.answers, 1)
	assert.Equal(t, a.locales.For(shop.LangRU).T("common.apology"), gw.answers[0])
}

func TestBotCommandsSkipHiddenAndAdmin(t *testing.T) {
	st := memory.New()
	locales, err := ui.LoadLocales()
	require.NoError(t, err)
	engine, err := flow.New(flow.Config{}, flow.Deps{
		Store:   st,
		States:  state.NewMemoryManager(),
		Locales: locales,
		Catalog: catalog.NewCache(st),
	})
	require.NoError(t, err)

	cmds := botCommands(engine.Registry())
	require.NotEmpty(t, cmds)
	texts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		assert.NotEmpty(t, c.Description)
		texts = append(texts, c.Text)
	}
	assert.Contains(t, texts, "/start")
	assert.NotContains(t, texts, "/admin")
	assert.IsNonDecreasing(t, texts)
}
