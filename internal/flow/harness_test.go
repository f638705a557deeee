package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/catalog"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store"
	"github.com/m3rciful/shopbot/internal/store/memory"
	"github.com/m3rciful/shopbot/internal/ui"
)

type fakeNotifier struct {
	mu       sync.Mutex
	placed   []*shop.Order
	changed  []shop.OrderStatus
	feedback []string
}

func (f *fakeNotifier) OrderPlaced(_ context.Context, o *shop.Order, _ *shop.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, o)
	return nil
}

func (f *fakeNotifier) OrderStatusChanged(_ context.Context, o *shop.Order, _ shop.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, o.Status)
	return nil
}

func (f *fakeNotifier) Feedback(_ context.Context, _ *shop.User, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, text)
	return nil
}

type fakeRecommender struct{ products []shop.Product }

func (f fakeRecommender) Recommend(context.Context, int64, int) ([]shop.Product, error) {
	return f.products, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveEvent(_, _, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type harness struct {
	t        *testing.T
	engine   *Engine
	store    *memory.Store
	states   state.Manager
	locales  *ui.Locales
	notifier *fakeNotifier
	observer *recordingObserver
	nextUpd  int64
	now      time.Time
}

type harnessOption func(h *harness, d *Deps)

// withStore swaps the store the engine writes to. The catalog cache keeps
// reading the seeded memory store.
func withStore(wrap func(*memory.Store) store.Store) harnessOption {
	return func(h *harness, d *Deps) { d.Store = wrap(h.store) }
}

func withReloader(rl Reloader) harnessOption {
	return func(_ *harness, d *Deps) { d.Reloader = rl }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		store:    memory.New(),
		notifier: &fakeNotifier{},
		observer: &recordingObserver{},
		now:      time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	ctx := context.Background()
	require.NoError(t, h.store.UpsertCategory(ctx, shop.Category{ID: 1, Name: "Tea"}))
	require.NoError(t, h.store.UpsertCategory(ctx, shop.Category{ID: 2, Name: "Coffee"}))
	require.NoError(t, h.store.UpsertProduct(ctx, shop.Product{ID: 10, CategoryID: 1, Name: "Green Jasmine", Price: decimal.RequireFromString("12.50"), Active: true}))
	require.NoError(t, h.store.UpsertProduct(ctx, shop.Product{ID: 11, CategoryID: 1, Name: "Black Assam", Price: decimal.RequireFromString("20.00"), ImageRef: "assam.jpg", Active: true}))
	require.NoError(t, h.store.UpsertProduct(ctx, shop.Product{ID: 20, CategoryID: 2, Name: "Arabica", Price: decimal.RequireFromString("9.99"), Active: true}))
	require.NoError(t, h.store.UpsertPromotion(ctx, shop.Promotion{
		Code: "SPRING", DiscountPercent: decimal.NewFromInt(10), MinTotal: decimal.NewFromInt(20),
		ValidFrom: h.now.AddDate(0, -1, 0), ValidUntil: h.now.AddDate(0, 1, 0), Active: true,
	}))

	locales, err := ui.LoadLocales()
	require.NoError(t, err)
	h.locales = locales
	h.states = state.NewMemoryManager(state.WithClock(func() time.Time { return h.now }))

	deps := Deps{
		Store:       h.store,
		States:      h.states,
		Locales:     locales,
		Catalog:     catalog.NewCache(h.store),
		Notifier:    h.notifier,
		Recommender: fakeRecommender{products: []shop.Product{{ID: 20, Name: "Arabica", Price: decimal.RequireFromString("9.99")}}},
		Observer:    h.observer,
		Clock:       func() time.Time { return h.now },
	}
	for _, opt := range opts {
		opt(h, &deps)
	}
	h.engine, err = New(Config{Currency: "$"}, deps)
	require.NoError(t, err)
	return h
}

func (h *harness) register(userID int64, admin bool) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.store.CreateUser(ctx, &shop.User{ID: userID, Name: "Ann", Language: shop.LangRU}))
	if admin {
		require.NoError(h.t, h.store.PromoteAdmin(ctx, userID))
	}
}

func (h *harness) send(raw event.Raw) []reply.Reply {
	h.t.Helper()
	h.nextUpd++
	if raw.UpdateID == 0 {
		raw.UpdateID = h.nextUpd
	}
	if raw.ChatID == 0 {
		raw.ChatID = raw.UserID
	}
	return h.engine.Handle(context.Background(), raw)
}

func (h *harness) text(userID int64, text string) []reply.Reply {
	return h.send(event.Raw{UserID: userID, Text: text})
}

func (h *harness) menu(userID int64, key string) []reply.Reply {
	return h.text(userID, h.caption(key))
}

func (h *harness) press(userID int64, data string, messageID int) []reply.Reply {
	return h.send(event.Raw{UserID: userID, CallbackID: "cb-" + data, CallbackData: data, MessageID: messageID})
}

func (h *harness) caption(key string) string {
	return h.locales.For(shop.LangRU).Caption(key)
}

func (h *harness) tr(lang shop.Language, key string, args ...any) string {
	return h.locales.For(lang).T(key, args...)
}

func (h *harness) state(userID int64) state.FlowState {
	return h.states.Get(userID)
}

func texts(replies []reply.Reply) []string {
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		if r.Kind == reply.KindText || r.Kind == reply.KindImage {
			out = append(out, r.Text)
		}
	}
	return out
}

func answers(replies []reply.Reply) []reply.Reply {
	var out []reply.Reply
	for _, r := range replies {
		if r.Kind == reply.KindAnswer {
			out = append(out, r)
		}
	}
	return out
}
