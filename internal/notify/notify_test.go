package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store/memory"
	"github.com/m3rciful/shopbot/internal/ui"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, _ *keyboard.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) byChat() map[int64]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int64]string{}
	for _, m := range f.msgs {
		out[m.chatID] = m.text
	}
	return out
}

type fullQueue struct{}

func (fullQueue) Enqueue(context.Context, tgsender.Job) error { return tgsender.ErrQueueFull }

type fixture struct {
	store      *memory.Store
	sender     *fakeSender
	dispatcher *tgsender.Dispatcher
	notifier   *Telegram
	locales    *ui.Locales
}

func newFixture(t *testing.T, staticAdmins ...int64) *fixture {
	t.Helper()
	ctx := context.Background()
	locales, err := ui.LoadLocales()
	require.NoError(t, err)

	st := memory.New()
	require.NoError(t, st.CreateUser(ctx, &shop.User{ID: 100, Name: "Aziz", Language: shop.LangUZ}))
	require.NoError(t, st.PromoteAdmin(ctx, 100))
	require.NoError(t, st.CreateUser(ctx, &shop.User{ID: 7, Name: "Ann <b>", Language: shop.LangUZ}))

	f := &fixture{
		store:      st,
		sender:     &fakeSender{},
		dispatcher: tgsender.NewDispatcher(tgsender.Options{Workers: 1}),
		locales:    locales,
	}
	f.notifier, err = NewTelegram(TelegramOptions{
		Sender:    f.sender,
		Queue:     f.dispatcher,
		Directory: st,
		Locales:   locales,
		Currency:  "$",
		AdminIDs:  staticAdmins,
	})
	require.NoError(t, err)
	return f
}

func order() *shop.Order {
	return &shop.Order{
		ID:        3,
		Reference: "ref-3",
		UserID:    7,
		Status:    shop.StatusPending,
		Total:     decimal.RequireFromString("45.00"),
		Address:   "Tashkent, Amir Temur 1",
		Payment:   shop.PaymentCard,
		Items:     []shop.OrderItem{{ProductID: 10, Name: "Green Jasmine", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2}},
	}
}

func TestOrderPlacedReachesEveryAdminOnceInTheirLanguage(t *testing.T) {
	f := newFixture(t, 100, 200)
	customer, err := f.store.User(context.Background(), 7)
	require.NoError(t, err)

	require.NoError(t, f.notifier.OrderPlaced(context.Background(), order(), customer))
	f.dispatcher.Close()

	got := f.sender.byChat()
	ids := make([]int64, 0, len(got))
	for id := range got {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{100, 200}, ids)

	uz := ui.View{T: f.locales.For(shop.LangUZ), Currency: "$"}
	ru := ui.View{T: f.locales.For(shop.LangRU), Currency: "$"}
	assert.Equal(t, uz.AdminOrderNotice(order(), "Ann <b>"), got[100])
	assert.Equal(t, ru.AdminOrderNotice(order(), "Ann <b>"), got[200], "unknown admins read Russian")
	assert.Contains(t, got[200], "Ann &lt;b&gt;")
}

func TestOrderStatusChangedNotifiesCustomer(t *testing.T) {
	f := newFixture(t)
	o := order()
	o.Status = shop.StatusShipped

	require.NoError(t, f.notifier.OrderStatusChanged(context.Background(), o, shop.StatusConfirmed))
	f.dispatcher.Close()

	assert.Equal(t, map[int64]string{7: "📦 #3 buyurtma holati: 🚚 jo'natildi"}, f.sender.byChat())
}

func TestFeedbackAndWelcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer, err := f.store.User(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, f.notifier.Feedback(ctx, customer, "fast & friendly"))
	require.NoError(t, f.notifier.Welcome(ctx, customer))
	f.dispatcher.Close()

	got := f.sender.byChat()
	assert.Contains(t, got[100], "fast &amp; friendly")
	assert.Equal(t, f.locales.For(shop.LangUZ).T("onboarding.tips"), got[7])
}

func TestDataRefreshed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notifier.DataRefreshed(context.Background(), 2, 3, 1))
	f.dispatcher.Close()
	assert.Equal(t, f.locales.For(shop.LangUZ).T("admin.data_refreshed", 2, 3, 1), f.sender.byChat()[100])
}

func TestQueueRejectionIsReported(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Close()
	n, err := NewTelegram(TelegramOptions{Sender: f.sender, Queue: fullQueue{}, Directory: f.store, Locales: f.locales})
	require.NoError(t, err)

	err = n.OrderStatusChanged(context.Background(), order(), shop.StatusPending)
	assert.ErrorIs(t, err, tgsender.ErrQueueFull)
}

func TestNewTelegramRequiresPorts(t *testing.T) {
	_, err := NewTelegram(TelegramOptions{})
	assert.Error(t, err)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublisherEmitsKeyedEvents(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }
	ctx := context.Background()

	require.NoError(t, p.OrderPlaced(ctx, order(), nil))
	o := order()
	o.Status = shop.StatusConfirmed
	require.NoError(t, p.OrderStatusChanged(ctx, o, shop.StatusPending))
	require.NoError(t, p.Feedback(ctx, &shop.User{ID: 7}, "thanks"))
	require.Len(t, w.msgs, 3)

	assert.Equal(t, "ref-3", string(w.msgs[0].Key))
	var placed Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &placed))
	assert.Equal(t, Event{
		Type: EventOrderPlaced, OrderID: 3, Reference: "ref-3", UserID: 7,
		Status: "pending", Total: "45.00", Payment: "card", Items: 1, At: at,
	}, placed)

	var changed Event
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &changed))
	assert.Equal(t, "pending", changed.FromStatus)
	assert.Equal(t, "confirmed", changed.Status)

	assert.Equal(t, "7", string(w.msgs[2].Key))
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte(EventFeedback)}}, w.msgs[2].Headers)
}

func TestPublisherFailuresAreTransient(t *testing.T) {
	p := NewPublisher(&fakeWriter{err: errors.New("broker unavailable")})
	err := p.OrderPlaced(context.Background(), order(), nil)
	require.Error(t, err)
	assert.True(t, shop.IsTransient(err))
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) OrderPlaced(context.Context, *shop.Order, *shop.User) error {
	c.calls++
	return c.err
}

func (c *countingNotifier) OrderStatusChanged(context.Context, *shop.Order, shop.OrderStatus) error {
	c.calls++
	return c.err
}

func (c *countingNotifier) Feedback(context.Context, *shop.User, string) error {
	c.calls++
	return c.err
}

func TestMultiCallsEveryNotifier(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countingNotifier{err: boom}, &countingNotifier{}
	m := Multi{a, b}

	assert.ErrorIs(t, m.OrderPlaced(context.Background(), order(), nil), boom)
	assert.ErrorIs(t, m.OrderStatusChanged(context.Background(), order(), shop.StatusPending), boom)
	assert.ErrorIs(t, m.Feedback(context.Background(), &shop.User{ID: 1}, "x"), boom)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
}

func TestPopularRecommender(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for i, name := range []string{"A", "B", "C", "D"} {
		require.NoError(t, st.UpsertProduct(ctx, shop.Product{
			ID: int64(i + 1), CategoryID: 1, Name: name, Price: decimal.NewFromInt(1), Active: true,
		}))
	}
	got, err := NewPopular(st).Recommend(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
