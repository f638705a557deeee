package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/internal/shop"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertCategory(ctx, shop.Category{ID: 1, Name: "Tea"}))
	require.NoError(t, s.UpsertProduct(ctx, shop.Product{ID: 10, CategoryID: 1, Name: "Green tea", Price: decimal.RequireFromString("10.00"), Active: true}))
	require.NoError(t, s.UpsertProduct(ctx, shop.Product{ID: 11, CategoryID: 1, Name: "Black tea", Price: decimal.RequireFromString("5.00"), Active: true}))
	require.NoError(t, s.UpsertProduct(ctx, shop.Product{ID: 12, CategoryID: 1, Name: "Retired", Price: decimal.RequireFromString("1.00")}))
	return s
}

func TestCartLineNeverStoresZero(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	require.NoError(t, s.AddToCart(ctx, 7, 10, 1))
	require.NoError(t, s.AddToCart(ctx, 7, 10, 1))

	lines, err := s.CartLines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	lineID := lines[0].ID

	qty, err := s.DecrementCartLine(ctx, 7, lineID)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	qty, err = s.DecrementCartLine(ctx, 7, lineID)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	lines, err = s.CartLines(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = s.IncrementCartLine(ctx, 7, lineID)
	assert.ErrorIs(t, err, shop.ErrNotFound)
}

func TestCartLinesAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	require.NoError(t, s.AddToCart(ctx, 7, 10, 1))
	lines, _ := s.CartLines(ctx, 7)

	err := s.RemoveCartLine(ctx, 8, lines[0].ID)
	assert.ErrorIs(t, err, shop.ErrNotFound)
	assert.ErrorIs(t, s.AddToCart(ctx, 7, 12, 1), shop.ErrNotFound)
}

func TestCreateOrderIsAtomicAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	require.NoError(t, s.EnsureLoyalty(ctx, 7))
	require.NoError(t, s.AddToCart(ctx, 7, 10, 2))
	require.NoError(t, s.AddToCart(ctx, 7, 11, 1))
	lines, _ := s.CartLines(ctx, 7)

	draft := shop.OrderDraft{
		IdempotencyKey: "update:1",
		Reference:      "ref-1",
		UserID:         7,
		Address:        "Tashkent, Amir Temur 1",
		Payment:        shop.PaymentCash,
		Items:          shop.SnapshotItems(lines),
		Total:          shop.CartTotal(lines),
		Points:         1,
	}
	order, created, err := s.CreateOrder(ctx, draft)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, shop.StatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(25)))
	assert.Len(t, order.Items, 2)

	left, _ := s.CartLines(ctx, 7)
	assert.Empty(t, left)

	again, created, err := s.CreateOrder(ctx, draft)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, again.ID)

	rec, err := s.Loyalty(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Points)

	popular, _ := s.PopularProducts(ctx, 1)
	require.Len(t, popular, 1)
	assert.Equal(t, int64(10), popular[0].ID)
}

func TestUpdateOrderStatusGuardsCurrentValue(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	require.NoError(t, s.AddToCart(ctx, 7, 10, 1))
	lines, _ := s.CartLines(ctx, 7)
	order, _, err := s.CreateOrder(ctx, shop.OrderDraft{UserID: 7, Items: shop.SnapshotItems(lines), Total: shop.CartTotal(lines)})
	require.NoError(t, err)

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, shop.StatusPending, shop.StatusConfirmed))
	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, order.ID, shop.StatusPending, shop.StatusConfirmed), shop.ErrInvalidTransition)

	_, _, err = s.CreateOrder(ctx, shop.OrderDraft{UserID: 7})
	assert.ErrorIs(t, err, shop.ErrEmptyCart)
}

func TestPlaceholderAdminIsNotRegistered(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(func() time.Time { return time.Unix(100, 0) })
	require.NoError(t, s.PromoteAdmin(ctx, 99))

	_, err := s.User(ctx, 99)
	assert.ErrorIs(t, err, shop.ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, &shop.User{ID: 99, Name: "Boss", Language: shop.LangUZ}))
	u, err := s.User(ctx, 99)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	ids, _ := s.AdminIDs(ctx)
	assert.Equal(t, []int64{99}, ids)
}

func TestSearchIsCaseInsensitiveAndSkipsInactive(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	found, err := s.SearchProducts(ctx, "TEA", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, _ = s.SearchProducts(ctx, "retired", 10)
	assert.Empty(t, found)
}
