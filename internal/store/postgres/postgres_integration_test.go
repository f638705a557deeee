//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/internal/shop"
)

// openTestStore connects using the DB_* environment and truncates all tables.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	var cfg database.Config
	require.NoError(t, envconfig.Process("", &cfg))
	if cfg.Name == "" {
		t.Skip("DB_NAME not set")
	}
	require.NoError(t, cfg.Normalize())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
	defer cancel()
	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(cfg, Migrations, MigrationsDir))

	_, err = db.ExecContext(ctx, `
		TRUNCATE users, categories, products, cart_items, orders, order_items, loyalty,
			promotions, reviews, favorites, feedback, activity_log, notifications
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func seedProduct(t *testing.T, s *Store, id int64, price string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertCategory(ctx, shop.Category{ID: 1, Name: "Tea"}))
	require.NoError(t, s.UpsertProduct(ctx, shop.Product{
		ID: id, CategoryID: 1, Name: "Green", Price: decimal.RequireFromString(price), Active: true,
	}))
}

func TestCreateOrderIsAtomicAndIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, 10, "12.50")
	require.NoError(t, s.CreateUser(ctx, &shop.User{ID: 7, Name: "Ann", Language: shop.LangRU}))
	require.NoError(t, s.AddToCart(ctx, 7, 10, 2))

	lines, err := s.CartLines(ctx, 7)
	require.NoError(t, err)
	total := shop.CartTotal(lines)
	draft := shop.OrderDraft{
		IdempotencyKey: "update:1",
		Reference:      "ref-1",
		UserID:         7,
		Address:        "Tashkent, Chilanzar 1",
		Payment:        shop.PaymentCash,
		Items:          shop.SnapshotItems(lines),
		Total:          total,
		Points:         shop.LoyaltyAward(total, decimal.RequireFromString("0.05")),
	}

	o, created, err := s.CreateOrder(ctx, draft)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("25")))
	assert.Len(t, o.Items, 1)

	again, created, err := s.CreateOrder(ctx, draft)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, o.ID, again.ID)

	lines, err = s.CartLines(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lines)

	rec, err := s.Loyalty(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Points)
}

func TestDecrementDeletesLastUnit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, 10, "3")
	require.NoError(t, s.AddToCart(ctx, 7, 10, 1))
	lines, err := s.CartLines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	qty, err := s.DecrementCartLine(ctx, 7, lines[0].ID)
	require.NoError(t, err)
	assert.Zero(t, qty)
	_, err = s.CartLine(ctx, 7, lines[0].ID)
	assert.ErrorIs(t, err, shop.ErrNotFound)

	_, err = s.DecrementCartLine(ctx, 8, lines[0].ID)
	assert.ErrorIs(t, err, shop.ErrNotFound)
}

func TestUpdateOrderStatusGuardsCurrentStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, 10, "3")
	require.NoError(t, s.CreateUser(ctx, &shop.User{ID: 7, Name: "Ann", Language: shop.LangRU}))
	o, _, err := s.CreateOrder(ctx, shop.OrderDraft{
		Reference: "ref-2", UserID: 7, Address: "somewhere long enough", Payment: shop.PaymentCard,
		Items: []shop.OrderItem{{ProductID: 10, Name: "Green", UnitPrice: decimal.NewFromInt(3), Quantity: 1}},
		Total: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateOrderStatus(ctx, o.ID, shop.StatusPending, shop.StatusConfirmed))
	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, o.ID, shop.StatusPending, shop.StatusCancelled), shop.ErrInvalidTransition)
	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, 999, shop.StatusPending, shop.StatusConfirmed), shop.ErrNotFound)
}

func TestPromotedAdminIsNotRegistered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PromoteAdmin(ctx, 99))
	_, err := s.User(ctx, 99)
	assert.ErrorIs(t, err, shop.ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, &shop.User{ID: 99, Name: "Boss", Language: shop.LangUZ}))
	u, err := s.User(ctx, 99)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	ids, err := s.AdminIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, ids)
}
