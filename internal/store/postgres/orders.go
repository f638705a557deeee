package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/internal/shop"
)

const orderColumns = `id, reference, user_id, status, total, address, payment, points, created_at, updated_at`

// CreateOrder inserts the order, its items, clears the cart and credits
// loyalty in a single transaction. The idempotency key makes a replayed
// checkout return the original order.
func (s *Store) CreateOrder(ctx context.Context, d shop.OrderDraft) (*shop.Order, bool, error) {
	if len(d.Items) == 0 {
		return nil, false, shop.ErrEmptyCart
	}
	var (
		orderID int64
		created bool
	)
	err := s.withTx(ctx, "create order", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &orderID, `
			INSERT INTO orders (reference, idempotency_key, user_id, total, address, payment, points)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`,
			d.Reference, d.IdempotencyKey, d.UserID, d.Total, d.Address, d.Payment, d.Points)
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.GetContext(ctx, &orderID, `SELECT id FROM orders WHERE idempotency_key = $1`, d.IdempotencyKey)
			return classify("select order by key", "order", d.IdempotencyKey, err)
		}
		if err != nil {
			return classify("insert order", "user", d.UserID, err)
		}
		created = true

		items := make([]shop.OrderItem, len(d.Items))
		for i, it := range d.Items {
			it.OrderID = orderID
			items[i] = it
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, unit_price, quantity)
			VALUES (:order_id, :product_id, :name, :unit_price, :quantity)`, items); err != nil {
			return classify("insert order items", "order", orderID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, d.UserID); err != nil {
			return classify("clear cart", "cart", d.UserID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO loyalty (user_id, points, total_earned) VALUES ($1, $2, $2)
			ON CONFLICT (user_id) DO UPDATE SET
				points = loyalty.points + EXCLUDED.points,
				total_earned = loyalty.total_earned + EXCLUDED.total_earned,
				updated_at = now()`, d.UserID, d.Points)
		return classify("credit loyalty", "user", d.UserID, err)
	})
	if err != nil {
		return nil, false, err
	}
	o, err := s.Order(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return o, created, nil
}

func (s *Store) Order(ctx context.Context, id int64) (*shop.Order, error) {
	var o shop.Order
	if err := s.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id); err != nil {
		return nil, classify("select order", "order", id, err)
	}
	if err := s.db.SelectContext(ctx, &o.Items, `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY product_id`, id); err != nil {
		return nil, classify("select order items", "order", id, err)
	}
	return &o, nil
}

// UserOrders lists orders newest first without their items.
func (s *Store) UserOrders(ctx context.Context, userID int64, limit int) ([]shop.Order, error) {
	var out []shop.Order
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, pageLimit(limit))
	return out, classify("select user orders", "user", userID, err)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, from, to shop.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return classify("update order status", "order", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return shop.Transient("rows affected", err)
	} else if n == 1 {
		return nil
	}
	// Distinguish a missing order from a concurrent status change.
	if _, err := s.Order(ctx, id); err != nil {
		return err
	}
	return shop.ErrInvalidTransition
}

func (s *Store) OrderStats(ctx context.Context, userID int64) (shop.OrderStats, error) {
	var st shop.OrderStats
	err := s.db.GetContext(ctx, &st, `
		SELECT count(*) AS count, COALESCE(SUM(total), 0) AS spent
		FROM orders WHERE user_id = $1 AND status <> 'cancelled'`, userID)
	return st, classify("order stats", "user", userID, err)
}

func (s *Store) ShopStats(ctx context.Context) (shop.ShopStats, error) {
	var st shop.ShopStats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT count(*) FROM users WHERE name <> '') AS users,
			count(*) AS orders,
			count(*) FILTER (WHERE status = 'pending') AS pending,
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0) AS revenue
		FROM orders`)
	return st, classify("shop stats", "shop", "stats", err)
}

func (s *Store) EnsureLoyalty(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loyalty (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return classify("ensure loyalty", "user", userID, err)
}

func (s *Store) Loyalty(ctx context.Context, userID int64) (*shop.LoyaltyRecord, error) {
	var rec shop.LoyaltyRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT user_id, points, total_earned, updated_at FROM loyalty WHERE user_id = $1`, userID)
	if err != nil {
		return nil, classify("select loyalty", "loyalty", userID, err)
	}
	return &rec, nil
}
