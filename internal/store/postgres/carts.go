package postgres

import (
	"context"

	"github.com/m3rciful/shopbot/internal/shop"
)

const cartLineQuery = `
	SELECT c.id, c.user_id, c.product_id, p.name, p.price AS unit_price, c.quantity
	FROM cart_items c JOIN products p ON p.id = c.product_id`

func (s *Store) AddToCart(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return &shop.ValidationError{Field: "quantity", Reason: shop.ReasonOutOfRange}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		SELECT $1, id, $3 FROM products WHERE id = $2 AND active
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, productID, qty)
	if err != nil {
		return classify("add to cart", "product", productID, err)
	}
	return affected(res, "product", productID)
}

func (s *Store) CartLines(ctx context.Context, userID int64) ([]shop.CartLine, error) {
	var out []shop.CartLine
	err := s.db.SelectContext(ctx, &out, cartLineQuery+` WHERE c.user_id = $1 ORDER BY c.id`, userID)
	return out, classify("select cart", "cart", userID, err)
}

func (s *Store) CartLine(ctx context.Context, userID, lineID int64) (*shop.CartLine, error) {
	var l shop.CartLine
	err := s.db.GetContext(ctx, &l, cartLineQuery+` WHERE c.user_id = $1 AND c.id = $2`, userID, lineID)
	if err != nil {
		return nil, classify("select cart line", "cart line", lineID, err)
	}
	return &l, nil
}

func (s *Store) IncrementCartLine(ctx context.Context, userID, lineID int64) (int, error) {
	var qty int
	err := s.db.GetContext(ctx, &qty, `
		UPDATE cart_items SET quantity = quantity + 1
		WHERE user_id = $1 AND id = $2
		RETURNING quantity`, userID, lineID)
	return qty, classify("increment cart line", "cart line", lineID, err)
}

// DecrementCartLine never stores a zero quantity: a line at one is deleted.
func (s *Store) DecrementCartLine(ctx context.Context, userID, lineID int64) (int, error) {
	var qty int
	err := s.db.GetContext(ctx, &qty, `
		UPDATE cart_items SET quantity = quantity - 1
		WHERE user_id = $1 AND id = $2 AND quantity > 1
		RETURNING quantity`, userID, lineID)
	if err == nil {
		return qty, nil
	}
	if err := classify("decrement cart line", "cart line", lineID, err); !isNotFound(err) {
		return 0, err
	}
	return 0, s.RemoveCartLine(ctx, userID, lineID)
}

func (s *Store) RemoveCartLine(ctx context.Context, userID, lineID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND id = $2`, userID, lineID)
	if err != nil {
		return classify("delete cart line", "cart line", lineID, err)
	}
	return affected(res, "cart line", lineID)
}
