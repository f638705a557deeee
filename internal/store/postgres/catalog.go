package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/internal/shop"
)

const productColumns = `p.id, p.category_id, p.name, p.description, p.price, p.image_ref, p.active`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) Categories(ctx context.Context) ([]shop.Category, error) {
	var out []shop.Category
	err := s.db.SelectContext(ctx, &out, `SELECT id, name, description FROM categories ORDER BY id`)
	return out, classify("select categories", "category", "all", err)
}

func (s *Store) ProductsByCategory(ctx context.Context, categoryID int64, limit int) ([]shop.Product, error) {
	var out []shop.Product
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+productColumns+` FROM products p
		WHERE p.category_id = $1 AND p.active
		ORDER BY p.id LIMIT $2`, categoryID, pageLimit(limit))
	return out, classify("select products", "category", categoryID, err)
}

func (s *Store) Product(ctx context.Context, id int64) (*shop.Product, error) {
	var p shop.Product
	err := s.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 AND p.active`, id)
	if err != nil {
		return nil, classify("select product", "product", id, err)
	}
	return &p, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]shop.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	var out []shop.Product
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+productColumns+` FROM products p
		WHERE p.active AND (p.name ILIKE $1 OR p.description ILIKE $1)
		ORDER BY p.id LIMIT $2`, pattern, pageLimit(limit))
	return out, classify("search products", "product", query, err)
}

func (s *Store) PopularProducts(ctx context.Context, limit int) ([]shop.Product, error) {
	var out []shop.Product
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+productColumns+` FROM products p
		LEFT JOIN order_items oi ON oi.product_id = p.id
		WHERE p.active
		GROUP BY p.id
		ORDER BY COALESCE(SUM(oi.quantity), 0) DESC, p.id
		LIMIT $1`, pageLimit(limit))
	return out, classify("popular products", "product", "popular", err)
}

func (s *Store) UpsertCategory(ctx context.Context, c shop.Category) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, description) VALUES (:id, :name, :description)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description`, c)
	return classify("upsert category", "category", c.ID, err)
}

func (s *Store) UpsertProduct(ctx context.Context, p shop.Product) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (id, category_id, name, description, price, image_ref, active)
		VALUES (:id, :category_id, :name, :description, :price, :image_ref, :active)
		ON CONFLICT (id) DO UPDATE SET
			category_id = EXCLUDED.category_id, name = EXCLUDED.name,
			description = EXCLUDED.description, price = EXCLUDED.price,
			image_ref = EXCLUDED.image_ref, active = EXCLUDED.active`, p)
	return classify("upsert product", "category", p.CategoryID, err)
}

func (s *Store) UpsertPromotion(ctx context.Context, p shop.Promotion) error {
	p.Code = strings.ToUpper(p.Code)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO promotions (code, description, discount_percent, min_total, valid_from, valid_until, active)
		VALUES (:code, :description, :discount_percent, :min_total, :valid_from, :valid_until, :active)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description, discount_percent = EXCLUDED.discount_percent,
			min_total = EXCLUDED.min_total, valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until, active = EXCLUDED.active`, p)
	return classify("upsert promotion", "promotion", p.Code, err)
}

func (s *Store) ActivePromotions(ctx context.Context, now time.Time) ([]shop.Promotion, error) {
	var out []shop.Promotion
	err := s.db.SelectContext(ctx, &out, `
		SELECT code, description, discount_percent, min_total, valid_from, valid_until, active
		FROM promotions
		WHERE active AND valid_from <= $1 AND valid_until > $1
		ORDER BY code`, now)
	return out, classify("select promotions", "promotion", "active", err)
}

func (s *Store) Promotion(ctx context.Context, code string) (*shop.Promotion, error) {
	var p shop.Promotion
	err := s.db.GetContext(ctx, &p, `
		SELECT code, description, discount_percent, min_total, valid_from, valid_until, active
		FROM promotions WHERE code = upper($1)`, code)
	if err != nil {
		return nil, classify("select promotion", "promotion", code, err)
	}
	return &p, nil
}
