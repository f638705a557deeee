package postgres

import (
	"context"

	"github.com/m3rciful/shopbot/internal/shop"
)

func (s *Store) AddFavorite(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, productID)
	if err != nil {
		return false, classify("add favorite", "product", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, shop.Transient("rows affected", err)
	}
	return n == 1, nil
}

func (s *Store) AddReview(ctx context.Context, r *shop.Review) error {
	row := s.db.QueryRowxContext(ctx, `
		WITH ins AS (
			INSERT INTO reviews (user_id, product_id, stars, comment)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, created_at
		)
		SELECT ins.id, ins.created_at, COALESCE(u.name, '')
		FROM ins LEFT JOIN users u ON u.id = ins.user_id`,
		r.UserID, r.ProductID, r.Stars, r.Comment)
	return classify("insert review", "product", r.ProductID, row.Scan(&r.ID, &r.CreatedAt, &r.Author))
}

func (s *Store) ProductReviews(ctx context.Context, productID int64, limit int) ([]shop.Review, error) {
	var out []shop.Review
	err := s.db.SelectContext(ctx, &out, `
		SELECT r.id, r.user_id, r.product_id, r.stars, r.comment, r.created_at,
		       COALESCE(u.name, '') AS author
		FROM reviews r LEFT JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC LIMIT $2`, productID, pageLimit(limit))
	return out, classify("select reviews", "product", productID, err)
}

func (s *Store) AddFeedback(ctx context.Context, userID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO feedback (user_id, text) VALUES ($1, $2)`, userID, text)
	return classify("insert feedback", "user", userID, err)
}

func (s *Store) LogActivity(ctx context.Context, userID int64, action, payload string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (user_id, action, payload) VALUES ($1, $2, $3)`, userID, action, payload)
	return classify("log activity", "user", userID, err)
}

func (s *Store) AddNotification(ctx context.Context, userID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications (user_id, text) VALUES ($1, $2)`, userID, text)
	return classify("insert notification", "user", userID, err)
}

func (s *Store) UnreadNotifications(ctx context.Context, userID int64) ([]shop.Notification, error) {
	var out []shop.Notification
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, user_id, text, is_read, created_at
		FROM notifications WHERE user_id = $1 AND NOT is_read ORDER BY id`, userID)
	return out, classify("select notifications", "user", userID, err)
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	return classify("mark notifications read", "user", userID, err)
}
