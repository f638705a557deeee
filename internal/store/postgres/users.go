package postgres

import (
	"context"

	"github.com/m3rciful/shopbot/internal/shop"
)

// User loads a registered user. Rows created by PromoteAdmin before the
// user registered keep an empty name and report shop.ErrNotFound.
func (s *Store) User(ctx context.Context, id int64) (*shop.User, error) {
	var u shop.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, name, phone, email, language, is_admin, created_at
		FROM users WHERE id = $1 AND name <> ''`, id)
	if err != nil {
		return nil, classify("select user", "user", id, err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *shop.User) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (id, name, phone, email, language)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, phone = EXCLUDED.phone,
		    email = EXCLUDED.email, language = EXCLUDED.language
		RETURNING is_admin, created_at`,
		u.ID, u.Name, u.Phone, u.Email, u.Language)
	return classify("upsert user", "user", u.ID, row.Scan(&u.IsAdmin, &u.CreatedAt))
}

func (s *Store) SetLanguage(ctx context.Context, id int64, lang shop.Language) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET language = $2 WHERE id = $1`, id, lang)
	if err != nil {
		return classify("update language", "user", id, err)
	}
	return affected(res, "user", id)
}

func (s *Store) PromoteAdmin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, is_admin) VALUES ($1, TRUE)
		ON CONFLICT (id) DO UPDATE SET is_admin = TRUE`, id)
	return classify("promote admin", "user", id, err)
}

func (s *Store) AdminIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE is_admin ORDER BY id`)
	return ids, classify("select admins", "user", "admins", err)
}
