package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"csms/internal/domain/user"
	"csms/internal/pkg/errors"
)

func (s *Store) CreateUser(ctx context.Context, e user.Entity) (user.Entity, error) {
	const q = `
		INSERT INTO users (id, email, password_hash, full_name, phone, is_admin, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, now(), now())
		RETURNING id, email, password_hash, full_name, phone, is_admin, created_at, updated_at`

	var out user.Entity
	row := s.q(ctx).QueryRow(ctx, q, e.Email, e.PasswordHash, e.FullName, e.Phone, e.IsAdmin)
	if err := scanUser(row, &out); err != nil {
		return user.Entity{}, errors.Database("create user", err)
	}
	return out, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (user.Entity, bool, error) {
	const q = `SELECT id, email, password_hash, full_name, phone, is_admin, created_at, updated_at
		FROM users WHERE email = $1`

	var out user.Entity
	row := s.q(ctx).QueryRow(ctx, q, email)
	if err := scanUser(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return user.Entity{}, false, nil
		}
		return user.Entity{}, false, errors.Database("get user by email", err)
	}
	return out, true, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (user.Entity, bool, error) {
	const q = `SELECT id, email, password_hash, full_name, phone, is_admin, created_at, updated_at
		FROM users WHERE id = $1`

	var out user.Entity
	row := s.q(ctx).QueryRow(ctx, q, id)
	if err := scanUser(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return user.Entity{}, false, nil
		}
		return user.Entity{}, false, errors.Database("get user", err)
	}
	return out, true, nil
}

func scanUser(row pgx.Row, out *user.Entity) error {
	return row.Scan(&out.ID, &out.Email, &out.PasswordHash, &out.FullName, &out.Phone,
		&out.IsAdmin, &out.CreatedAt, &out.UpdatedAt)
}
