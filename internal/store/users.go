package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// GetUserByEmail looks up an operator account for login.
func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, hashed_password, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}
