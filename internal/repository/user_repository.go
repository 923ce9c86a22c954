package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetEmail(ctx context.Context, userID string) (string, error) {
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && email.String == "") {
		return "", interfaces.ErrNotFound
	}
	return email.String, err
}
