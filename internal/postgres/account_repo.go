package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// DisplayName: display_name, а если он не задан, то username.
func (r *AccountRepository) DisplayName(ctx context.Context, accountID string) (string, error) {
	var name string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(NULLIF(display_name, ''), username) FROM users WHERE id=$1`,
		accountID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrAccountNotFound
		}
		return "", err
	}
	return name, nil
}
