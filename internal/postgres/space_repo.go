package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SpaceRepository struct {
	db *pgxpool.Pool
}

func NewSpaceRepository(db *pgxpool.Pool) *SpaceRepository {
	return &SpaceRepository{db: db}
}

func (r *SpaceRepository) GetSpace(ctx context.Context, id string) (*domain.Space, error) {
	var s domain.Space
	err := r.db.QueryRow(ctx, `SELECT id, name, width, height FROM spaces WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Width, &s.Height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSpaceNotFound
		}
		return nil, err
	}
	return &s, nil
}
