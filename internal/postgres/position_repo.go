package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PositionRepository struct {
	db *pgxpool.Pool
}

func NewPositionRepository(db *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) FindPosition(ctx context.Context, accountID, spaceID string) (*domain.Position, error) {
	p := domain.Position{AccountID: accountID, SpaceID: spaceID}
	err := r.db.QueryRow(ctx,
		`SELECT x, y FROM space_users WHERE user_id=$1 AND space_id=$2`,
		accountID, spaceID).Scan(&p.X, &p.Y)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePosition защищён от гонки двух вкладок: при конфликте возвращается уже сохранённая клетка.
func (r *PositionRepository) CreatePosition(ctx context.Context, accountID, spaceID string, x, y int) (*domain.Position, error) {
	p := domain.Position{AccountID: accountID, SpaceID: spaceID}
	err := r.db.QueryRow(ctx, `
		INSERT INTO space_users (user_id, space_id, x, y)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, space_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING x, y
	`, accountID, spaceID, x, y).Scan(&p.X, &p.Y)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PositionRepository) UpdatePosition(ctx context.Context, accountID, spaceID string, x, y int) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE space_users SET x=$3, y=$4, updated_at=now() WHERE user_id=$1 AND space_id=$2`,
		accountID, spaceID, x, y)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}
