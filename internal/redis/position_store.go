package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// PositionStore хранит клетки игроков в hash position:{space}:{user} с полями x, y.
type PositionStore struct {
	rdb *goredis.Client
}

func NewPositionStore(rdb *goredis.Client) *PositionStore {
	return &PositionStore{rdb: rdb}
}

func positionKey(accountID, spaceID string) string {
	return fmt.Sprintf("position:%s:%s", spaceID, accountID)
}

// maxTxRetries: сколько раз повторять WATCH-транзакцию при конкурентной записи.
const maxTxRetries = 5

func (s *PositionStore) FindPosition(ctx context.Context, accountID, spaceID string) (*domain.Position, error) {
	return readPosition(ctx, s.rdb, accountID, spaceID)
}

// CreatePosition пишет клетку только если полной записи ещё нет, и возвращает то, что реально лежит в redis.
// Недописанный hash (одно из полей) перезаписывается целиком.
func (s *PositionStore) CreatePosition(ctx context.Context, accountID, spaceID string, x, y int) (*domain.Position, error) {
	key := positionKey(accountID, spaceID)
	var pos *domain.Position
	err := s.watch(ctx, key, func(tx *goredis.Tx) error {
		existing, err := readPosition(ctx, tx, accountID, spaceID)
		if err == nil {
			pos = existing
			return nil
		}
		if !errors.Is(err, domain.ErrPositionNotFound) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, "x", x, "y", y)
			return nil
		})
		pos = &domain.Position{AccountID: accountID, SpaceID: spaceID, X: x, Y: y}
		return err
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

func (s *PositionStore) UpdatePosition(ctx context.Context, accountID, spaceID string, x, y int) error {
	key := positionKey(accountID, spaceID)
	return s.watch(ctx, key, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrPositionNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, "x", x, "y", y)
			return nil
		})
		return err
	})
}

// watch выполняет fn под WATCH key и повторяет её, если ключ поменяли до EXEC.
func (s *PositionStore) watch(ctx context.Context, key string, fn func(*goredis.Tx) error) error {
	for range maxTxRetries {
		err := s.rdb.Watch(ctx, fn, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("position %s: %w", key, goredis.TxFailedErr)
}

func readPosition(ctx context.Context, c goredis.Cmdable, accountID, spaceID string) (*domain.Position, error) {
	vals, err := c.HMGet(ctx, positionKey(accountID, spaceID), "x", "y").Result()
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, domain.ErrPositionNotFound
	}

	x, err := toInt(vals[0])
	if err != nil {
		return nil, fmt.Errorf("position x: %w", err)
	}
	y, err := toInt(vals[1])
	if err != nil {
		return nil, fmt.Errorf("position y: %w", err)
	}
	return &domain.Position{AccountID: accountID, SpaceID: spaceID, X: x, Y: y}, nil
}

func toInt(v any) (int, error) {
	str, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected value type")
	}
	return strconv.Atoi(str)
}
