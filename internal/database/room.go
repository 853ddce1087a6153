// internal/database/room.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// RoomRepository stores room snapshots as JSONB rows keyed by room code.
type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Load fetches a room by code.
func (r *RoomRepository) Load(ctx context.Context, code models.RoomCode) (*game.Game, error) {
	var state []byte
	err := r.pool.QueryRow(ctx, `SELECT state FROM rooms WHERE code = $1`, code).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", game.ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return game.Unmarshal(state, nil)
}

// Create inserts a new room row, failing if the code is taken.
func (r *RoomRepository) Create(ctx context.Context, g *game.Game) error {
	state, err := game.Marshal(g)
	if err != nil {
		return err
	}
	q := `
	INSERT INTO rooms (code, phase, state)
	VALUES ($1, $2, $3)
	ON CONFLICT (code) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, g.Code(), g.Phase(), state)
		if err != nil {
			return fmt.Errorf("insert room %s: %w", g.Code(), err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", game.ErrRoomExists, g.Code())
		}
		return nil
	})
}

// Save replaces the stored state of an existing room.
func (r *RoomRepository) Save(ctx context.Context, g *game.Game) error {
	state, err := game.Marshal(g)
	if err != nil {
		return err
	}
	q := `
	UPDATE rooms
	SET phase = $2, state = $3, updated_at = NOW()
	WHERE code = $1
	`
	tag, err := r.pool.Exec(ctx, q, g.Code(), g.Phase(), state)
	if err != nil {
		return fmt.Errorf("save room %s: %w", g.Code(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", game.ErrRoomNotFound, g.Code())
	}
	return nil
}

func (r *RoomRepository) Delete(ctx context.Context, code models.RoomCode) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// List returns every stored room code in order.
func (r *RoomRepository) List(ctx context.Context) ([]models.RoomCode, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM rooms ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RoomCode, error) {
		var code string
		err := row.Scan(&code)
		return models.RoomCode(code), err
	})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return codes, nil
}
