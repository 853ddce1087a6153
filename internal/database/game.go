// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// EventSink persists drained room events and the match records they carry.
type EventSink struct {
	pool *pgxpool.Pool
}

func NewEventSink(pool *pgxpool.Pool) *EventSink {
	return &EventSink{pool: pool}
}

// StoreEvents writes a batch of events in one transaction. Archived matches
// are also written to match_history.
func (s *EventSink) StoreEvents(ctx context.Context, events []models.RoomEvent) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			if err := insertRoomEventTx(ctx, tx, ev); err != nil {
				return fmt.Errorf("insertRoomEventTx: %w", err)
			}
			if ev.Type != models.EventMatchArchived {
				continue
			}
			var rec game.MatchRecord
			if err := json.Unmarshal(ev.Payload, &rec); err != nil {
				return fmt.Errorf("decode match record %s: %w", ev.ID, err)
			}
			if err := ArchiveMatch(ctx, tx, ev.Room, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx store events: %w", err)
	}
	return nil
}

func insertRoomEventTx(ctx context.Context, tx pgx.Tx, ev models.RoomEvent) error {
	q := `
		INSERT INTO room_events (
			id, room_code, event_type, action, player_id, phase, match, payload, created_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	var payload []byte
	if len(ev.Payload) > 0 {
		payload = ev.Payload
	}
	_, err := tx.Exec(ctx, q,
		ev.ID, ev.Room, ev.Type, ev.Action, ev.PlayerID, ev.Phase, ev.Match, payload, ev.Timestamp,
	)
	return err
}

// ArchiveMatch inserts a completed match into match_history. Re-archiving the same record is a no-op.
func ArchiveMatch(ctx context.Context, tx pgx.Tx, code models.RoomCode, rec game.MatchRecord) error {
	ranking, err := json.Marshal(rec.Ranking)
	if err != nil {
		return err
	}
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return err
	}
	var revolution []byte
	if rec.Revolution != nil {
		if revolution, err = json.Marshal(rec.Revolution); err != nil {
			return err
		}
	}
	q := `
		INSERT INTO match_history (id, room_code, match, ranking, stats, revolution, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, q, rec.ID, code, rec.Match, ranking, stats, revolution, rec.EndedAt); err != nil {
		return fmt.Errorf("archive match %s: %w", rec.ID, err)
	}
	return nil
}

// MatchHistory lists a room's archived matches from the sink's pool.
func (s *EventSink) MatchHistory(ctx context.Context, code models.RoomCode) ([]game.MatchRecord, error) {
	return ListMatchHistory(ctx, s.pool, code)
}

// ListMatchHistory returns a room's archived matches, oldest first.
func ListMatchHistory(ctx context.Context, pool *pgxpool.Pool, code models.RoomCode) ([]game.MatchRecord, error) {
	q := `
	SELECT id, match, ranking, stats, revolution, ended_at
	FROM match_history
	WHERE room_code = $1
	ORDER BY match
	`
	rows, err := pool.Query(ctx, q, code)
	if err != nil {
		return nil, fmt.Errorf("list match history: %w", err)
	}
	defer rows.Close()

	var out []game.MatchRecord
	for rows.Next() {
		var (
			rec                        game.MatchRecord
			ranking, stats, revolution []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Match, &ranking, &stats, &revolution, &rec.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ranking, &rec.Ranking); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stats, &rec.Stats); err != nil {
			return nil, err
		}
		if len(revolution) > 0 {
			rec.Revolution = &game.RevolutionOutcome{}
			if err := json.Unmarshal(revolution, rec.Revolution); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
