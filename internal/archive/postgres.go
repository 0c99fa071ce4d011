package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// Schema creates the results table. Repository.Migrate runs it.
const Schema = `CREATE TABLE IF NOT EXISTS reversi_games (
    game_id     TEXT PRIMARY KEY,
    winner      TEXT NOT NULL,
    black_score INTEGER NOT NULL,
    white_score INTEGER NOT NULL,
    move_count  INTEGER NOT NULL,
    moves       JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
)`

const upsertResult = `INSERT INTO reversi_games (
    game_id, winner, black_score, white_score, move_count, moves,
    started_at, ended_at, duration_ms
  ) VALUES (
    $1,$2,$3,$4,$5,$6,$7,$8,$9
  ) ON CONFLICT (game_id) DO UPDATE SET
    winner=EXCLUDED.winner,
    black_score=EXCLUDED.black_score,
    white_score=EXCLUDED.white_score,
    move_count=EXCLUDED.move_count,
    moves=EXCLUDED.moves,
    started_at=EXCLUDED.started_at,
    ended_at=EXCLUDED.ended_at,
    duration_ms=EXCLUDED.duration_ms`

// Repository persists finished games to Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// NewRepositoryFromDB wraps an existing handle.
func NewRepositoryFromDB(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *Repository) Archive(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	args, err := resultArgs(rec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertResult, args...); err != nil {
		return fmt.Errorf("upsert result %s: %w", rec.SessionID, err)
	}
	return nil
}

func resultArgs(rec Record) ([]any, error) {
	moves := rec.Moves
	if moves == nil {
		moves = []reversidto.Move{}
	}
	raw, err := json.Marshal(moves)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.SessionID, rec.Winner,
		rec.Score.Black, rec.Score.White, len(rec.Moves), string(raw),
		rec.StartedAt.UTC(), rec.EndedAt.UTC(), rec.Duration().Milliseconds(),
	}, nil
}
