package archive

import (
	"context"
	"errors"
	"time"

	"github.com/park285/reversi-arena/pkg/reversidto"
)

var ErrNotFinished = errors.New("game is not finished")

// Record is the exported history of one finished game.
type Record struct {
	SessionID string            `json:"game_id"`
	Winner    string            `json:"winner"`
	Score     reversidto.Score  `json:"score"`
	Moves     []reversidto.Move `json:"moves"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
}

// Duration is EndedAt-StartedAt, never negative.
func (r Record) Duration() time.Duration {
	d := r.EndedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (r Record) validate() error {
	if r.SessionID == "" {
		return errors.New("record without game id")
	}
	if r.Winner == "" {
		return ErrNotFinished
	}
	return nil
}

// Archiver stores finished games.
type Archiver interface {
	Archive(ctx context.Context, rec Record) error
}

type multi []Archiver

// Multi archives to every non-nil archiver and joins their errors.
func Multi(archivers ...Archiver) Archiver {
	var m multi
	for _, a := range archivers {
		if a != nil {
			m = append(m, a)
		}
	}
	return m
}

func (m multi) Archive(ctx context.Context, rec Record) error {
	var errs []error
	for _, a := range m {
		if err := a.Archive(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
