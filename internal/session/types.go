package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// State is the coarse lifecycle of a session.
type State string

const (
	StateForming  State = "FORMING"
	StateActive   State = "ACTIVE"
	StateTerminal State = "TERMINAL"
)

var (
	ErrSeatTaken    = errors.New("seat already claimed")
	ErrUnauthorized = errors.New("seat token mismatch")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrTooSoon      = errors.New("move cooldown not elapsed")
	ErrIllegalMove  = reversi.ErrIllegalMove
	ErrInvalidColor = errors.New("invalid seat color")
)

// CooldownError reports how long a mover must still wait. It matches ErrTooSoon.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: retry in %v", ErrTooSoon, e.Remaining)
}

func (e *CooldownError) Unwrap() error { return ErrTooSoon }

// Move is one entry of the append-only move log.
type Move struct {
	X     int
	Y     int
	Color reversi.Color
	Flips int
	At    time.Time
}

// Publisher receives every committed mutation. Publish must not block.
type Publisher interface {
	Publish(sessionID string, ev reversidto.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, reversidto.Event) {}

// Option configures a Session at construction.
type Option func(*Session)

// WithCooldown sets the minimum interval between accepted moves.
func WithCooldown(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithBoard starts the session from a custom position with the given side to move.
func WithBoard(b reversi.Board, turn reversi.Color) Option {
	return func(s *Session) {
		s.board = b
		if turn.Valid() {
			s.turn = turn
		}
	}
}
