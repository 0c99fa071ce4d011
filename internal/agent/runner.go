package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/retry"
	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// Seat is one claimed side of a game, local or remote.
type Seat interface {
	Snapshot(ctx context.Context) (reversidto.Snapshot, error)
	Move(ctx context.Context, x, y int) (reversidto.Snapshot, error)
}

// Events is a stream of committed mutations for the seat's game.
type Events interface {
	Next(ctx context.Context) (reversidto.Event, error)
}

const (
	defaultPoll       = time.Second
	minCooldownRetry  = 50 * time.Millisecond
	maxConsecutiveErr = 5
)

// Runner plays one seat until the game ends.
type Runner struct {
	seat     Seat
	events   Events
	color    reversi.Color
	strategy Strategy
	delay    time.Duration
	poll     time.Duration
	logger   *zap.Logger
}

type Option func(*Runner)

func WithStrategy(s Strategy) Option {
	return func(r *Runner) {
		if s != nil {
			r.strategy = s
		}
	}
}

// WithEvents makes the runner wait on a push stream instead of polling.
func WithEvents(ev Events) Option { return func(r *Runner) { r.events = ev } }

// WithMoveDelay pauses before each move so observers can follow the game.
func WithMoveDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.delay = d
		}
	}
}

// WithPollInterval sets the polling period used without a stream. A negative interval makes a
// failed stream end the run instead of falling back to polling.
func WithPollInterval(d time.Duration) Option { return func(r *Runner) { r.poll = d } }

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRunner(seat Seat, color reversi.Color, opts ...Option) *Runner {
	r := &Runner{
		seat:     seat,
		color:    color,
		strategy: Greedy{},
		poll:     defaultPoll,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run returns nil once the game is over, ctx.Err() on cancellation, and the stream error when
// the event stream ends and polling is disabled.
func (r *Runner) Run(ctx context.Context) error {
	if !r.color.Valid() {
		return session.ErrInvalidColor
	}
	side := session.SideOf(r.color)
	snap, err := r.seat.Snapshot(ctx)
	if err != nil {
		return err
	}
	failures := 0
	for {
		if snap.Terminal {
			r.logger.Debug("agent_done", zap.String("game_id", snap.SessionID), zap.String("side", string(side)), zap.String("winner", snap.Winner))
			return nil
		}
		if snap.Turn != side || len(snap.MovesFor(side)) == 0 {
			if snap, err = r.await(ctx, snap); err != nil {
				return err
			}
			continue
		}

		if err := retry.Sleep(ctx, r.delay); err != nil {
			return err
		}
		p, ok := r.strategy.Choose(session.BoardOf(snap), r.color)
		if !ok {
			return fmt.Errorf("strategy found no move for %s at revision %d", side, snap.Revision)
		}
		next, err := r.seat.Move(ctx, p.X, p.Y)
		switch {
		case err == nil:
			snap, failures = next, 0
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, session.ErrTooSoon):
			wait := minCooldownRetry
			var cd *session.CooldownError
			if errors.As(err, &cd) && cd.Remaining > wait {
				wait = cd.Remaining
			}
			r.logger.Debug("agent_cooldown", zap.String("game_id", snap.SessionID), zap.Duration("wait", wait))
			if err := retry.Sleep(ctx, wait); err != nil {
				return err
			}
		case errors.Is(err, session.ErrNotYourTurn), errors.Is(err, session.ErrIllegalMove):
			// stale snapshot; refresh below
		default:
			failures++
			if failures >= maxConsecutiveErr {
				return err
			}
			r.logger.Warn("agent_move_error", zap.String("game_id", snap.SessionID), zap.Int("attempt", failures), zap.Error(err))
			if err := retry.Sleep(ctx, retry.Backoff(failures)); err != nil {
				return err
			}
		}
		if snap, err = r.seat.Snapshot(ctx); err != nil {
			return err
		}
	}
}

// await blocks until a snapshot newer than cur is available.
func (r *Runner) await(ctx context.Context, cur reversidto.Snapshot) (reversidto.Snapshot, error) {
	for r.events != nil {
		ev, err := r.events.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return cur, ctx.Err()
			}
			if r.poll < 0 {
				return cur, fmt.Errorf("event stream: %w", err)
			}
			r.logger.Warn("agent_stream_lost", zap.String("game_id", cur.SessionID), zap.Error(err))
			r.events = nil
			break
		}
		if ev.Revision > cur.Revision {
			return ev.Snapshot, nil
		}
	}
	poll := r.poll
	if poll <= 0 {
		poll = defaultPoll
	}
	for {
		if err := retry.Sleep(ctx, poll); err != nil {
			return cur, err
		}
		next, err := r.seat.Snapshot(ctx)
		if err != nil {
			return cur, err
		}
		if next.Revision != cur.Revision {
			return next, nil
		}
	}
}
