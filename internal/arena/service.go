package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/archive"
	"github.com/park285/reversi-arena/internal/hub"
	"github.com/park285/reversi-arena/internal/registry"
	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

var (
	ErrClosed = errors.New("arena closed")
	// ErrInvalidSettings rejects a create request, e.g. a negative cooldown.
	ErrInvalidSettings = errors.New("invalid game settings")
)

const archiveTimeout = 10 * time.Second

// Settings configure a new game.
type Settings struct {
	TurnCooldown time.Duration
	BlackIsHuman bool
	WhiteIsHuman bool
}

// DefaultSettings seats two humans with no cooldown.
func DefaultSettings() Settings { return Settings{BlackIsHuman: true, WhiteIsHuman: true} }

// Service is the boundary every transport talks to. Sessions publish through it to the hub;
// finished games are handed to the archiver.
type Service struct {
	reg        *registry.Registry
	hub        *hub.Hub
	archiver   archive.Archiver
	agentDelay time.Duration
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

type Option func(*Service)

func WithArchiver(a archive.Archiver) Option { return func(s *Service) { s.archiver = a } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAgentDelay pauses in-process agents before each move.
func WithAgentDelay(d time.Duration) Option { return func(s *Service) { s.agentDelay = d } }

func New(reg *registry.Registry, h *hub.Hub, opts ...Option) *Service {
	s := &Service{reg: reg, hub: h, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// CreateSession opens a game and starts an agent for every seat that is not human. Agents start
// only once every seat they play is claimed; otherwise the game is removed.
func (s *Service) CreateSession(ctx context.Context, st Settings) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if st.TurnCooldown < 0 {
		return "", fmt.Errorf("%w: negative turn cooldown", ErrInvalidSettings)
	}
	var agentSeats []reversi.Color
	if !st.BlackIsHuman {
		agentSeats = append(agentSeats, reversi.Black)
	}
	if !st.WhiteIsHuman {
		agentSeats = append(agentSeats, reversi.White)
	}
	// One task for this call plus one per agent, reserved together so Close cannot land between them.
	if !s.beginTasks(1 + len(agentSeats)) {
		return "", ErrClosed
	}
	defer s.wg.Done()

	sess := s.reg.Create(session.WithPublisher(s), session.WithCooldown(st.TurnCooldown))
	s.logger.Info("session_create",
		zap.String("game_id", sess.ID()),
		zap.Duration("cooldown", st.TurnCooldown),
		zap.Bool("black_human", st.BlackIsHuman),
		zap.Bool("white_human", st.WhiteIsHuman),
	)
	runs := make([]*agentRun, 0, len(agentSeats))
	for _, color := range agentSeats {
		run, err := s.prepareAgent(sess, color)
		if err != nil {
			for _, r := range runs {
				r.sub.Close()
			}
			s.wg.Add(-len(agentSeats))
			s.reg.Remove(sess.ID())
			s.logger.Warn("session_create_error", zap.String("game_id", sess.ID()), zap.Error(err))
			return "", err
		}
		runs = append(runs, run)
	}
	for _, r := range runs {
		s.runAgent(r)
	}
	return sess.ID(), nil
}

func (s *Service) ClaimSeat(ctx context.Context, id string, color reversi.Color) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sess, err := s.reg.Get(id)
	if err != nil {
		return "", err
	}
	tok, err := sess.ClaimSeat(color)
	if err != nil {
		return "", err
	}
	s.logger.Info("seat_claim", zap.String("game_id", id), zap.String("side", color.String()))
	return tok, nil
}

func (s *Service) Snapshot(ctx context.Context, id string) (reversidto.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return reversidto.Snapshot{}, err
	}
	sess, err := s.reg.Get(id)
	if err != nil {
		return reversidto.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) SubmitMove(ctx context.Context, id string, x, y int, color reversi.Color, token string) (reversidto.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return reversidto.Snapshot{}, err
	}
	sess, err := s.reg.Get(id)
	if err != nil {
		return reversidto.Snapshot{}, err
	}
	snap, err := sess.ApplyMove(x, y, color, token)
	if err != nil {
		return reversidto.Snapshot{}, err
	}
	s.logger.Debug("move_accept",
		zap.String("game_id", id),
		zap.String("side", color.String()),
		zap.Int("x", x), zap.Int("y", y),
		zap.Uint64("revision", snap.Revision),
	)
	return snap, nil
}

// Subscribe returns a stream of events committed after the call. The caller must Close it.
func (s *Service) Subscribe(ctx context.Context, id string) (*hub.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.reg.Get(id); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(id), nil
}

// Publish implements session.Publisher. It runs under the session lock and must not block.
func (s *Service) Publish(sessionID string, ev reversidto.Event) {
	s.hub.Publish(sessionID, ev)
	if ev.Type == reversidto.EventMove && ev.Snapshot.Terminal {
		s.logger.Info("game_finish",
			zap.String("game_id", sessionID),
			zap.String("winner", ev.Snapshot.Winner),
			zap.Int("black", ev.Snapshot.Scores.Black),
			zap.Int("white", ev.Snapshot.Scores.White),
		)
		if s.archiver != nil && s.beginTask() {
			go func() {
				defer s.wg.Done()
				s.archiveSession(sessionID)
			}()
		}
	}
}

func (s *Service) archiveSession(id string) {
	sess, err := s.reg.Get(id)
	if err != nil {
		s.logger.Warn("archive_skip", zap.String("game_id", id), zap.Error(err))
		return
	}
	rec := RecordOf(sess)
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := s.archiver.Archive(ctx, rec); err != nil {
		s.logger.Error("archive_error", zap.String("game_id", id), zap.Error(err))
		return
	}
	s.logger.Info("archive_ok", zap.String("game_id", id), zap.Int("moves", len(rec.Moves)))
}

// RecordOf exports a session's history.
func RecordOf(sess *session.Session) archive.Record {
	snap := sess.Snapshot()
	log := sess.MoveLog()
	moves := make([]reversidto.Move, len(log))
	for i, m := range log {
		moves[i] = reversidto.Move{X: m.X, Y: m.Y, Side: session.SideOf(m.Color), At: m.At, Flips: m.Flips}
	}
	return archive.Record{
		SessionID: sess.ID(),
		Winner:    snap.Winner,
		Score:     snap.Scores,
		Moves:     moves,
		StartedAt: sess.CreatedAt(),
		EndedAt:   snap.UpdatedAt,
	}
}

// Close stops agents and waits for pending archive writes.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Service) beginTask() bool { return s.beginTasks(1) }

func (s *Service) beginTasks(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(n)
	return true
}
