package session

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// Session is one game. All mutations go through ClaimSeat and ApplyMove and are serialized by mu;
// readers take the read lock so they never observe a half-applied move.
type Session struct {
	mu sync.RWMutex

	id       string
	board    reversi.Board
	turn     reversi.Color
	tokens   map[reversi.Color]string
	terminal bool
	winner   reversi.Winner
	moveLog  []Move
	revision uint64

	lastMoveAt time.Time
	createdAt  time.Time
	updatedAt  time.Time

	cooldown time.Duration
	now      func() time.Time
	pub      Publisher
}

func New(id string, opts ...Option) *Session {
	s := &Session{
		id:     id,
		board:  reversi.NewBoard(),
		turn:   reversi.Black,
		tokens: make(map[reversi.Color]string, 2),
		now:    time.Now,
		pub:    nopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	s.updatedAt = s.createdAt
	// a custom board may already be finished
	if next, terminal, winner := reversi.NextTurn(&s.board, s.turn.Opponent()); terminal {
		s.terminal, s.winner = true, winner
	} else if !s.board.HasMove(s.turn) {
		s.turn = next
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Cooldown() time.Duration { return s.cooldown }

// ClaimSeat hands out the seat token for color. A seat is claimable exactly once.
func (s *Session) ClaimSeat(color reversi.Color) (string, error) {
	if !color.Valid() {
		return "", ErrInvalidColor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[color] != "" {
		return "", ErrSeatTaken
	}
	token := uuid.NewString()
	s.tokens[color] = token
	s.commit(reversidto.EventClaim)
	return token, nil
}

// ApplyMove validates and plays a move for color. Every rejection happens before the board is
// touched, so a failed call leaves the session exactly as it was.
func (s *Session) ApplyMove(x, y int, color reversi.Color, token string) (reversidto.Snapshot, error) {
	if !color.Valid() {
		return reversidto.Snapshot{}, ErrInvalidColor
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.tokens[color]
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return reversidto.Snapshot{}, ErrUnauthorized
	}
	if s.terminal || color != s.turn {
		return reversidto.Snapshot{}, ErrNotYourTurn
	}
	now := s.now()
	if s.cooldown > 0 && !s.lastMoveAt.IsZero() {
		if wait := s.cooldown - now.Sub(s.lastMoveAt); wait > 0 {
			return reversidto.Snapshot{}, &CooldownError{Remaining: wait}
		}
	}
	flips, err := s.board.Apply(x, y, color)
	if err != nil {
		return reversidto.Snapshot{}, ErrIllegalMove
	}

	s.moveLog = append(s.moveLog, Move{X: x, Y: y, Color: color, Flips: flips, At: now})
	s.lastMoveAt = now
	next, terminal, winner := reversi.NextTurn(&s.board, color)
	s.turn = next
	if terminal {
		s.terminal = true
		s.winner = winner
	}
	return s.commit(reversidto.EventMove), nil
}

// commit bumps the revision and publishes while the write lock is held, so subscribers see
// mutations in the same order callers do. Caller holds s.mu.
func (s *Session) commit(kind reversidto.EventType) reversidto.Snapshot {
	s.revision++
	s.updatedAt = s.now()
	snap := s.snapshotLocked()
	s.pub.Publish(s.id, reversidto.Event{
		Version:   reversidto.SchemaVersion,
		Type:      kind,
		SessionID: s.id,
		Revision:  s.revision,
		Snapshot:  snap,
		At:        s.updatedAt,
	})
	return snap
}

func (s *Session) Snapshot() reversidto.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// State reports the lifecycle stage.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.terminal:
		return StateTerminal
	case len(s.tokens) == 0:
		return StateForming
	default:
		return StateActive
	}
}

// MoveLog returns a copy of the accepted moves, oldest first.
func (s *Session) MoveLog() []Move {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Move(nil), s.moveLog...)
}

func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastActivity is the time of the last committed mutation (or creation).
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) snapshotLocked() reversidto.Snapshot {
	score := s.board.Score()
	snap := reversidto.Snapshot{
		Version:   reversidto.SchemaVersion,
		SessionID: s.id,
		Revision:  s.revision,
		Turn:      SideOf(s.turn),
		LegalMoves: reversidto.LegalMoves{
			Black: coords(s.board.LegalMoves(reversi.Black)),
			White: coords(s.board.LegalMoves(reversi.White)),
		},
		Scores:     reversidto.Score{Black: score.Black, White: score.White},
		Terminal:   s.terminal,
		Seats:      reversidto.Seats{Black: s.seatStatus(reversi.Black), White: s.seatStatus(reversi.White)},
		MoveCount:  len(s.moveLog),
		CooldownMs: s.cooldown.Milliseconds(),
		UpdatedAt:  s.updatedAt,
	}
	if s.terminal {
		snap.Winner = s.winner.String()
	}
	grid := s.board.Grid()
	for y := range grid {
		for x, c := range grid[y] {
			snap.Board[y][x] = SideOf(c).Cell()
		}
	}
	if n := len(s.moveLog); n > 0 {
		last := s.moveLog[n-1]
		snap.LastMove = &reversidto.Move{X: last.X, Y: last.Y, Side: SideOf(last.Color), At: last.At, Flips: last.Flips}
	}
	return snap
}

func (s *Session) seatStatus(c reversi.Color) reversidto.SeatStatus {
	if s.tokens[c] != "" {
		return reversidto.SeatFilled
	}
	return reversidto.SeatOpen
}

// SideOf converts an engine color to its wire form.
func SideOf(c reversi.Color) reversidto.Side {
	switch c {
	case reversi.Black:
		return reversidto.SideBlack
	case reversi.White:
		return reversidto.SideWhite
	default:
		return reversidto.SideNone
	}
}

// ColorOf converts a wire side to an engine color; unknown sides map to Empty.
func ColorOf(s reversidto.Side) reversi.Color {
	switch s {
	case reversidto.SideBlack:
		return reversi.Black
	case reversidto.SideWhite:
		return reversi.White
	default:
		return reversi.Empty
	}
}

// BoardOf rebuilds the engine board carried by a snapshot.
func BoardOf(snap reversidto.Snapshot) reversi.Board {
	var g [reversi.Size][reversi.Size]reversi.Color
	for y := range snap.Board {
		for x, v := range snap.Board[y] {
			switch v {
			case reversidto.CellBlack:
				g[y][x] = reversi.Black
			case reversidto.CellWhite:
				g[y][x] = reversi.White
			}
		}
	}
	return reversi.FromGrid(g)
}

func coords(ps []reversi.Point) []reversidto.Coord {
	out := make([]reversidto.Coord, len(ps))
	for i, p := range ps {
		out[i] = reversidto.Coord{X: p.X, Y: p.Y}
	}
	return out
}
