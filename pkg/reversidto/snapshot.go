package reversidto

import "time"

// SchemaVersion is bumped whenever Snapshot or Event change shape.
const SchemaVersion = 1

// Board cell codes.
const (
	CellEmpty = 0
	CellBlack = 1
	CellWhite = 2
)

type SeatStatus string

const (
	SeatOpen   SeatStatus = "open"
	SeatFilled SeatStatus = "filled"
)

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

type Seats struct {
	Black SeatStatus `json:"black"`
	White SeatStatus `json:"white"`
}

type LegalMoves struct {
	Black []Coord `json:"black"`
	White []Coord `json:"white"`
}

// Move is one accepted placement.
type Move struct {
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Side  Side      `json:"player"`
	At    time.Time `json:"at"`
	Flips int       `json:"flips"`
}

// Snapshot is the full observable state of a session. It is both the move response and the
// payload of every published event.
type Snapshot struct {
	Version    int        `json:"version"`
	SessionID  string     `json:"game_id"`
	Revision   uint64     `json:"revision"`
	Board      [8][8]int  `json:"board"`
	Turn       Side       `json:"current_turn"`
	LegalMoves LegalMoves `json:"valid_moves"`
	Scores     Score      `json:"scores"`
	Terminal   bool       `json:"is_over"`
	Winner     string     `json:"winner,omitempty"`
	Seats      Seats      `json:"slots"`
	MoveCount  int        `json:"move_count"`
	LastMove   *Move      `json:"last_move,omitempty"`
	CooldownMs int64      `json:"cooldown_ms"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MovesFor returns the legal moves of side.
func (s *Snapshot) MovesFor(side Side) []Coord {
	switch side {
	case SideBlack:
		return s.LegalMoves.Black
	case SideWhite:
		return s.LegalMoves.White
	default:
		return nil
	}
}
