package reversi

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the board edge length.
const Size = 8

// Cells is the total number of squares on the board.
const Cells = Size * Size

// Color identifies a disc (or the absence of one).
type Color uint8

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the other seat color. Empty maps to Empty.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// Valid reports whether c is a seat color.
func (c Color) Valid() bool { return c == Black || c == White }

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// ParseColor accepts "black"/"b"/"1" and "white"/"w"/"2".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black", "b", "1":
		return Black, nil
	case "white", "w", "2":
		return White, nil
	default:
		return Empty, fmt.Errorf("unknown color %q", s)
	}
}

// Point is a board coordinate; X is the column and Y the row.
type Point struct {
	X int
	Y int
}

// InBounds reports whether p lies on the board.
func (p Point) InBounds() bool { return p.X >= 0 && p.X < Size && p.Y >= 0 && p.Y < Size }

// Score counts discs per color; Black+White+Empty is always Cells.
type Score struct {
	Black int
	White int
	Empty int
}

var ErrIllegalMove = errors.New("illegal move")

// Board is an 8x8 grid indexed [y][x]. The zero value is an empty board; use NewBoard for the
// opening position. Board is a value type: assignment copies it.
type Board struct {
	cells [Size][Size]Color
}

// NewBoard returns the opening position: white on the main diagonal of the center, black on the
// anti-diagonal.
func NewBoard() Board {
	var b Board
	b.cells[3][3] = White
	b.cells[3][4] = Black
	b.cells[4][3] = Black
	b.cells[4][4] = White
	return b
}

// ParseBoard builds a board from Size rows of '.', 'B' and 'W'. Whitespace inside a row is ignored.
func ParseBoard(rows ...string) (Board, error) {
	var b Board
	if len(rows) != Size {
		return b, fmt.Errorf("want %d rows, got %d", Size, len(rows))
	}
	for y, raw := range rows {
		row := strings.Join(strings.Fields(raw), "")
		if len(row) != Size {
			return b, fmt.Errorf("row %d: want %d cells, got %d", y, Size, len(row))
		}
		for x, ch := range row {
			switch ch {
			case '.':
			case 'B', 'b':
				b.cells[y][x] = Black
			case 'W', 'w':
				b.cells[y][x] = White
			default:
				return b, fmt.Errorf("row %d col %d: unexpected %q", y, x, ch)
			}
		}
	}
	return b, nil
}

// At returns the color at (x, y); off-board coordinates read as Empty.
func (b *Board) At(x, y int) Color {
	if !(Point{X: x, Y: y}).InBounds() {
		return Empty
	}
	return b.cells[y][x]
}

// FromGrid builds a board from cells indexed [y][x]. Unknown values read as Empty.
func FromGrid(g [Size][Size]Color) Board {
	var b Board
	for y := range g {
		for x, c := range g[y] {
			if c.Valid() {
				b.cells[y][x] = c
			}
		}
	}
	return b
}

// Grid returns a copy of the cells, indexed [y][x].
func (b *Board) Grid() [Size][Size]Color { return b.cells }

func (b *Board) Score() Score {
	var s Score
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			switch b.cells[y][x] {
			case Black:
				s.Black++
			case White:
				s.White++
			default:
				s.Empty++
			}
		}
	}
	return s
}

func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			switch b.cells[y][x] {
			case Black:
				sb.WriteByte('B')
			case White:
				sb.WriteByte('W')
			default:
				sb.WriteByte('.')
			}
		}
		if y < Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
