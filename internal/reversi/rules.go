package reversi

// Winner is the result of a finished game.
type Winner uint8

const (
	WinnerUnset Winner = iota
	WinnerBlack
	WinnerWhite
	WinnerDraw
)

func (w Winner) String() string {
	switch w {
	case WinnerBlack:
		return "black"
	case WinnerWhite:
		return "white"
	case WinnerDraw:
		return "draw"
	default:
		return ""
	}
}

// N, NE, E, SE, S, SW, W, NW
var directions = [8]Point{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// runLength returns how many opponent discs lie between (x, y) and the next disc of color c in
// direction d, or 0 when the run is empty or not closed by c.
func (b *Board) runLength(x, y int, c Color, d Point) int {
	opp := c.Opponent()
	n := 0
	p := Point{X: x + d.X, Y: y + d.Y}
	for p.InBounds() && b.cells[p.Y][p.X] == opp {
		n++
		p.X += d.X
		p.Y += d.Y
	}
	if n == 0 || !p.InBounds() || b.cells[p.Y][p.X] != c {
		return 0
	}
	return n
}

// IsLegal reports whether c may place a disc at (x, y).
func (b *Board) IsLegal(x, y int, c Color) bool {
	if !c.Valid() || !(Point{X: x, Y: y}).InBounds() || b.cells[y][x] != Empty {
		return false
	}
	for _, d := range directions {
		if b.runLength(x, y, c, d) > 0 {
			return true
		}
	}
	return false
}

// LegalMoves lists every legal destination for c in row-major order.
func (b *Board) LegalMoves(c Color) []Point {
	moves := make([]Point, 0, 16)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if b.IsLegal(x, y, c) {
				moves = append(moves, Point{X: x, Y: y})
			}
		}
	}
	return moves
}

// HasMove is LegalMoves(c) != empty without allocating.
func (b *Board) HasMove(c Color) bool {
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if b.IsLegal(x, y, c) {
				return true
			}
		}
	}
	return false
}

// Flips returns the number of discs a move at (x, y) would capture; 0 when illegal.
func (b *Board) Flips(x, y int, c Color) int {
	if !c.Valid() || !(Point{X: x, Y: y}).InBounds() || b.cells[y][x] != Empty {
		return 0
	}
	total := 0
	for _, d := range directions {
		total += b.runLength(x, y, c, d)
	}
	return total
}

// Apply places c at (x, y) and flips every flanked run. It returns ErrIllegalMove and leaves the
// board untouched when the move is not legal.
func (b *Board) Apply(x, y int, c Color) (int, error) {
	if !b.IsLegal(x, y, c) {
		return 0, ErrIllegalMove
	}
	flipped := 0
	for _, d := range directions {
		n := b.runLength(x, y, c, d)
		for i := 1; i <= n; i++ {
			b.cells[y+d.Y*i][x+d.X*i] = c
		}
		flipped += n
	}
	b.cells[y][x] = c
	return flipped, nil
}

// NextTurn decides who moves after current: the opponent when it has a move, otherwise current
// again (forced pass), otherwise the game is over and the winner is decided by disc count.
func NextTurn(b *Board, current Color) (next Color, terminal bool, winner Winner) {
	opp := current.Opponent()
	if b.HasMove(opp) {
		return opp, false, WinnerUnset
	}
	if b.HasMove(current) {
		return current, false, WinnerUnset
	}
	return current, true, Decide(b.Score())
}

// Decide maps a final score to the winner.
func Decide(s Score) Winner {
	switch {
	case s.Black > s.White:
		return WinnerBlack
	case s.White > s.Black:
		return WinnerWhite
	default:
		return WinnerDraw
	}
}
