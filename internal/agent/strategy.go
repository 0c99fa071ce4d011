package agent

import (
	"github.com/park285/reversi-arena/internal/reversi"
)

// Strategy picks a move for color on b. ok is false when color has no legal move.
type Strategy interface {
	Choose(b reversi.Board, color reversi.Color) (p reversi.Point, ok bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(b reversi.Board, color reversi.Color) (reversi.Point, bool)

func (f StrategyFunc) Choose(b reversi.Board, color reversi.Color) (reversi.Point, bool) {
	return f(b, color)
}

// Greedy maximises discs flipped by the next move. Ties go to the first move in row-major order.
type Greedy struct{}

func (Greedy) Choose(b reversi.Board, color reversi.Color) (reversi.Point, bool) {
	best, bestFlips := reversi.Point{}, 0
	for _, p := range b.LegalMoves(color) {
		if n := b.Flips(p.X, p.Y, color); n > bestFlips {
			best, bestFlips = p, n
		}
	}
	return best, bestFlips > 0
}
