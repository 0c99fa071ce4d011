package arenaclient

import (
	"context"

	"github.com/park285/reversi-arena/pkg/reversidto"
)

// Seat is a claimed side of a remote game. It satisfies agent.Seat.
type Seat struct {
	client *Client
	gameID string
	side   reversidto.Side
	token  string
}

func NewSeat(c *Client, gameID string, side reversidto.Side, token string) *Seat {
	return &Seat{client: c, gameID: gameID, side: side, token: token}
}

func (s *Seat) GameID() string { return s.gameID }

func (s *Seat) Side() reversidto.Side { return s.side }

func (s *Seat) Snapshot(ctx context.Context) (reversidto.Snapshot, error) {
	return s.client.State(ctx, s.gameID)
}

func (s *Seat) Move(ctx context.Context, x, y int) (reversidto.Snapshot, error) {
	return s.client.Move(ctx, s.gameID, x, y, s.side, s.token)
}
