package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

func TestGreedyPicksMostFlips(t *testing.T) {
	b, err := reversi.ParseBoard(
		"........",
		"........",
		"........",
		"...BWWW.",
		"........",
		"....W...",
		"....B...",
		"........",
	)
	if err != nil {
		t.Fatalf("ParseBoard: %v", err)
	}
	// (7,3) flips three, (4,4) flips one
	p, ok := Greedy{}.Choose(b, reversi.Black)
	if !ok || p != (reversi.Point{X: 7, Y: 3}) {
		t.Fatalf("Choose = %v, %v", p, ok)
	}
}

func TestGreedyTiesGoToFirstRowMajor(t *testing.T) {
	b := reversi.NewBoard()
	// every opening move flips one; (3,2) comes first in row-major order
	p, ok := Greedy{}.Choose(b, reversi.Black)
	if !ok || p != (reversi.Point{X: 3, Y: 2}) {
		t.Fatalf("Choose = %v, %v", p, ok)
	}
}

func TestGreedyNoMove(t *testing.T) {
	var b reversi.Board
	if _, ok := (Greedy{}).Choose(b, reversi.White); ok {
		t.Fatalf("move found on empty board")
	}
}

type localSeat struct {
	s     *session.Session
	color reversi.Color
	token string
}

func (l *localSeat) Snapshot(context.Context) (reversidto.Snapshot, error) {
	return l.s.Snapshot(), nil
}

func (l *localSeat) Move(_ context.Context, x, y int) (reversidto.Snapshot, error) {
	return l.s.ApplyMove(x, y, l.color, l.token)
}

func seat(t *testing.T, s *session.Session, c reversi.Color) *localSeat {
	t.Helper()
	tok, err := s.ClaimSeat(c)
	if err != nil {
		t.Fatalf("claim %v: %v", c, err)
	}
	return &localSeat{s: s, color: c, token: tok}
}

func TestTwoRunnersFinishAGame(t *testing.T) {
	s := session.New("g1")
	black, white := seat(t, s, reversi.Black), seat(t, s, reversi.White)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, st := range []*localSeat{black, white} {
		wg.Add(1)
		go func(i int, st *localSeat) {
			defer wg.Done()
			errs[i] = NewRunner(st, st.color, WithPollInterval(time.Millisecond)).Run(ctx)
		}(i, st)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("runner %d: %v", i, err)
		}
	}
	snap := s.Snapshot()
	if !snap.Terminal || snap.Winner == "" {
		t.Fatalf("game not finished: %+v", snap)
	}
	if snap.MoveCount == 0 {
		t.Fatalf("no moves played")
	}
}

type scriptedSeat struct {
	mu    sync.Mutex
	snap  reversidto.Snapshot
	fails []error
	moves int
}

func (f *scriptedSeat) Snapshot(context.Context) (reversidto.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, nil
}

func (f *scriptedSeat) Move(_ context.Context, x, y int) (reversidto.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fails) > 0 {
		err := f.fails[0]
		f.fails = f.fails[1:]
		return reversidto.Snapshot{}, err
	}
	f.moves++
	f.snap.Revision++
	f.snap.Terminal = true
	f.snap.Winner = "black"
	return f.snap, nil
}

func TestRunnerRetriesAfterCooldown(t *testing.T) {
	s := session.New("g1")
	fs := &scriptedSeat{
		snap:  s.Snapshot(),
		fails: []error{&session.CooldownError{Remaining: 20 * time.Millisecond}, session.ErrNotYourTurn},
	}
	start := time.Now()
	if err := NewRunner(fs, reversi.Black).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fs.moves != 1 {
		t.Fatalf("moves = %d", fs.moves)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("cooldown not honoured")
	}
}

func TestRunnerGivesUpAfterRepeatedFailures(t *testing.T) {
	boom := errors.New("boom")
	fs := &scriptedSeat{snap: session.New("g1").Snapshot()}
	for i := 0; i < maxConsecutiveErr; i++ {
		fs.fails = append(fs.fails, boom)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := NewRunner(fs, reversi.Black).Run(ctx); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

type chanEvents chan reversidto.Event

func (c chanEvents) Next(ctx context.Context) (reversidto.Event, error) {
	select {
	case <-ctx.Done():
		return reversidto.Event{}, ctx.Err()
	case ev, ok := <-c:
		if !ok {
			return reversidto.Event{}, errors.New("closed")
		}
		return ev, nil
	}
}

func TestRunnerWaitsOnEventsAndSkipsStaleRevisions(t *testing.T) {
	s := session.New("g1")
	start := s.Snapshot()
	start.Turn = reversidto.SideWhite
	fs := &scriptedSeat{snap: start}

	events := make(chanEvents, 2)
	stale := start
	events <- reversidto.Event{Revision: start.Revision, Snapshot: stale}
	mine := s.Snapshot()
	mine.Revision = start.Revision + 1
	events <- reversidto.Event{Revision: mine.Revision, Snapshot: mine}

	if err := NewRunner(fs, reversi.Black, WithEvents(events), WithPollInterval(-1)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fs.moves != 1 {
		t.Fatalf("moves = %d", fs.moves)
	}
}

func TestRunnerStreamEndWithoutFallback(t *testing.T) {
	start := session.New("g1").Snapshot()
	start.Turn = reversidto.SideWhite
	events := make(chanEvents)
	close(events)
	err := NewRunner(&scriptedSeat{snap: start}, reversi.Black, WithEvents(events), WithPollInterval(-1)).Run(context.Background())
	if err == nil {
		t.Fatalf("Run returned nil after stream end")
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	start := session.New("g1").Snapshot()
	start.Turn = reversidto.SideWhite
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(&scriptedSeat{snap: start}, reversi.Black, WithPollInterval(time.Millisecond)).Run(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop")
	}
}
