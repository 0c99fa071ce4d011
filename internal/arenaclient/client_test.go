package arenaclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/reversi-arena/internal/agent"
	"github.com/park285/reversi-arena/internal/arena"
	"github.com/park285/reversi-arena/internal/httpapi"
	"github.com/park285/reversi-arena/internal/hub"
	"github.com/park285/reversi-arena/internal/registry"
	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

func newArena(t *testing.T) *httptest.Server {
	t.Helper()
	h := hub.New()
	reg := registry.New(registry.WithEvictHook(func(id string) { h.CloseSession(id) }))
	svc := arena.New(reg, h)
	t.Cleanup(svc.Close)
	ts := httptest.NewServer(httpapi.New(svc).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func ptr[T any](v T) *T { return &v }

func TestClientGameFlowAndErrors(t *testing.T) {
	ts := newArena(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	id, err := c.CreateGame(ctx, reversidto.CreateRequest{TurnCooldown: ptr(30.0)})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	black, err := c.Claim(ctx, id, reversidto.SideBlack)
	if err != nil {
		t.Fatalf("Claim black: %v", err)
	}
	white, err := c.Claim(ctx, id, reversidto.SideWhite)
	if err != nil {
		t.Fatalf("Claim white: %v", err)
	}
	if black.Token == "" || white.Player != reversidto.SideWhite {
		t.Fatalf("claims = %+v %+v", black, white)
	}

	if _, err := c.Claim(ctx, id, reversidto.SideBlack); !errors.Is(err, session.ErrSeatTaken) {
		t.Fatalf("second claim err = %v", err)
	}
	if _, err := c.Move(ctx, id, 2, 2, reversidto.SideWhite, white.Token); !errors.Is(err, session.ErrNotYourTurn) {
		t.Fatalf("out of turn err = %v", err)
	}
	if _, err := c.Move(ctx, id, 0, 0, reversidto.SideBlack, black.Token); !errors.Is(err, session.ErrIllegalMove) {
		t.Fatalf("illegal err = %v", err)
	}
	if _, err := c.Move(ctx, id, 3, 2, reversidto.SideBlack, white.Token); !errors.Is(err, session.ErrUnauthorized) {
		t.Fatalf("wrong token err = %v", err)
	}

	snap, err := c.Move(ctx, id, 3, 2, reversidto.SideBlack, black.Token)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if snap.Turn != reversidto.SideWhite || snap.MoveCount != 1 {
		t.Fatalf("after move = %+v", snap)
	}

	_, err = c.Move(ctx, id, 2, 2, reversidto.SideWhite, white.Token)
	var cd *session.CooldownError
	if !errors.Is(err, session.ErrTooSoon) || !errors.As(err, &cd) || cd.Remaining <= 0 {
		t.Fatalf("cooldown err = %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("api error = %+v", apiErr)
	}

	if _, err := c.State(ctx, "missing"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("missing state err = %v", err)
	}
	state, err := c.State(ctx, id)
	if err != nil || state.Revision != snap.Revision {
		t.Fatalf("State = %+v, %v", state, err)
	}
}

func TestStateRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("busy"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"game_id":"g","revision":7}`))
	}))
	defer ts.Close()

	snap, err := NewClient(ts.URL, WithRetry(3)).State(context.Background(), "g")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snap.Revision != 7 || hits.Load() != 3 {
		t.Fatalf("revision = %d hits = %d", snap.Revision, hits.Load())
	}

	hits.Store(-10)
	_, err = NewClient(ts.URL, WithRetry(2)).State(context.Background(), "g")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable || apiErr.Detail != "busy" {
		t.Fatalf("exhausted retries err = %v", err)
	}
}

func TestMoveIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL).Move(context.Background(), "g", 3, 2, reversidto.SideBlack, "t"); err == nil {
		t.Fatalf("expected error")
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestStreamURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8000":      "ws://localhost:8000/games/abc/ws",
		"https://arena.example/api/": "wss://arena.example/api/games/abc/ws",
	}
	for in, want := range cases {
		got, err := StreamURL(in, "abc")
		if err != nil || got != want {
			t.Fatalf("StreamURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := StreamURL("ftp://x", "abc"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestStreamDeliversSyncThenEvents(t *testing.T) {
	ts := newArena(t)
	c := NewClient(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := c.CreateGame(ctx, reversidto.CreateRequest{})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	wsURL, _ := StreamURL(ts.URL, id)
	st, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer st.Close()

	ev, err := st.Next(ctx)
	if err != nil || ev.Type != reversidto.EventSync || ev.SessionID != id {
		t.Fatalf("sync = %+v, %v", ev, err)
	}
	if _, err := c.Claim(ctx, id, reversidto.SideBlack); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	ev, err = st.Next(ctx)
	if err != nil || ev.Type != reversidto.EventClaim || ev.Revision != 1 {
		t.Fatalf("claim event = %+v, %v", ev, err)
	}

	if _, err := Dial(ctx, "ws"+ts.URL[len("http"):]+"/games/missing/ws"); err == nil {
		t.Fatalf("dial missing game succeeded")
	}
}

func TestRemoteAgentPlaysAgainstServerAgent(t *testing.T) {
	ts := newArena(t)
	c := NewClient(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	id, err := c.CreateGame(ctx, reversidto.CreateRequest{WhiteIsHuman: ptr(false)})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	claim, err := c.Claim(ctx, id, reversidto.SideBlack)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	wsURL, _ := StreamURL(ts.URL, id)
	st, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer st.Close()

	seat := NewSeat(c, id, reversidto.SideBlack, claim.Token)
	r := agent.NewRunner(seat, reversi.Black, agent.WithEvents(st), agent.WithPollInterval(50*time.Millisecond))
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap, err := seat.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Terminal || snap.Scores.Black+snap.Scores.White == 0 {
		t.Fatalf("game not finished: %+v", snap)
	}
}

func TestDecodeErrorWithoutBody(t *testing.T) {
	e := decodeError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	if e.Code != reversidto.CodeInternal || e.Detail != "<html>bad gateway</html>" || e.Unwrap() != nil {
		t.Fatalf("decodeError = %+v", e)
	}
}

func TestGameIDIsEscapedInPath(t *testing.T) {
	var got atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","detail":"no such game"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if _, err := c.Claim(context.Background(), "a/b?c", reversidto.SideBlack); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("Claim err = %v", err)
	}
	if p, _ := got.Load().(string); p != "/games/a%2Fb%3Fc/claim" {
		t.Fatalf("path = %q", p)
	}
}
