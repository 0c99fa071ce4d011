package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/agent"
	"github.com/park285/reversi-arena/internal/arenaclient"
	"github.com/park285/reversi-arena/internal/obslog"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

func main() {
	baseURL := flag.String("server", envOr("ARENA_URL", "http://localhost:8000"), "arena base URL")
	gameID := flag.String("game", "", "game to join; empty creates a new one")
	sideName := flag.String("side", "black", "seat to claim (black or white)")
	cooldown := flag.Float64("cooldown", 0, "turn cooldown in seconds for a created game; 0 keeps the server default")
	vsServer := flag.Bool("vs-server", false, "let the server play the other seat of a created game")
	delay := flag.Duration("delay", 0, "pause before each move")
	poll := flag.Duration("poll", time.Second, "snapshot polling interval without a stream")
	noStream := flag.Bool("no-stream", false, "poll only, do not open the WebSocket stream")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.Named("agent")

	side, err := reversidto.ParseSide(*sideName)
	if err != nil {
		log.Fatalf("invalid -side: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := arenaclient.NewClient(*baseURL, arenaclient.WithTimeout(8*time.Second))

	id := *gameID
	if id == "" {
		var req reversidto.CreateRequest
		if *cooldown > 0 {
			req.TurnCooldown = cooldown
		}
		if *vsServer {
			human := false
			if side == reversidto.SideBlack {
				req.WhiteIsHuman = &human
			} else {
				req.BlackIsHuman = &human
			}
		}
		if id, err = client.CreateGame(ctx, req); err != nil {
			log.Fatalf("create game: %v", err)
		}
		logger.Info("game_created", zap.String("game_id", id), zap.String("play_url", client.BaseURL()+"/play/"+id))
	}

	claim, err := client.Claim(ctx, id, side)
	if err != nil {
		log.Fatalf("claim %s: %v", side, err)
	}
	logger.Info("seat_claim", zap.String("game_id", id), zap.String("side", string(side)))

	opts := []agent.Option{
		agent.WithMoveDelay(*delay),
		agent.WithPollInterval(*poll),
		agent.WithLogger(logger),
	}
	if !*noStream {
		if stream, err := openStream(ctx, client.BaseURL(), id); err != nil {
			logger.Warn("agent_stream_lost", zap.String("game_id", id), zap.Error(err))
		} else {
			defer stream.Close()
			opts = append(opts, agent.WithEvents(stream))
		}
	}

	seat := arenaclient.NewSeat(client, id, side, claim.Token)
	runner := agent.NewRunner(seat, session.ColorOf(side), opts...)
	if err := runner.Run(ctx); err != nil {
		logger.Error("agent_error", zap.String("game_id", id), zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}

	snap, err := seat.Snapshot(context.Background())
	if err != nil {
		logger.Warn("final_state_error", zap.Error(err))
		return
	}
	logger.Info("game_finish",
		zap.String("game_id", id),
		zap.String("winner", snap.Winner),
		zap.Int("black", snap.Scores.Black),
		zap.Int("white", snap.Scores.White),
	)
}

func openStream(ctx context.Context, baseURL, id string) (*arenaclient.Stream, error) {
	wsURL, err := arenaclient.StreamURL(baseURL, id)
	if err != nil {
		return nil, err
	}
	return arenaclient.Dial(ctx, wsURL)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
