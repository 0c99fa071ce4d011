package arena

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/agent"
	"github.com/park285/reversi-arena/internal/hub"
	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// localSeat binds a claimed seat to the service so an agent can play it in-process.
type localSeat struct {
	svc   *Service
	id    string
	color reversi.Color
	token string
}

func (l *localSeat) Snapshot(ctx context.Context) (reversidto.Snapshot, error) {
	return l.svc.Snapshot(ctx, l.id)
}

func (l *localSeat) Move(ctx context.Context, x, y int) (reversidto.Snapshot, error) {
	return l.svc.SubmitMove(ctx, l.id, x, y, l.color, l.token)
}

type agentRun struct {
	runner *agent.Runner
	sub    *hub.Subscription
	log    *zap.Logger
}

// prepareAgent claims color for an in-process agent. The caller holds a task reservation for
// the run and passes the result to runAgent.
func (s *Service) prepareAgent(sess *session.Session, color reversi.Color) (*agentRun, error) {
	tok, err := sess.ClaimSeat(color)
	if err != nil {
		return nil, err
	}
	sub := s.hub.Subscribe(sess.ID())
	log := s.logger.With(zap.String("game_id", sess.ID()), zap.String("side", color.String()))
	r := agent.NewRunner(&localSeat{svc: s, id: sess.ID(), color: color, token: tok}, color,
		agent.WithEvents(sub),
		agent.WithMoveDelay(s.agentDelay),
		agent.WithPollInterval(-1),
		agent.WithLogger(log),
	)
	return &agentRun{runner: r, sub: sub, log: log}, nil
}

func (s *Service) runAgent(run *agentRun) {
	run.log.Info("agent_start")
	go func() {
		defer s.wg.Done()
		defer run.sub.Close()
		err := run.runner.Run(s.ctx)
		switch {
		case err == nil:
			run.log.Debug("agent_stop")
		case errors.Is(err, context.Canceled), errors.Is(err, hub.ErrClosed), errors.Is(err, hub.ErrBacklogOverflow):
			run.log.Debug("agent_stop", zap.Error(err))
		default:
			run.log.Warn("agent_error", zap.Error(err))
		}
	}()
}
