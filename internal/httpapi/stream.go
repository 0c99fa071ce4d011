package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/reversi-arena/internal/hub"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

const wsWriteTimeout = 5 * time.Second

// openStream subscribes before reading the snapshot so no commit falls between the two.
func (s *Server) openStream(ctx context.Context, id string) (*hub.Subscription, reversidto.Event, error) {
	sub, err := s.arena.Subscribe(ctx, id)
	if err != nil {
		return nil, reversidto.Event{}, err
	}
	snap, err := s.arena.Snapshot(ctx, id)
	if err != nil {
		sub.Close()
		return nil, reversidto.Event{}, err
	}
	first := reversidto.Event{
		Version:   reversidto.SchemaVersion,
		Type:      reversidto.EventSync,
		SessionID: id,
		Revision:  snap.Revision,
		Snapshot:  snap,
		At:        time.Now().UTC(),
	}
	return sub, first, nil
}

// pump sends first, then every event newer than it, calling beat after each idle keepAlive
// interval. It returns when ctx ends, the subscription ends or a write fails.
func (s *Server) pump(ctx context.Context, sub *hub.Subscription, first reversidto.Event, send func(reversidto.Event) error, beat func(context.Context) error) error {
	if err := send(first); err != nil {
		return err
	}
	last := first.Revision
	for {
		nctx, cancel := context.WithTimeout(ctx, s.keepAlive)
		ev, err := sub.Next(nctx)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			if err := beat(ctx); err != nil {
				return err
			}
			continue
		default:
			return err
		}
		if ev.Revision <= last {
			continue
		}
		last = ev.Revision
		if err := send(ev); err != nil {
			return err
		}
	}
}

func (s *Server) streamSSE(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := s.streamContext(c)
	defer cancel()
	sub, first, err := s.openStream(ctx, id)
	if err != nil {
		return mapError(err, map[string]any{"GameID": id})
	}
	defer sub.Close()

	w := c.Response()
	h := w.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	send := func(ev reversidto.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", ev.Type, ev.Revision, data); err != nil {
			return err
		}
		w.Flush()
		return nil
	}
	beat := func(context.Context) error {
		if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
			return err
		}
		w.Flush()
		return nil
	}
	err = s.pump(ctx, sub, first, send, beat)
	s.logStreamEnd("sse", id, err)
	return nil
}

func (s *Server) streamWS(c echo.Context) error {
	id := c.Param("id")
	ctx, cancel := s.streamContext(c)
	defer cancel()
	sub, first, err := s.openStream(ctx, id)
	if err != nil {
		return mapError(err, map[string]any{"GameID": id})
	}
	defer sub.Close()

	conn, err := websocket.Accept(c.Response(), c.Request(), s.acceptOptions())
	if err != nil {
		// Accept already wrote the handshake failure.
		s.logger.Debug("ws_accept_error", zap.String("game_id", id), zap.Error(err))
		return nil
	}
	defer conn.CloseNow()

	// The stream is push only; CloseRead answers pings and cancels on peer close.
	ctx = conn.CloseRead(ctx)
	send := func(ev reversidto.Event) error {
		wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancel()
		return wsjson.Write(wctx, conn, ev)
	}
	beat := func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancel()
		return conn.Ping(pctx)
	}
	err = s.pump(ctx, sub, first, send, beat)
	s.logStreamEnd("ws", id, err)

	switch {
	case errors.Is(err, hub.ErrBacklogOverflow):
		conn.Close(websocket.StatusPolicyViolation, "subscriber backlog overflow")
	case errors.Is(err, hub.ErrClosed):
		conn.Close(websocket.StatusGoingAway, "game closed")
	case s.base.Err() != nil:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	if slices.Contains(s.origins, "*") {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	patterns := make([]string, 0, len(s.origins))
	for _, o := range s.origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, strings.TrimSpace(o))
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

func (s *Server) logStreamEnd(kind, id string, err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, hub.ErrClosed) {
		return
	}
	s.logger.Debug("stream_end", zap.String("kind", kind), zap.String("game_id", id), zap.Error(err))
}
