package arenaclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/reversi-arena/pkg/reversidto"
)

const dialTimeout = 10 * time.Second

// ErrStreamClosed is returned by Next after the server ended the stream normally.
var ErrStreamClosed = errors.New("event stream closed")

// Stream reads game events pushed over a WebSocket.
type Stream struct {
	conn *websocket.Conn
}

// Dial opens the event stream at wsURL. The first event is always the sync frame.
func Dial(ctx context.Context, wsURL string) (*Stream, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, resp, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status=%d: %w", wsURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks for the next event. Control frames are answered while it waits.
func (s *Stream) Next(ctx context.Context) (reversidto.Event, error) {
	var ev reversidto.Event
	if err := wsjson.Read(ctx, s.conn, &ev); err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return reversidto.Event{}, ErrStreamClosed
		}
		return reversidto.Event{}, err
	}
	return ev, nil
}

func (s *Stream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "close")
}

// StreamURL derives the WebSocket event URL of a game from the HTTP base URL.
func StreamURL(baseURL, gameID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = u.Path + "/games/" + url.PathEscape(gameID) + "/ws"
	return u.String(), nil
}
