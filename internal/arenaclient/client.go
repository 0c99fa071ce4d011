package arenaclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/reversi-arena/internal/registry"
	"github.com/park285/reversi-arena/internal/retry"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// APIError is a non-2xx answer from the arena. It unwraps to the matching domain sentinel, so
// callers can use errors.Is(err, session.ErrNotYourTurn) the same way they would in process.
type APIError struct {
	Status     int
	Code       reversidto.ErrorCode
	Detail     string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arena api error: status=%d code=%s detail=%s", e.Status, e.Code, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case reversidto.CodeNotFound:
		return registry.ErrNotFound
	case reversidto.CodeSeatTaken:
		return session.ErrSeatTaken
	case reversidto.CodeUnauthorized:
		return session.ErrUnauthorized
	case reversidto.CodeNotYourTurn:
		return session.ErrNotYourTurn
	case reversidto.CodeTooSoon:
		return &session.CooldownError{Remaining: e.RetryAfter}
	case reversidto.CodeIllegalMove:
		return session.ErrIllegalMove
	default:
		return nil
	}
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithRetry sets the attempt count for idempotent reads.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	// Path normalizing would turn an escaped game id back into extra segments.
	hc := &fasthttp.Client{
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		MaxConnsPerHost:        16,
		DisablePathNormalizing: true,
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           hc,
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateGame(ctx context.Context, req reversidto.CreateRequest) (string, error) {
	var resp reversidto.CreateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games", req, &resp, false); err != nil {
		return "", err
	}
	return resp.GameID, nil
}

func (c *Client) Claim(ctx context.Context, gameID string, side reversidto.Side) (reversidto.ClaimResponse, error) {
	var resp reversidto.ClaimResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(gameID, "claim"), reversidto.ClaimRequest{Player: side}, &resp, false)
	return resp, err
}

func (c *Client) State(ctx context.Context, gameID string) (reversidto.Snapshot, error) {
	var snap reversidto.Snapshot
	err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(gameID, ""), nil, &snap, true)
	return snap, err
}

func (c *Client) Move(ctx context.Context, gameID string, x, y int, side reversidto.Side, token string) (reversidto.Snapshot, error) {
	req := reversidto.MoveRequest{X: &x, Y: &y, Player: side, Token: token}
	var snap reversidto.Snapshot
	err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(gameID, "move"), req, &snap, false)
	return snap, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, idempotent bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if idempotent && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := decodeError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := retry.Sleep(ctx, retry.Backoff(attempt)); err != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// gamePath escapes id so it stays a single path segment.
func gamePath(id, action string) string {
	p := "/games/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func decodeError(status int, body []byte) *APIError {
	var eb reversidto.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Code == "" {
		return &APIError{Status: status, Code: reversidto.CodeInternal, Detail: truncate(strings.TrimSpace(string(body)), 512)}
	}
	return &APIError{
		Status:     status,
		Code:       eb.Code,
		Detail:     eb.Detail,
		RetryAfter: time.Duration(eb.RetryAfterMs) * time.Millisecond,
	}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func shouldRetryStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
