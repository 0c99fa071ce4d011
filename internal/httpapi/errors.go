package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/arena"
	"github.com/park285/reversi-arena/internal/registry"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

var errBadRequest = errors.New("bad request")

// apiError carries the mapped response plus the data the catalog template needs.
type apiError struct {
	status int
	code   reversidto.ErrorCode
	data   map[string]any
	retry  int64
	cause  error
	// key overrides the catalog key derived from code.
	key    string
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return string(e.code) + ": " + e.cause.Error()
	}
	return string(e.code)
}

func (e *apiError) Unwrap() error { return e.cause }

func badRequest(reason string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: reversidto.CodeBadRequest, data: map[string]any{"Reason": reason}, cause: errBadRequest}
}

var errorTable = []struct {
	target error
	status int
	code   reversidto.ErrorCode
}{
	{registry.ErrNotFound, http.StatusNotFound, reversidto.CodeNotFound},
	{session.ErrSeatTaken, http.StatusConflict, reversidto.CodeSeatTaken},
	{session.ErrUnauthorized, http.StatusUnauthorized, reversidto.CodeUnauthorized},
	{session.ErrNotYourTurn, http.StatusConflict, reversidto.CodeNotYourTurn},
	{session.ErrTooSoon, http.StatusTooManyRequests, reversidto.CodeTooSoon},
	{session.ErrIllegalMove, http.StatusUnprocessableEntity, reversidto.CodeIllegalMove},
	{session.ErrInvalidColor, http.StatusBadRequest, reversidto.CodeBadRequest},
	{arena.ErrInvalidSettings, http.StatusBadRequest, reversidto.CodeBadRequest},
	{arena.ErrClosed, http.StatusServiceUnavailable, reversidto.CodeUnavailable},
}

// mapError converts a domain error into an apiError. data fills the catalog template.
func mapError(err error, data map[string]any) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	for _, row := range errorTable {
		if !errors.Is(err, row.target) {
			continue
		}
		out := &apiError{status: row.status, code: row.code, data: data, cause: err}
		var cd *session.CooldownError
		if errors.As(err, &cd) {
			out.retry = cd.Remaining.Milliseconds()
			if out.data == nil {
				out.data = map[string]any{}
			}
			out.data["WaitMs"] = out.retry
		}
		if row.code == reversidto.CodeBadRequest {
			out.data = map[string]any{"Reason": err.Error()}
		}
		return out
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &apiError{status: http.StatusServiceUnavailable, code: reversidto.CodeUnavailable, cause: err}
	}
	return &apiError{status: http.StatusInternalServerError, code: reversidto.CodeInternal, cause: err}
}

func (s *Server) writeError(c echo.Context, ae *apiError) error {
	key := ae.key
	if key == "" {
		key = "error." + string(ae.code)
	}
	body := reversidto.ErrorBody{
		Code:         ae.code,
		Detail:       s.cat.Text(key, ae.data, string(ae.code)),
		RetryAfterMs: ae.retry,
	}
	if ae.status >= 500 {
		s.logger.Error("http_error", zap.String("path", c.Path()), zap.Int("status", ae.status), zap.Error(ae.cause))
	}
	return c.JSON(ae.status, body)
}

// handleError renders errors returned by handlers and by echo itself (404 routes, bad binds).
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := reversidto.CodeInternal
		switch {
		case he.Code == http.StatusNotFound:
			code = reversidto.CodeNotFound
		case he.Code < 500:
			code = reversidto.CodeBadRequest
		}
		body := reversidto.ErrorBody{Code: code, Detail: http.StatusText(he.Code)}
		if msg, ok := he.Message.(string); ok && msg != "" {
			body.Detail = msg
		}
		_ = c.JSON(he.Code, body)
		return
	}
	_ = s.writeError(c, mapError(err, nil))
}
