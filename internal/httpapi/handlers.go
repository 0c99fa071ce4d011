package httpapi

import (
	"embed"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/park285/reversi-arena/internal/archive"
	"github.com/park285/reversi-arena/internal/session"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

//go:embed static/play.html
var staticFiles embed.FS

const defaultResults = 20

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) createGame(c echo.Context) error {
	var req reversidto.CreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed body")
	}
	st := s.defaults
	if req.TurnCooldown != nil {
		secs := *req.TurnCooldown
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return badRequest("turn_cooldown must be a non-negative number of seconds")
		}
		st.TurnCooldown = time.Duration(secs * float64(time.Second))
	}
	if req.BlackIsHuman != nil {
		st.BlackIsHuman = *req.BlackIsHuman
	}
	if req.WhiteIsHuman != nil {
		st.WhiteIsHuman = *req.WhiteIsHuman
	}
	id, err := s.arena.CreateSession(c.Request().Context(), st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, reversidto.CreateResponse{GameID: id})
}

func (s *Server) getGame(c echo.Context) error {
	id := c.Param("id")
	snap, err := s.arena.Snapshot(c.Request().Context(), id)
	if err != nil {
		return mapError(err, map[string]any{"GameID": id})
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) claimSeat(c echo.Context) error {
	id := c.Param("id")
	var req reversidto.ClaimRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("player must be black or white")
	}
	if req.Player == reversidto.SideNone {
		return badRequest("player is required")
	}
	tok, err := s.arena.ClaimSeat(c.Request().Context(), id, session.ColorOf(req.Player))
	if err != nil {
		return mapError(err, map[string]any{"GameID": id, "Player": string(req.Player)})
	}
	return c.JSON(http.StatusOK, reversidto.ClaimResponse{GameID: id, Player: req.Player, Token: tok})
}

func (s *Server) submitMove(c echo.Context) error {
	id := c.Param("id")
	var req reversidto.MoveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed body")
	}
	switch {
	case req.X == nil || req.Y == nil:
		return badRequest("x and y are required")
	case req.Player == reversidto.SideNone:
		return badRequest("player is required")
	}
	x, y := *req.X, *req.Y
	snap, err := s.arena.SubmitMove(c.Request().Context(), id, x, y, session.ColorOf(req.Player), req.Token)
	if err != nil {
		return mapError(err, map[string]any{"GameID": id, "Player": string(req.Player), "X": x, "Y": y})
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) boardPNG(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()
	snap, err := s.arena.Snapshot(ctx, id)
	if err != nil {
		return mapError(err, map[string]any{"GameID": id})
	}
	img, err := s.renderer.RenderPNG(ctx, snap)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", img)
}

func (s *Server) listResults(c echo.Context) error {
	if s.results == nil {
		return &apiError{status: http.StatusServiceUnavailable, code: reversidto.CodeUnavailable, key: "error.results_unavailable"}
	}
	n := defaultResults
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return badRequest("n must be a positive integer")
		}
		n = min(v, maxResults)
	}
	recs, err := s.results.Recent(c.Request().Context(), n)
	if err != nil {
		return &apiError{status: http.StatusServiceUnavailable, code: reversidto.CodeUnavailable, key: "error.results_unavailable", cause: err}
	}
	if recs == nil {
		recs = []archive.Record{}
	}
	return c.JSON(http.StatusOK, recs)
}

// index opens a game with the server defaults and sends the browser to it.
func (s *Server) index(c echo.Context) error {
	id, err := s.arena.CreateSession(c.Request().Context(), s.defaults)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/play/"+id)
}

func (s *Server) play(c echo.Context) error {
	if _, err := s.arena.Snapshot(c.Request().Context(), c.Param("id")); err != nil {
		return c.Redirect(http.StatusSeeOther, "/play/")
	}
	page, err := staticFiles.ReadFile("static/play.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}
