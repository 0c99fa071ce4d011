package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/archive"
	"github.com/park285/reversi-arena/internal/arena"
	"github.com/park285/reversi-arena/internal/hub"
	"github.com/park285/reversi-arena/internal/msgcat"
	"github.com/park285/reversi-arena/internal/render"
	"github.com/park285/reversi-arena/internal/reversi"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// Arena is the game boundary the handlers call. *arena.Service implements it.
type Arena interface {
	CreateSession(ctx context.Context, st arena.Settings) (string, error)
	ClaimSeat(ctx context.Context, id string, color reversi.Color) (string, error)
	Snapshot(ctx context.Context, id string) (reversidto.Snapshot, error)
	SubmitMove(ctx context.Context, id string, x, y int, color reversi.Color, token string) (reversidto.Snapshot, error)
	Subscribe(ctx context.Context, id string) (*hub.Subscription, error)
}

// ResultLister serves GET /results.
type ResultLister interface {
	Recent(ctx context.Context, n int) ([]archive.Record, error)
}

const (
	defaultKeepAlive = 15 * time.Second
	maxResults       = 100
)

type Server struct {
	echo      *echo.Echo
	arena     Arena
	cat       *msgcat.Catalog
	renderer  render.BoardRenderer
	results   ResultLister
	defaults  arena.Settings
	origins   []string
	keepAlive time.Duration
	logger    *zap.Logger

	// base ends every push stream once shutdown begins.
	base context.Context
	stop context.CancelFunc
}

type Option func(*Server)

func WithCatalog(c *msgcat.Catalog) Option {
	return func(s *Server) {
		if c != nil {
			s.cat = c
		}
	}
}

func WithRenderer(r render.BoardRenderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithResults backs GET /results. Without it the route answers 503.
func WithResults(r ResultLister) Option { return func(s *Server) { s.results = r } }

// WithDefaults sets the settings used when a create request omits a field.
func WithDefaults(st arena.Settings) Option { return func(s *Server) { s.defaults = st } }

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithKeepAlive sets the idle interval after which push streams send a heartbeat.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(a Arena, opts ...Option) *Server {
	s := &Server{
		echo:      echo.New(),
		arena:     a,
		defaults:  arena.DefaultSettings(),
		origins:   []string{"*"},
		keepAlive: defaultKeepAlive,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cat == nil {
		s.cat = msgcat.MustDefault()
	}
	if s.renderer == nil {
		s.renderer = render.NewPNGRenderer(s.cat)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	s.base, s.stop = context.WithCancel(context.Background())
	e.Server.RegisterOnShutdown(s.stop)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(s.requestLog)
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.health)
	e.GET("/", s.index)
	e.GET("/play/", s.index)
	e.GET("/play/:id", s.play)
	e.GET("/results", s.listResults)

	g := e.Group("/games")
	g.POST("", s.createGame)
	g.GET("/:id", s.getGame)
	g.POST("/:id/claim", s.claimSeat)
	g.POST("/:id/move", s.submitMove)
	g.GET("/:id/events", s.streamSSE)
	g.GET("/:id/ws", s.streamWS)
	g.GET("/:id/board.png", s.boardPNG)
}

// Handler exposes the router for httptest and custom servers.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown ends open push streams, then waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.echo.Shutdown(ctx)
}

// streamContext ends with the request or when the server shuts down.
func (s *Server) streamContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Request().Context())
	release := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		release()
		cancel()
	}
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		// Write the error response here so the logged status is the one sent.
		if err := next(c); err != nil {
			c.Error(err)
		}
		s.logger.Debug("http_request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	}
}
