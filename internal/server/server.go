// Package server exposes parsed diffs over HTTP next to the web UI.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lundberg/diffweb/internal/compare"
	"github.com/lundberg/diffweb/internal/diff"
	"github.com/lundberg/diffweb/internal/git"
)

const (
	defaultCommitLimit = 50
	maxCommitLimit     = 500
)

// Differ produces a parsed diff for a comparison.
type Differ interface {
	ParseDiff(ctx context.Context, target, base string, ignoreWhitespace bool) (*diff.DiffResponse, error)
}

// CommitLister lists recent commits.
type CommitLister interface {
	GetCommits(ctx context.Context, n int) ([]git.Commit, error)
}

// RevisionSource reports how many times the working tree has changed.
type RevisionSource interface {
	Revision() uint64
}

// Options are the defaults for requests that don't specify their own.
type Options struct {
	Target           string
	Base             string
	IgnoreWhitespace bool
	ViewMode         string
}

// Deps are the server's collaborators. Revisions may be nil.
type Deps struct {
	Differ    Differ
	Commits   CommitLister
	Revisions RevisionSource
}

// Server is the HTTP server that serves the frontend and API endpoints.
type Server struct {
	opts      Options
	deps      Deps
	stdinDiff *diff.DiffResponse
	assets    fs.FS
	echo      *echo.Echo
}

// New creates a new server. If stdinDiff is non-nil, the server is in stdin mode.
func New(opts Options, deps Deps, stdinDiff *diff.DiffResponse, assets fs.FS) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		opts:      opts,
		deps:      deps,
		stdinDiff: stdinDiff,
		assets:    assets,
		echo:      e,
	}
	s.middleware()
	s.routes()
	return s
}

// Handler returns the http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) middleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Debug()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/diff", s.handleDiff)
	api.GET("/commits", s.handleCommits)
	api.GET("/config", s.handleConfig)
	api.GET("/revision", s.handleRevision)
	s.echo.GET("/*", echo.WrapHandler(http.FileServer(http.FS(s.assets))))
}

func (s *Server) handleDiff(c echo.Context) error {
	// In stdin mode, always return the pre-parsed diff
	if s.stdinDiff != nil {
		return c.JSON(http.StatusOK, s.stdinDiff)
	}

	target := c.QueryParam("target")
	if target == "" {
		target = s.opts.Target
	}
	base := c.QueryParam("base")
	if base == "" {
		base = s.opts.Base
	}
	ignoreWhitespace := s.opts.IgnoreWhitespace
	if v := c.QueryParam("ignoreWhitespace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ignoreWhitespace: "+v)
		}
		ignoreWhitespace = b
	}

	result, err := s.deps.Differ.ParseDiff(c.Request().Context(), target, base, ignoreWhitespace)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, compare.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		log.Error().Err(err).Str("target", target).Str("base", base).Msg("diff request failed")
		return echo.NewHTTPError(status, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCommits(c echo.Context) error {
	// In stdin mode, return empty array
	if s.stdinDiff != nil {
		return c.JSON(http.StatusOK, []git.Commit{})
	}

	limit := defaultCommitLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: "+v)
		}
		limit = min(n, maxCommitLimit)
	}

	commits, err := s.deps.Commits.GetCommits(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if commits == nil {
		commits = []git.Commit{}
	}
	return c.JSON(http.StatusOK, commits)
}

type configResponse struct {
	ViewMode         string `json:"viewMode"`
	IgnoreWhitespace bool   `json:"ignoreWhitespace"`
	Target           string `json:"target"`
	Base             string `json:"base"`
	Stdin            bool   `json:"stdin"`
	Watch            bool   `json:"watch"`
}

func (s *Server) handleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, configResponse{
		ViewMode:         s.opts.ViewMode,
		IgnoreWhitespace: s.opts.IgnoreWhitespace,
		Target:           s.opts.Target,
		Base:             s.opts.Base,
		Stdin:            s.stdinDiff != nil,
		Watch:            s.deps.Revisions != nil,
	})
}

func (s *Server) handleRevision(c echo.Context) error {
	var rev uint64
	if s.deps.Revisions != nil {
		rev = s.deps.Revisions.Revision()
	}
	return c.JSON(http.StatusOK, map[string]uint64{"revision": rev})
}
