package compare

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"

	"github.com/lundberg/diffweb/internal/diff"
	"github.com/lundberg/diffweb/internal/git"
)

// Repository is the slice of git the service needs.
type Repository interface {
	RefResolver
	Diff(ctx context.Context, args ...string) (string, error)
	Status(ctx context.Context) (*git.Status, error)
	Files(ctx context.Context) (fs.FS, error)
}

// Service produces parsed diffs for a repository.
type Service struct {
	repo Repository
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ParseDiff compares target against base and parses the result. Any
// failure is returned as a single error and no partial response.
func (s *Service) ParseDiff(ctx context.Context, target, base string, ignoreWhitespace bool) (*diff.DiffResponse, error) {
	resp, err := s.parseDiff(ctx, target, base, ignoreWhitespace)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}
	return resp, nil
}

func (s *Service) parseDiff(ctx context.Context, target, base string, ignoreWhitespace bool) (*diff.DiffResponse, error) {
	plan, err := Resolve(ctx, s.repo, target, base, ignoreWhitespace)
	if err != nil {
		return nil, err
	}

	var raw string
	if plan.Synthetic {
		log.Info().Str("base", base).Msg("base does not resolve, showing all files as new")
		raw, err = s.synthesize(ctx)
	} else {
		raw, err = s.repo.Diff(ctx, plan.Args...)
	}
	if err != nil {
		return nil, err
	}

	resp := diff.ParseResponse(plan.Label, raw)
	log.Debug().
		Str("target", target).
		Str("base", base).
		Str("commit", resp.Commit).
		Int("files", len(resp.Files)).
		Msg("parsed diff")
	return resp, nil
}

func (s *Service) synthesize(ctx context.Context) (string, error) {
	st, err := s.repo.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("reading repository status: %w", err)
	}
	files, err := s.repo.Files(ctx)
	if err != nil {
		return "", fmt.Errorf("locating working tree: %w", err)
	}
	return diff.Synthesize(files, st.Paths()), nil
}
