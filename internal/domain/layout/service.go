package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save replaces the layout. Concurrent saves are unordered; the last
// committed write wins.
func (s *Service) Save(ctx context.Context, cfg Config) error {
	if len(cfg) == 0 {
		return apperr.Validation("Missing or invalid layoutSettings.")
	}
	if err := s.repo.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("document", DocumentName).Int("keys", len(cfg)).Msg("layout saved")
	return nil
}

func (s *Service) Load(ctx context.Context) (Config, error) {
	cfg, err := s.repo.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("No layout settings found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	return cfg, nil
}
