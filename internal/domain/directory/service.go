package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Service answers directory lookups for the REST surface and for the chat
// core's profile resolution.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetUser looks a participant up by id, falling back to an email match.
// Some upstream identity systems hand clients the email as the stable
// identifier, so both spellings must resolve.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	u, err = s.repo.GetByEmail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}
	return u, nil
}

// ListUsers returns active participants, paginated.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.ListActive(ctx, limit, offset)
}
