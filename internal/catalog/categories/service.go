package categories

import (
	"context"
	"strings"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts category persistence.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, c Category) (int64, error)
	Update(ctx context.Context, id int64, c Category) error
}

// Service handles category operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, req UpsertCategoryRequest) (Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Category{}, shared.NewValidationError("name", "required")
	}
	id, err := s.repo.Create(ctx, Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		return Category{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertCategoryRequest) (Category, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}
	existing.Name = strings.TrimSpace(req.Name)
	existing.Description = req.Description
	if existing.Name == "" {
		return Category{}, shared.NewValidationError("name", "required")
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Category{}, err
	}
	return s.repo.Get(ctx, id)
}
