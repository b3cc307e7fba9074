package clients

import (
	"context"
	"strings"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts client persistence.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context, search string, activeOnly bool) ([]Client, error)
	Create(ctx context.Context, c Client) (int64, error)
	Update(ctx context.Context, id int64, c Client) error
}

// Service handles client account operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, search string, activeOnly bool) ([]Client, error) {
	return s.repo.List(ctx, search, activeOnly)
}

func (s *Service) Create(ctx context.Context, req UpsertClientRequest) (Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Client{}, shared.NewValidationError("name", "required")
	}
	kind := req.Kind
	if kind == "" {
		kind = KindHotel
	}
	id, err := s.repo.Create(ctx, Client{
		Name:    strings.TrimSpace(req.Name),
		Contact: req.Contact,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Kind:    kind,
	})
	if err != nil {
		return Client{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertClientRequest) (Client, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	existing.Name = strings.TrimSpace(req.Name)
	existing.Contact = req.Contact
	existing.Phone = req.Phone
	existing.Email = req.Email
	existing.Address = req.Address
	if req.Kind != "" {
		existing.Kind = req.Kind
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	if existing.Name == "" {
		return Client{}, shared.NewValidationError("name", "required")
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Client{}, err
	}
	return s.repo.Get(ctx, id)
}
