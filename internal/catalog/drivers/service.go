package drivers

import (
	"context"
	"strings"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts driver persistence.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Driver, error)
	List(ctx context.Context, status Status) ([]Driver, error)
	Create(ctx context.Context, d Driver) (int64, error)
	Update(ctx context.Context, id int64, d Driver) error
}

// Service handles driver roster operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Driver, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status) ([]Driver, error) {
	if status != "" && !status.Valid() {
		return nil, shared.NewValidationError("status", "unknown driver status")
	}
	return s.repo.List(ctx, status)
}

func (s *Service) Create(ctx context.Context, req UpsertDriverRequest) (Driver, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Driver{}, shared.NewValidationError("name", "required")
	}
	status := StatusAvailable
	if req.Status != nil {
		if err := manualStatus(*req.Status); err != nil {
			return Driver{}, err
		}
		status = *req.Status
	}
	id, err := s.repo.Create(ctx, Driver{
		Name:    strings.TrimSpace(req.Name),
		Phone:   req.Phone,
		Vehicle: req.Vehicle,
		Status:  status,
	})
	if err != nil {
		return Driver{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertDriverRequest) (Driver, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Driver{}, err
	}
	existing.Name = strings.TrimSpace(req.Name)
	existing.Phone = req.Phone
	existing.Vehicle = req.Vehicle
	if req.Status != nil {
		if err := manualStatus(*req.Status); err != nil {
			return Driver{}, err
		}
		// A driver on a run stays DELIVERING until the delivery flow frees them.
		if existing.Status == StatusDelivering {
			return Driver{}, shared.NewValidationError("status", "driver is currently delivering")
		}
		existing.Status = *req.Status
	}
	if existing.Name == "" {
		return Driver{}, shared.NewValidationError("name", "required")
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Driver{}, err
	}
	return s.repo.Get(ctx, id)
}

func manualStatus(st Status) error {
	if !st.Valid() {
		return shared.NewValidationError("status", "unknown driver status")
	}
	if st == StatusDelivering {
		return shared.NewValidationError("status", "DELIVERING is set by delivery assignment only")
	}
	return nil
}
