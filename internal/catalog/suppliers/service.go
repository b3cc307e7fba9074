package suppliers

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts supplier persistence.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Supplier, error)
	List(ctx context.Context, activeOnly bool) ([]Supplier, error)
	Create(ctx context.Context, s Supplier) (int64, error)
	Update(ctx context.Context, id int64, s Supplier) error
	ListPrices(ctx context.Context, supplierID int64) ([]PriceEntry, error)
	UpsertPrice(ctx context.Context, e PriceEntry) (PriceEntry, error)
}

// Service handles supplier operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Create(ctx context.Context, req UpsertSupplierRequest) (Supplier, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Supplier{}, shared.NewValidationError("name", "required")
	}
	id, err := s.repo.Create(ctx, Supplier{
		Name:    strings.TrimSpace(req.Name),
		Contact: req.Contact,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertSupplierRequest) (Supplier, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	existing.Name = strings.TrimSpace(req.Name)
	existing.Contact = req.Contact
	existing.Phone = req.Phone
	existing.Email = req.Email
	existing.Address = req.Address
	if req.Active != nil {
		existing.Active = *req.Active
	}
	if existing.Name == "" {
		return Supplier{}, shared.NewValidationError("name", "required")
	}
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

// ListPrices returns the supplier's price list.
func (s *Service) ListPrices(ctx context.Context, supplierID int64) ([]PriceEntry, error) {
	if _, err := s.repo.Get(ctx, supplierID); err != nil {
		return nil, err
	}
	return s.repo.ListPrices(ctx, supplierID)
}

// UpsertPrice sets the supplier's price for one product, replacing any
// previous entry.
func (s *Service) UpsertPrice(ctx context.Context, supplierID, productID int64, req UpsertPriceRequest) (PriceEntry, error) {
	cost, err := decimal.NewFromString(req.UnitCost)
	if err != nil {
		return PriceEntry{}, shared.NewValidationError("unit_cost", "not a valid amount")
	}
	if cost.IsNegative() {
		return PriceEntry{}, shared.NewValidationError("unit_cost", "must not be negative")
	}
	if _, err := s.repo.Get(ctx, supplierID); err != nil {
		return PriceEntry{}, err
	}
	return s.repo.UpsertPrice(ctx, PriceEntry{
		SupplierID:   supplierID,
		ProductID:    productID,
		UnitCost:     cost,
		SupplierRef:  req.SupplierRef,
		LeadTimeDays: req.LeadTimeDays,
	})
}
