package products

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts product persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

// Service handles product catalog operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns one product with derived fields.
func (s *Service) Get(ctx context.Context, id int64) (ProductView, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	return NewView(p), nil
}

// List returns products with derived fields and the total count.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]ProductView, int, error) {
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, NewView(p))
	}
	return views, total, nil
}

// Create validates and inserts a new product with zero stock.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (ProductView, error) {
	price, err := parsePrice(req.UnitPrice)
	if err != nil {
		return ProductView{}, err
	}
	p := Product{
		Name:        strings.TrimSpace(req.Name),
		Reference:   strings.TrimSpace(req.Reference),
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Unit:        strings.TrimSpace(req.Unit),
		UnitPrice:   price,
		MinStock:    req.MinStock,
	}
	if p.Name == "" {
		return ProductView{}, shared.NewValidationError("name", "required")
	}
	if p.Reference == "" {
		return ProductView{}, shared.NewValidationError("reference", "required")
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return ProductView{}, err
	}
	return s.Get(ctx, id)
}

// Update applies a partial update. Stock is never writable here.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (ProductView, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.CategoryID != nil {
		// Zero detaches the product from its category.
		if *req.CategoryID == 0 {
			updates["category_id"] = nil
		} else {
			updates["category_id"] = *req.CategoryID
		}
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Unit != nil {
		updates["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.UnitPrice != nil {
		price, err := parsePrice(*req.UnitPrice)
		if err != nil {
			return ProductView{}, err
		}
		updates["unit_price"] = price.String()
	}
	if req.MinStock != nil {
		updates["min_stock"] = *req.MinStock
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return ProductView{}, err
	}
	return s.Get(ctx, id)
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.NewValidationError("unit_price", "not a valid amount")
	}
	if price.IsNegative() {
		return decimal.Zero, shared.NewValidationError("unit_price", "must not be negative")
	}
	return price, nil
}
