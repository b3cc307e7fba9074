package lots

import (
	"context"
	"strings"
	"time"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts lot persistence.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Lot, error)
	List(ctx context.Context, filter ListFilter) ([]Lot, error)
	Create(ctx context.Context, l Lot) (int64, error)
	ReclassifyAll(ctx context.Context, now time.Time, window time.Duration) (int64, error)
}

// Service manages the lot registry. Statuses are re-derived from the
// expiration date on every read so they stay accurate between the nightly
// reclassification runs.
type Service struct {
	repo   RepositoryPort
	window time.Duration
	now    func() time.Time
}

// NewService builds Service. window is the NEAR_EXPIRY horizon.
func NewService(repo RepositoryPort, window time.Duration) *Service {
	return &Service{repo: repo, window: window, now: time.Now}
}

// LotView is a lot with the derived fields the dashboard shows.
type LotView struct {
	Lot
	DaysUntilExpiration *int `json:"days_until_expiration,omitempty"`
}

func (s *Service) view(l Lot) LotView {
	now := s.now()
	l.Status = Classify(l.ExpirationDate, now, s.window)
	v := LotView{Lot: l}
	if days, ok := DaysUntilExpiration(l.ExpirationDate, now); ok {
		v.DaysUntilExpiration = &days
	}
	return v
}

func (s *Service) Get(ctx context.Context, id int64) (LotView, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return LotView{}, err
	}
	return s.view(l), nil
}

// List returns lots, optionally filtered by product and derived status.
func (s *Service) List(ctx context.Context, filter ListFilter, status Status) ([]LotView, error) {
	ls, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]LotView, 0, len(ls))
	for _, l := range ls {
		v := s.view(l)
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// CreateLotInput registers a lot outside the procurement flow, for stock
// already on the floor when the system was introduced.
type CreateLotInput struct {
	ProductID       int64
	LotNumber       string
	Quantity        float64
	ManufactureDate *time.Time
	ExpirationDate  *time.Time
}

func (s *Service) Create(ctx context.Context, input CreateLotInput) (LotView, error) {
	if input.ProductID == 0 {
		return LotView{}, shared.NewValidationError("product_id", "required")
	}
	if strings.TrimSpace(input.LotNumber) == "" {
		return LotView{}, shared.NewValidationError("lot_number", "required")
	}
	if input.Quantity <= 0 {
		return LotView{}, shared.NewValidationError("quantity", "must be positive")
	}
	l := Lot{
		ProductID:       input.ProductID,
		LotNumber:       strings.TrimSpace(input.LotNumber),
		InitialQty:      input.Quantity,
		RemainingQty:    input.Quantity,
		ManufactureDate: input.ManufactureDate,
		ExpirationDate:  input.ExpirationDate,
		Status:          Classify(input.ExpirationDate, s.now(), s.window),
	}
	id, err := s.repo.Create(ctx, l)
	if err != nil {
		return LotView{}, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return LotView{}, err
	}
	return s.view(created), nil
}

// Reclassify rewrites every stored status from the expiration dates. Run
// nightly by the worker.
func (s *Service) Reclassify(ctx context.Context) (int64, error) {
	return s.repo.ReclassifyAll(ctx, s.now(), s.window)
}
