package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter MovementFilter) ([]Movement, int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts recorded movements by type.
type MetricsPort interface {
	ObserveMovement(movementType string)
}

// Service is the stock movement recorder. Every stock mutation in the system
// goes through Apply so the ledger and the counter never diverge.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics}
}

// ApplyInput describes one movement to record.
type ApplyInput struct {
	ProductID int64
	Type      MovementType
	Quantity  float64
	Reason    *LossReason
	LotID     *int64
	RefKind   string
	RefID     string
	Note      string
	ActorID   string
}

// Apply records a movement and updates the product counter atomically. The
// product row is locked FOR UPDATE for the duration, so concurrent movements
// on the same product serialize and stockBefore/stockAfter are exact.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (Movement, error) {
	if !input.Type.Valid() {
		return Movement{}, ErrInvalidType
	}
	if input.Type == MovementAdjust {
		if math.Abs(input.Quantity) < 1e-9 {
			return Movement{}, ErrInvalidQuantity
		}
	} else if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if input.Type == MovementLoss {
		if input.Reason == nil || !input.Reason.Valid() {
			return Movement{}, ErrInvalidReason
		}
	} else if input.Reason != nil {
		return Movement{}, shared.NewValidationError("reason", "only LOSS movements carry a reason")
	}

	var recorded Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		delta := Delta(input.Type, input.Quantity)
		after := product.Stock + delta
		if after < -1e-9 && input.Type != MovementAdjust {
			return &shared.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   -delta,
				Available:   product.Stock,
			}
		}
		if math.Abs(after) < 1e-9 {
			after = 0
		}
		m := Movement{
			ProductID:   input.ProductID,
			Type:        input.Type,
			Quantity:    math.Abs(input.Quantity),
			StockBefore: product.Stock,
			StockAfter:  after,
			Reason:      input.Reason,
			LotID:       input.LotID,
			RefKind:     input.RefKind,
			RefID:       input.RefID,
			Note:        input.Note,
			ActorID:     input.ActorID,
			CreatedAt:   time.Now().UTC(),
		}
		if input.Type == MovementAdjust {
			m.Quantity = input.Quantity
		}
		id, err := tx.InsertMovement(ctx, m)
		if err != nil {
			return err
		}
		m.ID = id
		m.ProductName = product.Name
		if err := tx.UpdateProductStock(ctx, input.ProductID, after); err != nil {
			return err
		}
		recorded = m
		return nil
	})
	if err != nil {
		return Movement{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveMovement(string(input.Type))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("inventory:%s", input.Type),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d", recorded.ID),
			Meta: map[string]any{
				"product_id":  input.ProductID,
				"quantity":    input.Quantity,
				"stock_after": recorded.StockAfter,
			},
		})
	}
	return recorded, nil
}

// Journal lists movements matching the filter, newest first.
func (s *Service) Journal(ctx context.Context, filter MovementFilter) ([]Movement, int64, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, ErrInvalidType
	}
	return s.repo.List(ctx, filter)
}
