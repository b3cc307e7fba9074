package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts the movements order creation writes.
type MetricsPort interface {
	ObserveMovement(movementType string)
}

// Service is the order aggregate manager.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics}
}

// LineInput is one requested order line.
type LineInput struct {
	ProductID int64
	Quantity  float64
	UnitPrice decimal.Decimal
}

// CreateOrderInput describes a new order.
type CreateOrderInput struct {
	ClientID int64
	Notes    string
	Lines    []LineInput
	ActorID  string
}

// Create persists the order, its lines, one OUT movement per line and the
// stock decrements as a single transaction. Product rows are locked in
// ascending id order so two concurrent orders over the same products cannot
// deadlock; the sufficiency check happens under the lock, so overselling is
// impossible.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (Order, error) {
	if input.ClientID == 0 {
		return Order{}, shared.NewValidationError("client_id", "required")
	}
	if len(input.Lines) == 0 {
		return Order{}, shared.NewValidationError("lines", "order must have at least one line")
	}
	for i, line := range input.Lines {
		if line.ProductID == 0 {
			return Order{}, shared.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "required")
		}
		if line.Quantity <= 0 {
			return Order{}, shared.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return Order{}, shared.NewValidationError(fmt.Sprintf("lines[%d].unit_price", i), "must not be negative")
		}
	}

	total := decimal.Zero
	for _, line := range input.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity)))
	}

	number := "CMD-" + uuid.NewString()
	now := time.Now().UTC()

	// Demand per product, lines over the same product summed.
	demand := map[int64]float64{}
	for _, line := range input.Lines {
		demand[line.ProductID] += line.Quantity
	}
	productIDs := make([]int64, 0, len(demand))
	for id := range demand {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stocks := map[int64]ProductRow{}
		for _, id := range productIDs {
			p, err := tx.GetProductForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("orders: product %d: %w", id, err)
			}
			if p.Stock < demand[id] {
				return &shared.InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   demand[id],
					Available:   p.Stock,
				}
			}
			stocks[id] = p
		}

		var err error
		orderID, err = tx.InsertOrder(ctx, Order{
			Number:         number,
			ClientID:       input.ClientID,
			DeliveryStatus: DeliveryPending,
			PaymentStatus:  PaymentUnpaid,
			Total:          total,
			Paid:           decimal.Zero,
			Remaining:      total,
			Notes:          strings.TrimSpace(input.Notes),
		})
		if err != nil {
			return err
		}

		for _, line := range input.Lines {
			item := Item{
				OrderID:   orderID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Amount:    line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity)),
			}
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return err
			}

			p := stocks[line.ProductID]
			after := p.Stock - line.Quantity
			if _, err := tx.InsertMovement(ctx, inventory.Movement{
				ProductID:   line.ProductID,
				Type:        inventory.MovementOut,
				Quantity:    line.Quantity,
				StockBefore: p.Stock,
				StockAfter:  after,
				RefKind:     "order",
				RefID:       number,
				Note:        "customer order",
				ActorID:     input.ActorID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			if err := tx.UpdateProductStock(ctx, line.ProductID, after); err != nil {
				return err
			}
			p.Stock = after
			stocks[line.ProductID] = p
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if s.metrics != nil {
		for range input.Lines {
			s.metrics.ObserveMovement(string(inventory.MovementOut))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "orders:create",
			Entity:   "order",
			EntityID: number,
			Meta: map[string]any{
				"client_id": input.ClientID,
				"total":     total.StringFixed(2),
				"lines":     len(input.Lines),
			},
		})
	}

	return s.repo.Get(ctx, orderID)
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	return s.repo.List(ctx, filter)
}
