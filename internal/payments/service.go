package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
}

// OrdersPort reads back the updated order after a payment commits.
type OrdersPort interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts recorded payments.
type MetricsPort interface {
	ObservePayment()
}

// Service is the payment ledger.
type Service struct {
	repo    RepositoryPort
	orders  OrdersPort
	audit   AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ordersSvc OrdersPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, orders: ordersSvc, audit: audit, metrics: metrics}
}

// RecordInput describes one payment against an order.
type RecordInput struct {
	OrderID   int64
	Amount    decimal.Decimal
	Mode      Mode
	Reference string
	Notes     string
	ActorID   string
}

// Record appends a payment and updates the order's paid/remaining/status in
// one transaction. The order row is locked FOR UPDATE, so two concurrent
// payments serialize and the remaining-amount check is race-free.
func (s *Service) Record(ctx context.Context, input RecordInput) (orders.Order, error) {
	if input.OrderID == 0 {
		return orders.Order{}, shared.NewValidationError("order_id", "required")
	}
	if !input.Amount.IsPositive() {
		return orders.Order{}, shared.NewValidationError("amount", "must be positive")
	}
	if !input.Mode.Valid() {
		return orders.Order{}, shared.NewValidationError("mode", "unknown payment mode")
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balance, err := tx.GetOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(balance.Remaining) {
			return &shared.OverpaymentError{
				OrderID:     balance.ID,
				OrderNumber: balance.Number,
				Amount:      input.Amount,
				Remaining:   balance.Remaining,
			}
		}
		if _, err := tx.InsertPayment(ctx, Payment{
			OrderID:   input.OrderID,
			Amount:    input.Amount,
			Mode:      input.Mode,
			Reference: strings.TrimSpace(input.Reference),
			Notes:     strings.TrimSpace(input.Notes),
			ActorID:   input.ActorID,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		paid := balance.Paid.Add(input.Amount)
		remaining := balance.Total.Sub(paid)
		status := orders.DerivePaymentStatus(remaining, balance.Total)
		return tx.UpdateOrderBalance(ctx, input.OrderID, paid, remaining, status)
	})
	if err != nil {
		return orders.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.ObservePayment()
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "payments:record",
			Entity:   "order",
			EntityID: fmt.Sprintf("%d", input.OrderID),
			Meta: map[string]any{
				"amount": input.Amount.StringFixed(2),
				"mode":   string(input.Mode),
			},
		})
	}

	return s.orders.Get(ctx, input.OrderID)
}

// ListByOrder returns an order's payment history oldest first.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
