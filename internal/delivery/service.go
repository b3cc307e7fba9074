package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caravel-dms/caravel/internal/catalog/drivers"
	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// OrdersPort reads back the updated order after a transition commits.
type OrdersPort interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the delivery state machine:
// PENDING -> IN_PROGRESS -> DELIVERED, with CANCELLED reachable from the
// first two. Payment state is untouched by every transition; DELIVERED plus
// UNPAID is a normal combination for credit customers.
type Service struct {
	repo   RepositoryPort
	orders OrdersPort
	audit  AuditPort
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, ordersSvc OrdersPort, audit AuditPort) *Service {
	return &Service{repo: repo, orders: ordersSvc, audit: audit, now: time.Now}
}

// AssignDriver moves a PENDING order to IN_PROGRESS and marks the driver
// DELIVERING. Both rows are locked in the same transaction.
func (s *Service) AssignDriver(ctx context.Context, orderID, driverID int64, actorID string) (orders.Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		state, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if state.Status != orders.DeliveryPending {
			return &shared.InvalidTransitionError{OrderID: orderID, From: string(state.Status), Op: "assign_driver"}
		}
		driver, err := tx.GetDriverForUpdate(ctx, driverID)
		if err != nil {
			return fmt.Errorf("delivery: driver %d: %w", driverID, err)
		}
		if driver.Status != drivers.StatusAvailable {
			return shared.NewValidationError("driver_id", fmt.Sprintf("driver %s is %s", driver.Name, driver.Status))
		}
		if err := tx.SetOrderAssigned(ctx, orderID, driverID); err != nil {
			return err
		}
		return tx.SetDriverStatus(ctx, driverID, drivers.StatusDelivering)
	})
	if err != nil {
		return orders.Order{}, err
	}
	s.record(ctx, actorID, "delivery:assign", orderID, map[string]any{"driver_id": driverID})
	return s.orders.Get(ctx, orderID)
}

// Confirm moves an IN_PROGRESS order to DELIVERED, stamps the delivery time
// and notes, and frees the driver.
func (s *Service) Confirm(ctx context.Context, orderID int64, notes, actorID string) (orders.Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		state, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if state.Status != orders.DeliveryInProgress {
			return &shared.InvalidTransitionError{OrderID: orderID, From: string(state.Status), Op: "confirm_delivery"}
		}
		if err := tx.SetOrderDelivered(ctx, orderID, s.now().UTC(), strings.TrimSpace(notes)); err != nil {
			return err
		}
		if state.DriverID != nil {
			return tx.SetDriverStatus(ctx, *state.DriverID, drivers.StatusAvailable)
		}
		return nil
	})
	if err != nil {
		return orders.Order{}, err
	}
	s.record(ctx, actorID, "delivery:confirm", orderID, nil)
	return s.orders.Get(ctx, orderID)
}

// Cancel moves a PENDING or IN_PROGRESS order to CANCELLED and frees the
// driver if one was assigned. Stock is not restored; a cancelled order's
// goods come back through an explicit IN or ADJUST movement once the
// warehouse has counted them.
func (s *Service) Cancel(ctx context.Context, orderID int64, actorID string) (orders.Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		state, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if state.Status != orders.DeliveryPending && state.Status != orders.DeliveryInProgress {
			return &shared.InvalidTransitionError{OrderID: orderID, From: string(state.Status), Op: "cancel"}
		}
		if err := tx.SetOrderCancelled(ctx, orderID); err != nil {
			return err
		}
		if state.DriverID != nil {
			return tx.SetDriverStatus(ctx, *state.DriverID, drivers.StatusAvailable)
		}
		return nil
	})
	if err != nil {
		return orders.Order{}, err
	}
	s.record(ctx, actorID, "delivery:cancel", orderID, nil)
	return s.orders.Get(ctx, orderID)
}

func (s *Service) record(ctx context.Context, actorID, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	})
}
