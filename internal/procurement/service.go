package procurement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/lots"
	"github.com/caravel-dms/caravel/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Receipt, error)
	List(ctx context.Context, from, to time.Time, limit, offset int) ([]Receipt, int64, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts the movements receiving writes.
type MetricsPort interface {
	ObserveMovement(movementType string)
}

// Service receives goods from suppliers. One receipt writes the receipt
// rows, a lot per line, an IN movement per line and the stock increments in
// a single transaction.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	window  time.Duration
	now     func() time.Time
}

// NewService builds Service. window is the NEAR_EXPIRY horizon used to
// classify the created lots.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, window time.Duration) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, window: window, now: time.Now}
}

// ReceiveLineInput is one incoming line.
type ReceiveLineInput struct {
	ProductID       int64
	Quantity        float64
	UnitCost        decimal.Decimal
	LotNumber       string
	ManufactureDate *time.Time
	ExpirationDate  *time.Time
}

// ReceiveInput describes a goods receipt.
type ReceiveInput struct {
	SupplierID int64
	Notes      string
	Lines      []ReceiveLineInput
	ActorID    string
}

// Receive posts a goods receipt.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (Receipt, error) {
	if input.SupplierID == 0 {
		return Receipt{}, shared.NewValidationError("supplier_id", "required")
	}
	if len(input.Lines) == 0 {
		return Receipt{}, shared.NewValidationError("lines", "receipt must have at least one line")
	}
	for i, line := range input.Lines {
		if line.ProductID == 0 {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "required")
		}
		if line.Quantity <= 0 {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "must be positive")
		}
		if line.UnitCost.IsNegative() {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].unit_cost", i), "must not be negative")
		}
		if strings.TrimSpace(line.LotNumber) == "" {
			return Receipt{}, shared.NewValidationError(fmt.Sprintf("lines[%d].lot_number", i), "required")
		}
	}

	total := decimal.Zero
	for _, line := range input.Lines {
		total = total.Add(line.UnitCost.Mul(decimal.NewFromFloat(line.Quantity)))
	}

	number := "REC-" + uuid.NewString()
	now := s.now().UTC()

	productIDs := make([]int64, 0, len(input.Lines))
	seen := map[int64]bool{}
	for _, line := range input.Lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			productIDs = append(productIDs, line.ProductID)
		}
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	var receiptID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stocks := map[int64]ProductRow{}
		for _, id := range productIDs {
			p, err := tx.GetProductForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("procurement: product %d: %w", id, err)
			}
			stocks[id] = p
		}

		var err error
		receiptID, err = tx.InsertReceipt(ctx, Receipt{
			Number:        number,
			SupplierID:    input.SupplierID,
			Total:         total,
			PaymentStatus: PaymentUnpaid,
			Notes:         strings.TrimSpace(input.Notes),
			ActorID:       input.ActorID,
		})
		if err != nil {
			return err
		}

		for _, line := range input.Lines {
			lotID, err := tx.InsertLot(ctx, lots.Lot{
				ProductID:       line.ProductID,
				LotNumber:       strings.TrimSpace(line.LotNumber),
				InitialQty:      line.Quantity,
				RemainingQty:    line.Quantity,
				ManufactureDate: line.ManufactureDate,
				ExpirationDate:  line.ExpirationDate,
				Status:          lots.Classify(line.ExpirationDate, now, s.window),
				ReceiptID:       &receiptID,
			})
			if err != nil {
				return err
			}

			if _, err := tx.InsertReceiptItem(ctx, ReceiptItem{
				ReceiptID: receiptID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitCost:  line.UnitCost,
				Amount:    line.UnitCost.Mul(decimal.NewFromFloat(line.Quantity)),
				LotID:     &lotID,
			}); err != nil {
				return err
			}

			p := stocks[line.ProductID]
			after := p.Stock + line.Quantity
			if _, err := tx.InsertMovement(ctx, inventory.Movement{
				ProductID:   line.ProductID,
				Type:        inventory.MovementIn,
				Quantity:    line.Quantity,
				StockBefore: p.Stock,
				StockAfter:  after,
				LotID:       &lotID,
				RefKind:     "receipt",
				RefID:       number,
				Note:        "supplier receipt",
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
		return Receipt{}, err
	}

	if s.metrics != nil {
		for range input.Lines {
			s.metrics.ObserveMovement(string(inventory.MovementIn))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "procurement:receive",
			Entity:   "receipt",
			EntityID: number,
			Meta: map[string]any{
				"supplier_id": input.SupplierID,
				"total":       total.StringFixed(2),
				"lines":       len(input.Lines),
			},
		})
	}

	return s.repo.Get(ctx, receiptID)
}

// Get returns a receipt with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.Get(ctx, id)
}

// SettlePayment marks a receipt as paid to the supplier.
func (s *Service) SettlePayment(ctx context.Context, id int64, actorID string) (Receipt, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	if rec.PaymentStatus == PaymentPaid {
		return Receipt{}, shared.NewValidationError("payment_status", fmt.Sprintf("receipt %s is already paid", rec.Number))
	}
	if err := s.repo.MarkPaid(ctx, id, s.now().UTC()); err != nil {
		return Receipt{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "procurement:settle",
			Entity:   "receipt",
			EntityID: rec.Number,
			Meta: map[string]any{
				"supplier_id": rec.SupplierID,
				"total":       rec.Total.StringFixed(2),
			},
		})
	}
	return s.repo.Get(ctx, id)
}

// List returns receipts newest first.
func (s *Service) List(ctx context.Context, from, to time.Time, limit, offset int) ([]Receipt, int64, error) {
	return s.repo.List(ctx, from, to, limit, offset)
}
