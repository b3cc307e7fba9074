package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether the supplier has been paid for a receipt.
// Unlike order payments there is no partial state: the warehouse settles a
// supplier invoice in full.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// Receipt is a goods receipt from a supplier. Receiving a line creates a lot
// and an IN movement in the same transaction as the receipt rows.
type Receipt struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	SupplierID    int64           `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []ReceiptItem   `json:"items,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReceiptItem is one received line.
type ReceiptItem struct {
	ID             int64           `json:"id"`
	ReceiptID      int64           `json:"receipt_id"`
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	Quantity       float64         `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Amount         decimal.Decimal `json:"amount"`
	LotID          *int64          `json:"lot_id,omitempty"`
	LotNumber      string          `json:"lot_number,omitempty"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
}
