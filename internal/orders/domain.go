package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus is the fulfilment state of an order.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryInProgress DeliveryStatus = "IN_PROGRESS"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
	DeliveryCancelled  DeliveryStatus = "CANCELLED"
)

// PaymentStatus is the settlement state of an order. It is always derived
// from the paid/remaining amounts, never set independently.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// DerivePaymentStatus computes the settlement state from the amounts. UNPAID
// is only reachable before the first payment, since payments of zero are
// rejected upstream.
func DerivePaymentStatus(remaining, total decimal.Decimal) PaymentStatus {
	switch {
	case remaining.IsZero():
		return PaymentPaid
	case remaining.LessThan(total):
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// Order is the aggregate root of the fulfilment ledger. Total is fixed at
// creation; paid + remaining == total at all times.
type Order struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	ClientID       int64           `json:"client_id"`
	ClientName     string          `json:"client_name,omitempty"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	Total          decimal.Decimal `json:"total"`
	Paid           decimal.Decimal `json:"paid"`
	Remaining      decimal.Decimal `json:"remaining"`
	DriverID       *int64          `json:"driver_id,omitempty"`
	DriverName     *string         `json:"driver_name,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	DeliveryNotes  string          `json:"delivery_notes,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	Items          []Item          `json:"items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Item is one order line. Unit price is captured at order time and the
// amount never changes with later catalog price edits.
type Item struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    float64         `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// ListFilter narrows order queries.
type ListFilter struct {
	ClientID       int64
	DeliveryStatus DeliveryStatus
	PaymentStatus  PaymentStatus
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}
