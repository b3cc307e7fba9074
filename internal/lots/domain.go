package lots

import (
	"math"
	"time"
)

// Status is the expiry classification of a lot.
type Status string

const (
	StatusGood       Status = "GOOD"
	StatusNearExpiry Status = "NEAR_EXPIRY"
	StatusExpired    Status = "EXPIRED"
)

// Lot is a batch of a product received together, sharing an expiration date.
// Status is derived from the expiration date on every read; the stored column
// only exists so SQL filters and reports can use it between reclassification
// runs.
type Lot struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"product_id"`
	ProductName     string     `json:"product_name,omitempty"`
	LotNumber       string     `json:"lot_number"`
	InitialQty      float64    `json:"initial_quantity"`
	RemainingQty    float64    `json:"remaining_quantity"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	Status          Status     `json:"status"`
	ReceiptID       *int64     `json:"receipt_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Classify returns the expiry status of a lot with the given expiration date
// at the given instant. Lots without an expiration date never expire. The
// window is how far ahead of the expiration date a lot counts as NEAR_EXPIRY.
func Classify(expiration *time.Time, now time.Time, window time.Duration) Status {
	if expiration == nil {
		return StatusGood
	}
	if !expiration.After(now) {
		return StatusExpired
	}
	if expiration.Sub(now) <= window {
		return StatusNearExpiry
	}
	return StatusGood
}

// DaysUntilExpiration returns the whole days remaining before expiration,
// rounded up. Negative values mean the lot is already expired. Returns false
// when the lot has no expiration date.
func DaysUntilExpiration(expiration *time.Time, now time.Time) (int, bool) {
	if expiration == nil {
		return 0, false
	}
	days := expiration.Sub(now).Hours() / 24
	return int(math.Ceil(days)), true
}
