package suppliers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor the warehouse restocks from.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertSupplierRequest is the create/update payload.
type UpsertSupplierRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Contact string  `json:"contact" validate:"max=200"`
	Phone   string  `json:"phone" validate:"max=40"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

// PriceEntry is one line of a supplier's price list: what this vendor charges
// for a product and how long delivery takes.
type PriceEntry struct {
	ID           int64           `json:"id"`
	SupplierID   int64           `json:"supplier_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name,omitempty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SupplierRef  *string         `json:"supplier_ref,omitempty"`
	LeadTimeDays int             `json:"lead_time_days"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UpsertPriceRequest sets or replaces a supplier's price for one product.
type UpsertPriceRequest struct {
	UnitCost     string  `json:"unit_cost" validate:"required"`
	SupplierRef  *string `json:"supplier_ref,omitempty" validate:"omitempty,max=60"`
	LeadTimeDays int     `json:"lead_time_days" validate:"gte=0"`
}
