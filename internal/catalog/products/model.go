package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product. CurrentStock is mutated only through
// the stock movement recorder; catalog writes never touch it.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Reference    string          `json:"reference"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CurrentStock float64         `json:"current_stock"`
	MinStock     float64         `json:"min_stock"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LowStock reports whether the product is at or below its minimum threshold.
// Derived at read time, never stored.
func (p Product) LowStock() bool {
	return p.CurrentStock <= p.MinStock
}

// ProductView is the API shape including the derived low-stock flag.
type ProductView struct {
	Product
	LowStock bool `json:"low_stock"`
}

// NewView builds the read model for a product.
func NewView(p Product) ProductView {
	return ProductView{Product: p, LowStock: p.LowStock()}
}
