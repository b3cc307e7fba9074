package products

// CreateProductRequest is the payload for creating a product.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Reference   string  `json:"reference" validate:"required,max=60"`
	CategoryID  *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Description *string `json:"description,omitempty"`
	Unit        string  `json:"unit" validate:"required,max=20"`
	UnitPrice   string  `json:"unit_price" validate:"required"`
	MinStock    float64 `json:"min_stock" validate:"gte=0"`
}

// UpdateProductRequest is the payload for updating a product. CurrentStock is
// deliberately absent: stock changes only via movements.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	CategoryID  *int64   `json:"category_id,omitempty" validate:"omitempty,gte=0"`
	Description *string  `json:"description,omitempty"`
	Unit        *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	UnitPrice   *string  `json:"unit_price,omitempty"`
	MinStock    *float64 `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	Active      *bool    `json:"active,omitempty"`
}

// ListProductsRequest filters product listings.
type ListProductsRequest struct {
	Search     string
	CategoryID int64
	ActiveOnly bool
	LowStock   bool
	Limit      int
	Offset     int
}
