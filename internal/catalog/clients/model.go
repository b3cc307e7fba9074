package clients

import "time"

// Client is a hotel or restaurant account the distributor sells to.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Kind      string    `json:"kind"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client kinds. Free-form beyond these two but the dashboard filters on them.
const (
	KindHotel      = "HOTEL"
	KindRestaurant = "RESTAURANT"
)

// UpsertClientRequest is the create/update payload.
type UpsertClientRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Contact string  `json:"contact" validate:"max=200"`
	Phone   string  `json:"phone" validate:"max=40"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty"`
	Kind    string  `json:"kind" validate:"omitempty,max=40"`
	Active  *bool   `json:"active,omitempty"`
}
