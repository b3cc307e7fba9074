package drivers

import "time"

// Status tracks whether a driver can take a new delivery run.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusDelivering  Status = "DELIVERING"
	StatusUnavailable Status = "UNAVAILABLE"
)

// Valid reports whether s is a known driver status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusDelivering, StatusUnavailable:
		return true
	}
	return false
}

// Driver is a delivery driver on the distributor's payroll.
type Driver struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Vehicle   *string   `json:"vehicle,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertDriverRequest is the create/update payload. Status transitions between
// DELIVERING and the rest are owned by the delivery flow, not this endpoint,
// so only AVAILABLE/UNAVAILABLE are accepted here.
type UpsertDriverRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Phone   string  `json:"phone" validate:"max=40"`
	Vehicle *string `json:"vehicle,omitempty"`
	Status  *Status `json:"status,omitempty"`
}
