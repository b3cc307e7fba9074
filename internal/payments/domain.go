package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode is how the client settled.
type Mode string

const (
	ModeCash        Mode = "CASH"
	ModeMobileMoney Mode = "MOBILE_MONEY"
	ModeBank        Mode = "BANK"
	ModeCheque      Mode = "CHEQUE"
)

// Valid reports whether m is a known payment mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeCash, ModeMobileMoney, ModeBank, ModeCheque:
		return true
	}
	return false
}

// Payment is one append-only ledger entry against an order.
type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      Mode            `json:"mode"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	ActorID   string          `json:"actor_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
