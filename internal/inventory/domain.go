package inventory

import (
	"errors"
	"time"
)

// MovementType classifies a stock ledger entry.
type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
	MovementLoss   MovementType = "LOSS"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementLoss:
		return true
	}
	return false
}

// LossReason qualifies a LOSS movement.
type LossReason string

const (
	LossExpired  LossReason = "EXPIRED"
	LossDamage   LossReason = "DAMAGE"
	LossBreakage LossReason = "BREAKAGE"
	LossTheft    LossReason = "THEFT"
	LossOther    LossReason = "OTHER"
)

// Valid reports whether r is a known loss reason.
func (r LossReason) Valid() bool {
	switch r {
	case LossExpired, LossDamage, LossBreakage, LossTheft, LossOther:
		return true
	}
	return false
}

// Movement is one immutable entry in the stock ledger. StockBefore and
// StockAfter are captured inside the same transaction that updates the
// product counter, so replaying the ledger reproduces the counter exactly.
type Movement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name,omitempty"`
	Type        MovementType `json:"type"`
	Quantity    float64      `json:"quantity"`
	StockBefore float64      `json:"stock_before"`
	StockAfter  float64      `json:"stock_after"`
	Reason      *LossReason  `json:"reason,omitempty"`
	LotID       *int64       `json:"lot_id,omitempty"`
	RefKind     string       `json:"ref_kind,omitempty"`
	RefID       string       `json:"ref_id,omitempty"`
	Note        string       `json:"note,omitempty"`
	ActorID     string       `json:"actor_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Delta returns the signed stock change for the movement type. ADJUST keeps
// the caller's sign; the other types force it.
func Delta(t MovementType, qty float64) float64 {
	switch t {
	case MovementOut, MovementLoss:
		if qty > 0 {
			return -qty
		}
		return qty
	case MovementAdjust:
		return qty
	default:
		if qty < 0 {
			return -qty
		}
		return qty
	}
}

var (
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	ErrInvalidType     = errors.New("inventory: unknown movement type")
	ErrInvalidReason   = errors.New("inventory: unknown loss reason")
)

// MovementFilter narrows journal queries.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
