package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a discount code with a redemption cap. current_usage only ever
// increases and never exceeds max_usage; enforcement happens at order
// creation via a conditional update.
type Coupon struct {
	ID            int64           `json:"id" db:"id"`
	Code          string          `json:"code" db:"code"`
	DiscountValue decimal.Decimal `json:"discount_value" db:"discount_value"`
	MaxUsage      int             `json:"max_usage" db:"max_usage"`
	CurrentUsage  int             `json:"current_usage" db:"current_usage"`
	CreatedAt     time.Time       `json:"created_at,omitempty" db:"created_at"`
}
