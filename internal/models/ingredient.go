package models

import "time"

// Ingredient is one stock-counted resource consumed by products.
type Ingredient struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Quantity      int       `json:"quantity" db:"quantity"`
	SafeThreshold int       `json:"safe_threshold" db:"safe_threshold"`
	CreatedAt     time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// LowStock reports whether the current quantity sits below the safe threshold.
func (i *Ingredient) LowStock() bool {
	return i.Quantity < i.SafeThreshold
}

// StockLevel is the result of a ledger reserve or release: the post-operation
// quantity together with the threshold it is judged against.
type StockLevel struct {
	IngredientID  int64 `json:"ingredient_id"`
	Quantity      int   `json:"quantity"`
	SafeThreshold int   `json:"safe_threshold"`
}

// Low reports whether the post-operation quantity crossed into low stock.
func (s StockLevel) Low() bool {
	return s.Quantity < s.SafeThreshold
}

// LowStockAlert is one line of the low-stock notification email.
type LowStockAlert struct {
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	SafeThreshold int    `json:"safe_threshold"`
}
