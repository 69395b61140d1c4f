package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisplayType is the derived sellable indicator on a product. It is a cache
// over the product's ingredient stock levels, recomputed after every ledger
// mutation that touches one of them.
type DisplayType int

const (
	DisplaySellable DisplayType = 1
	DisplayLowStock DisplayType = 2
)

// Product is a menu item as the cart engine sees it.
type Product struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	SellPrice     decimal.Decimal `json:"sell_price" db:"sell_price"`
	Image         string          `json:"image" db:"image"`
	DisplayType   DisplayType     `json:"display_type" db:"display_type"`
	IngredientIDs []int64         `json:"ingredient_ids"`
	CreatedAt     time.Time       `json:"created_at,omitempty" db:"created_at"`
}

// DisplayTypeFor computes the availability flag from current ingredient state:
// low stock if any consumed ingredient sits below its threshold.
func DisplayTypeFor(ingredients []Ingredient) DisplayType {
	for i := range ingredients {
		if ingredients[i].LowStock() {
			return DisplayLowStock
		}
	}
	return DisplaySellable
}
