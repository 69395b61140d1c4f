package models

import "time"

// ActiveStep is the per-table workflow position.
type ActiveStep int

const (
	StepReceived  ActiveStep = 0
	StepPreparing ActiveStep = 1
	StepServed    ActiveStep = 2
)

// FulfillmentState marks how much of a cart line the kitchen has delivered.
type FulfillmentState string

const (
	FulfillmentPending FulfillmentState = "pending"
	FulfillmentDone    FulfillmentState = "done"
)

// FulfillmentEntry is one progress record on a cart line. done_quantity never
// exceeds the line quantity.
type FulfillmentEntry struct {
	State        FulfillmentState `json:"state"`
	DoneQuantity int              `json:"done_quantity"`
}

// CartLine is one product's presence in a table's running cart. A line always
// holds quantity >= 1; dropping to zero removes the line.
type CartLine struct {
	ID          int64              `json:"id" db:"id"`
	TableID     int64              `json:"table_id" db:"table_id"`
	ProductID   int64              `json:"product_id" db:"product_id"`
	ProductName string             `json:"product_name,omitempty"`
	Quantity    int                `json:"quantity" db:"quantity"`
	Fulfillment []FulfillmentEntry `json:"fulfillment"`
	CreatedAt   time.Time          `json:"created_at,omitempty" db:"created_at"`
}

// Table is a seating position with its running cart and workflow state.
// request signals the kitchen from a waiter; notice signals a waiter from the
// kitchen. Both are one-shot flags cleared by their consumer.
type Table struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	ActiveStep ActiveStep `json:"active_step" db:"active_step"`
	Request    bool       `json:"request" db:"request"`
	Notice     bool       `json:"notice" db:"notice"`
	Cart       []CartLine `json:"cart"`
	CreatedAt  time.Time  `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty" db:"updated_at"`
}
