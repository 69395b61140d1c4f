package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order settles.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

// OrderStatus represents the settlement state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPaid      OrderStatus = "paid"
	StatusFailed    OrderStatus = "failed"
)

// SnapshotProduct captures the product as it was when the order was created.
// Later menu or price edits never touch it.
type SnapshotProduct struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// SnapshotLine is one immutable cart line inside an order.
type SnapshotLine struct {
	Product   SnapshotProduct `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Order is the immutable settlement record produced from a cart.
type Order struct {
	ID            string           `json:"id" db:"id"`
	CustomerName  string           `json:"customer_name" db:"customer_name"`
	Phone         string           `json:"phone" db:"phone"`
	Email         string           `json:"email" db:"email"`
	PaymentMethod PaymentMethod    `json:"payment_method" db:"payment_method"`
	Discount      decimal.Decimal  `json:"discount" db:"discount"`
	FinalPrice    decimal.Decimal  `json:"final_price" db:"final_price"`
	Cart          []SnapshotLine   `json:"cart"`
	Status        OrderStatus      `json:"status" db:"status"`
	PaymentAmount *decimal.Decimal `json:"payment_amount,omitempty" db:"payment_amount"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// SnapshotTotal sums the line totals of an order snapshot.
func SnapshotTotal(lines []SnapshotLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].LineTotal)
	}
	return total
}

// OrderLineInput is one cart line as submitted at checkout. The live product
// is resolved during settlement to build the snapshot.
type OrderLineInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest represents the request to settle a cart into an order.
type CreateOrderRequest struct {
	CustomerName  string           `json:"customer_name"`
	Phone         string           `json:"phone"`
	Email         string           `json:"email"`
	PaymentMethod string           `json:"payment_method"`
	Cart          []OrderLineInput `json:"cart"`
	CouponCode    string           `json:"coupon_code,omitempty"`
}

// CreateOrderResponse represents the response after creating an order. For
// online payment the order stays pending and PaymentURL carries the signed
// gateway redirect.
type CreateOrderResponse struct {
	OrderID    string          `json:"order_id"`
	Status     OrderStatus     `json:"status"`
	FinalPrice decimal.Decimal `json:"final_price"`
	PaymentURL string          `json:"payment_url,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks the settlement request before any state is touched.
func (req *CreateOrderRequest) Validate() error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return ValidationError{Field: "customer_name", Message: "customer name is required"}
	}
	if len(req.CustomerName) > 100 {
		return ValidationError{Field: "customer_name", Message: "customer name must not exceed 100 characters"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return ValidationError{Field: "phone", Message: "phone is required"}
	}
	if req.Email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailPattern.MatchString(req.Email) {
		return ValidationError{Field: "email", Message: "email is not valid"}
	}

	switch PaymentMethod(req.PaymentMethod) {
	case PaymentCash, PaymentOnline:
	default:
		return ValidationError{Field: "payment_method", Message: "payment_method must be one of: cash, online"}
	}

	if len(req.Cart) == 0 {
		return ValidationError{Field: "cart", Message: "cart cannot be empty"}
	}
	for i, line := range req.Cart {
		if line.ProductID <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("cart[%d].product_id", i),
				Message: "product_id is required",
			}
		}
		if line.Quantity < 1 {
			return ValidationError{
				Field:   fmt.Sprintf("cart[%d].quantity", i),
				Message: "quantity must be at least 1",
			}
		}
	}

	return nil
}
