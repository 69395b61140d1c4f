package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailKind selects how the mail subscriber renders a message.
type EmailKind string

const (
	EmailInvoice             EmailKind = "invoice"
	EmailPaymentConfirmation EmailKind = "payment_confirmation"
	EmailLowStock            EmailKind = "low_stock"
)

// EmailMessage is the queue payload for every best-effort mail side effect.
// Exactly one of Invoice or LowStock is populated depending on Kind.
type EmailMessage struct {
	Kind      EmailKind       `json:"kind"`
	Recipient string          `json:"recipient"`
	Invoice   *InvoiceDetails `json:"invoice,omitempty"`
	LowStock  []LowStockAlert `json:"low_stock,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// InvoiceDetails carries the order summary rendered into invoice and
// payment-confirmation emails.
type InvoiceDetails struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	Discount     decimal.Decimal `json:"discount"`
	FinalPrice   decimal.Decimal `json:"final_price"`
	Cart         []SnapshotLine  `json:"cart"`
}

// NewInvoiceEmail builds the invoice message for a settled order.
func NewInvoiceEmail(order *Order) *EmailMessage {
	return &EmailMessage{
		Kind:      EmailInvoice,
		Recipient: order.Email,
		Invoice:   invoiceDetails(order),
		Timestamp: time.Now().UTC(),
	}
}

// NewPaymentConfirmationEmail builds the message sent after a successful
// gateway callback.
func NewPaymentConfirmationEmail(order *Order) *EmailMessage {
	return &EmailMessage{
		Kind:      EmailPaymentConfirmation,
		Recipient: order.Email,
		Invoice:   invoiceDetails(order),
		Timestamp: time.Now().UTC(),
	}
}

// NewLowStockEmail builds the inventory warning for the back office.
func NewLowStockEmail(recipient string, alerts []LowStockAlert) *EmailMessage {
	return &EmailMessage{
		Kind:      EmailLowStock,
		Recipient: recipient,
		LowStock:  alerts,
		Timestamp: time.Now().UTC(),
	}
}

func invoiceDetails(order *Order) *InvoiceDetails {
	return &InvoiceDetails{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Discount:     order.Discount,
		FinalPrice:   order.FinalPrice,
		Cart:         order.Cart,
	}
}
