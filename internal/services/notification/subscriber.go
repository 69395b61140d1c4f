package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
)

// Subscriber consumes email messages from the queue and renders them into
// outbound mail. Delivery failures are returned to the broker, which retries
// the message once before dropping it.
type Subscriber struct {
	consumer *messaging.Consumer
	mailer   Mailer
	logger   *logger.Logger
}

// NewSubscriber creates a new email subscriber
func NewSubscriber(conn *messaging.Connection, mailer Mailer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: messaging.NewConsumer(conn, log, messaging.EmailsQueue, "mailer", 10),
		mailer:   mailer,
		logger:   log,
	}
}

// Run consumes until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	return s.consumer.StartConsuming(ctx, s.handle)
}

func (s *Subscriber) handle(ctx context.Context, body []byte) error {
	var msg models.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode email message: %w", err)
	}
	if msg.Recipient == "" {
		return fmt.Errorf("email message of kind %s has no recipient", msg.Kind)
	}

	subject, text, err := render(&msg)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(msg.Recipient, subject, text); err != nil {
		return err
	}

	s.logger.Info("email_sent", "Email delivered", "", map[string]interface{}{
		"kind":      string(msg.Kind),
		"recipient": msg.Recipient,
	})
	return nil
}

func render(msg *models.EmailMessage) (subject, body string, err error) {
	switch msg.Kind {
	case models.EmailInvoice:
		if msg.Invoice == nil {
			return "", "", fmt.Errorf("invoice message without invoice details")
		}
		return fmt.Sprintf("Your order %s is confirmed", msg.Invoice.OrderID), invoiceBody(msg.Invoice), nil
	case models.EmailPaymentConfirmation:
		if msg.Invoice == nil {
			return "", "", fmt.Errorf("payment confirmation without invoice details")
		}
		return fmt.Sprintf("Payment received for order %s", msg.Invoice.OrderID), invoiceBody(msg.Invoice), nil
	case models.EmailLowStock:
		return "Low stock warning", lowStockBody(msg.LowStock), nil
	default:
		return "", "", fmt.Errorf("unknown email kind %q", msg.Kind)
	}
}

func invoiceBody(inv *models.InvoiceDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", inv.CustomerName)
	sb.WriteString("Here is your order summary:\n\n")
	for _, line := range inv.Cart {
		fmt.Fprintf(&sb, "  %d x %s: %s\n", line.Quantity, line.Product.Name, line.LineTotal.StringFixed(2))
	}
	if inv.Discount.IsPositive() {
		fmt.Fprintf(&sb, "\nDiscount: -%s\n", inv.Discount.StringFixed(2))
	}
	fmt.Fprintf(&sb, "Total: %s\n\nThank you for your visit.\n", inv.FinalPrice.StringFixed(2))
	return sb.String()
}

func lowStockBody(alerts []models.LowStockAlert) string {
	var sb strings.Builder
	sb.WriteString("The following ingredients are below their safe threshold:\n\n")
	for _, alert := range alerts {
		fmt.Fprintf(&sb, "  %s: %d left (threshold %d)\n", alert.Name, alert.Quantity, alert.SafeThreshold)
	}
	sb.WriteString("\nPlease restock soon.\n")
	return sb.String()
}
