package payment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Store is the persistence surface for settlement of gateway callbacks.
// MarkOrderPaid is a guarded update: it only transitions an order out of
// pending and reports whether a row actually changed.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string, amount decimal.Decimal) (bool, error)
}

// Publisher dispatches best-effort email side effects.
type Publisher interface {
	PublishEmail(ctx context.Context, msg *models.EmailMessage) error
}

// CallbackOutcome reports how a verified callback settled.
type CallbackOutcome struct {
	OrderID     string
	AlreadyPaid bool
}

// Service verifies gateway callbacks and finalizes the matching order exactly
// once.
type Service struct {
	gateway   *Gateway
	store     Store
	publisher Publisher
	logger    *logger.Logger
}

// NewService creates a new payment settlement service
func NewService(gateway *Gateway, store Store, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		gateway:   gateway,
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// HandleCallback verifies the signed callback and transitions the order from
// pending to paid. Replays are safe: the guarded update finds the order
// already paid and the handler reports success without a second email.
func (s *Service) HandleCallback(ctx context.Context, query url.Values, requestID string) (*CallbackOutcome, error) {
	result, err := s.gateway.VerifyCallback(query)
	if err != nil {
		return nil, err
	}

	paid, err := s.store.MarkOrderPaid(ctx, result.TxnRef, result.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if !paid {
		order, err := s.store.GetOrder(ctx, result.TxnRef)
		if err != nil {
			return nil, err
		}
		if order.Status == models.StatusPaid {
			s.logger.Debug("callback_replayed", "Callback for an already paid order", requestID, map[string]interface{}{
				"order_id": order.ID,
			})
			return &CallbackOutcome{OrderID: order.ID, AlreadyPaid: true}, nil
		}
		return nil, fmt.Errorf("order %s is not awaiting payment (status %s)", order.ID, order.Status)
	}

	order, err := s.store.GetOrder(ctx, result.TxnRef)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishEmail(ctx, models.NewPaymentConfirmationEmail(order)); err != nil {
		s.logger.Error("email_publish_failed", "Failed to queue payment confirmation email", requestID, err, map[string]interface{}{
			"order_id": order.ID,
		})
	}

	s.logger.Info("payment_settled", "Order paid via gateway callback", requestID, map[string]interface{}{
		"order_id": order.ID,
		"amount":   result.Amount.String(),
	})
	return &CallbackOutcome{OrderID: order.ID}, nil
}
