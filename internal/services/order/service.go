package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Store is the persistence surface for order settlement. RedeemCoupon is a
// guarded increment: it returns the coupon only if a usage slot was actually
// claimed, and (nil, nil) when the conditional update matched no row.
type Store interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	RedeemCoupon(ctx context.Context, code string) (*models.Coupon, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, limit int) ([]models.Order, error)
}

// Publisher dispatches best-effort email side effects.
type Publisher interface {
	PublishEmail(ctx context.Context, msg *models.EmailMessage) error
}

// Redirector builds the signed gateway redirect for an online order.
type Redirector interface {
	PaymentURL(txnRef string, amount decimal.Decimal, clientIP string, now time.Time) string
}

// StockWatcher reports which of the given ingredients sit below their safe
// threshold.
type StockWatcher interface {
	LowStockAmong(ctx context.Context, ingredientIDs []int64) ([]models.LowStockAlert, error)
}

// Service settles carts into immutable orders: it captures the product
// snapshot, redeems the coupon, and routes the order to cash confirmation or
// the online payment gateway.
type Service struct {
	store      Store
	publisher  Publisher
	redirector Redirector
	stock      StockWatcher
	adminEmail string
	logger     *logger.Logger
}

// NewService creates a new order settlement service
func NewService(store Store, publisher Publisher, redirector Redirector, stock StockWatcher, adminEmail string, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		publisher:  publisher,
		redirector: redirector,
		stock:      stock,
		adminEmail: adminEmail,
		logger:     log,
	}
}

// CreateOrder validates the request, snapshots the live products, redeems the
// coupon, and persists the order. Cash orders are confirmed immediately and
// an invoice email is queued; online orders stay pending and the response
// carries the signed gateway redirect.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, clientIP, requestID string) (*models.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, ingredientIDs, err := s.buildSnapshot(ctx, req.Cart)
	if err != nil {
		return nil, err
	}

	total := models.SnapshotTotal(snapshot)

	discount := decimal.Zero
	couponRedeemed := false
	if req.CouponCode != "" {
		coupon, err := s.redeemCoupon(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
		discount = coupon.DiscountValue
		couponRedeemed = true
	}

	finalPrice := total.Sub(discount)
	if finalPrice.IsNegative() {
		finalPrice = decimal.Zero
	}

	method := models.PaymentMethod(req.PaymentMethod)
	status := models.StatusConfirmed
	if method == models.PaymentOnline {
		status = models.StatusPending
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Email:         req.Email,
		PaymentMethod: method,
		Discount:      discount,
		FinalPrice:    finalPrice,
		Cart:          snapshot,
		Status:        status,
	}

	if err := s.store.InsertOrder(ctx, order); err != nil {
		if couponRedeemed {
			// The usage slot was claimed but no order references it. Leave
			// it for an operational audit rather than trying to undo it.
			s.logger.Error("coupon_orphaned", "Coupon redeemed but order was not persisted", requestID, err, map[string]interface{}{
				"coupon_code": req.CouponCode,
			})
		}
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	response := &models.CreateOrderResponse{
		OrderID:    order.ID,
		Status:     order.Status,
		FinalPrice: order.FinalPrice,
	}

	if method == models.PaymentOnline {
		response.PaymentURL = s.redirector.PaymentURL(order.ID, order.FinalPrice, clientIP, time.Now())
		s.notifyLowStock(ctx, ingredientIDs, requestID)
	} else {
		s.publishEmail(ctx, models.NewInvoiceEmail(order), requestID, order.ID)
	}

	s.logger.Info("order_created", "Order settled from cart", requestID, map[string]interface{}{
		"order_id":       order.ID,
		"payment_method": string(method),
		"final_price":    order.FinalPrice.String(),
	})
	return response, nil
}

// ListOrders returns the most recent orders, newest first.
func (s *Service) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.store.ListOrders(ctx, limit)
}

// buildSnapshot resolves each requested product and freezes its identity and
// sell price into the order. It also collects the ingredient ids the order's
// products consume, for the low stock notification.
func (s *Service) buildSnapshot(ctx context.Context, cart []models.OrderLineInput) ([]models.SnapshotLine, []int64, error) {
	snapshot := make([]models.SnapshotLine, 0, len(cart))
	seen := make(map[int64]bool)
	var ingredientIDs []int64

	for _, line := range cart {
		product, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, nil, err
		}

		snapshot = append(snapshot, models.SnapshotLine{
			Product: models.SnapshotProduct{
				ID:    product.ID,
				Name:  product.Name,
				Price: product.SellPrice,
				Image: product.Image,
			},
			Quantity:  line.Quantity,
			LineTotal: product.SellPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})

		for _, id := range product.IngredientIDs {
			if !seen[id] {
				seen[id] = true
				ingredientIDs = append(ingredientIDs, id)
			}
		}
	}
	return snapshot, ingredientIDs, nil
}

// redeemCoupon claims one usage slot. When the guarded increment finds no
// row, a re-read distinguishes an unknown code from an exhausted one.
func (s *Service) redeemCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.store.RedeemCoupon(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}
	if coupon != nil {
		return coupon, nil
	}

	existing, err := s.store.GetCoupon(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}
	if existing == nil {
		return nil, models.ErrCouponNotFound
	}
	return nil, models.ErrCouponExhausted
}

func (s *Service) notifyLowStock(ctx context.Context, ingredientIDs []int64, requestID string) {
	alerts, err := s.stock.LowStockAmong(ctx, ingredientIDs)
	if err != nil {
		s.logger.Error("low_stock_check_failed", "Failed to check ingredient levels", requestID, err, nil)
		return
	}
	if len(alerts) == 0 {
		return
	}
	s.publishEmail(ctx, models.NewLowStockEmail(s.adminEmail, alerts), requestID, "")
}

func (s *Service) publishEmail(ctx context.Context, msg *models.EmailMessage, requestID, orderID string) {
	if err := s.publisher.PublishEmail(ctx, msg); err != nil {
		s.logger.Error("email_publish_failed", "Failed to queue email", requestID, err, map[string]interface{}{
			"kind":     string(msg.Kind),
			"order_id": orderID,
		})
	}
}
