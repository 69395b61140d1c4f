package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tableside/internal/logger"
	"tableside/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	products    map[int64]*models.Product
	coupons     map[string]*models.Coupon
	orders      map[string]*models.Order
	insertOrder []string
	failInsert  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[int64]*models.Product),
		coupons:  make(map[string]*models.Coupon),
		orders:   make(map[string]*models.Order),
	}
}

func (s *fakeStore) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok {
		return nil, models.NotFoundError{Resource: "product", ID: fmt.Sprint(productID)}
	}
	copied := *product
	return &copied, nil
}

func (s *fakeStore) RedeemCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coupon, ok := s.coupons[code]
	if !ok || coupon.CurrentUsage >= coupon.MaxUsage {
		return nil, nil
	}
	coupon.CurrentUsage++
	copied := *coupon
	return &copied, nil
}

func (s *fakeStore) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coupon, ok := s.coupons[code]
	if !ok {
		return nil, nil
	}
	copied := *coupon
	return &copied, nil
}

func (s *fakeStore) InsertOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return errors.New("storage unavailable")
	}
	copied := *order
	s.orders[order.ID] = &copied
	s.insertOrder = append(s.insertOrder, order.ID)
	order.CreatedAt = time.Now()
	return nil
}

func (s *fakeStore) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []models.Order
	for i := len(s.insertOrder) - 1; i >= 0 && len(orders) < limit; i-- {
		orders = append(orders, *s.orders[s.insertOrder[i]])
	}
	return orders, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*models.EmailMessage
	fail     bool
}

func (p *fakePublisher) PublishEmail(ctx context.Context, msg *models.EmailMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fakeRedirector struct{}

func (fakeRedirector) PaymentURL(txnRef string, amount decimal.Decimal, clientIP string, now time.Time) string {
	return fmt.Sprintf("https://gateway.example/pay?ref=%s&amount=%s", txnRef, amount.String())
}

type fakeStockWatcher struct {
	alerts []models.LowStockAlert
}

func (w *fakeStockWatcher) LowStockAmong(ctx context.Context, ingredientIDs []int64) ([]models.LowStockAlert, error) {
	return w.alerts, nil
}

type fixture struct {
	store     *fakeStore
	publisher *fakePublisher
	stock     *fakeStockWatcher
	service   *Service
}

func newFixture() *fixture {
	store := newFakeStore()
	store.products[1] = &models.Product{
		ID: 1, Name: "Latte",
		Price:         decimal.NewFromFloat(3.00),
		SellPrice:     decimal.NewFromFloat(4.50),
		Image:         "latte.png",
		IngredientIDs: []int64{10, 11},
	}
	store.products[2] = &models.Product{
		ID: 2, Name: "Croissant",
		Price:     decimal.NewFromFloat(2.00),
		SellPrice: decimal.NewFromFloat(2.80),
		Image:     "croissant.png",
	}

	publisher := &fakePublisher{}
	stock := &fakeStockWatcher{}
	service := NewService(store, publisher, fakeRedirector{}, stock, "manager@example.com", logger.New("order-test"))
	return &fixture{store: store, publisher: publisher, stock: stock, service: service}
}

func validRequest() *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		CustomerName:  "Dana",
		Phone:         "555-0100",
		Email:         "dana@example.com",
		PaymentMethod: "cash",
		Cart: []models.OrderLineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name   string
		mutate func(*models.CreateOrderRequest)
		field  string
	}{
		{"missing name", func(r *models.CreateOrderRequest) { r.CustomerName = " " }, "customer_name"},
		{"missing phone", func(r *models.CreateOrderRequest) { r.Phone = "" }, "phone"},
		{"bad email", func(r *models.CreateOrderRequest) { r.Email = "not-an-email" }, "email"},
		{"bad method", func(r *models.CreateOrderRequest) { r.PaymentMethod = "cheque" }, "payment_method"},
		{"empty cart", func(r *models.CreateOrderRequest) { r.Cart = nil }, "cart"},
		{"zero quantity", func(r *models.CreateOrderRequest) { r.Cart[0].Quantity = 0 }, "cart[0].quantity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)

			_, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
			var validationErr models.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if validationErr.Field != tc.field {
				t.Errorf("field = %q, want %q", validationErr.Field, tc.field)
			}
			if len(f.store.orders) != 0 {
				t.Error("order persisted despite validation failure")
			}
		})
	}
}

func TestCreateOrder_CashConfirmsAndQueuesInvoice(t *testing.T) {
	f := newFixture()

	response, err := f.service.CreateOrder(context.Background(), validRequest(), "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if response.Status != models.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", response.Status)
	}
	if response.PaymentURL != "" {
		t.Errorf("cash order carries a payment URL: %s", response.PaymentURL)
	}

	// 2 x 4.50 + 1 x 2.80 at sell price.
	want := decimal.NewFromFloat(11.80)
	if !response.FinalPrice.Equal(want) {
		t.Errorf("final price = %s, want %s", response.FinalPrice, want)
	}

	if len(f.publisher.messages) != 1 {
		t.Fatalf("published %d emails, want 1", len(f.publisher.messages))
	}
	msg := f.publisher.messages[0]
	if msg.Kind != models.EmailInvoice {
		t.Errorf("email kind = %s, want invoice", msg.Kind)
	}
	if msg.Recipient != "dana@example.com" {
		t.Errorf("email recipient = %s", msg.Recipient)
	}
	if len(msg.Invoice.Cart) != 2 {
		t.Errorf("invoice carries %d lines, want 2", len(msg.Invoice.Cart))
	}
}

func TestCreateOrder_OnlineStaysPendingWithRedirect(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.PaymentMethod = "online"

	response, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if response.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", response.Status)
	}
	if !strings.Contains(response.PaymentURL, response.OrderID) {
		t.Errorf("payment URL %q does not reference the order", response.PaymentURL)
	}

	// No invoice for online orders; the confirmation follows the callback.
	if len(f.publisher.messages) != 0 {
		t.Errorf("published %d emails, want 0", len(f.publisher.messages))
	}
}

func TestCreateOrder_OnlineDispatchesLowStockWarning(t *testing.T) {
	f := newFixture()
	f.stock.alerts = []models.LowStockAlert{{Name: "milk", Quantity: 2, SafeThreshold: 3}}
	req := validRequest()
	req.PaymentMethod = "online"

	if _, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1"); err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	if len(f.publisher.messages) != 1 {
		t.Fatalf("published %d emails, want 1", len(f.publisher.messages))
	}
	msg := f.publisher.messages[0]
	if msg.Kind != models.EmailLowStock {
		t.Errorf("email kind = %s, want low_stock", msg.Kind)
	}
	if msg.Recipient != "manager@example.com" {
		t.Errorf("low stock warning sent to %s", msg.Recipient)
	}
	if len(msg.LowStock) != 1 || msg.LowStock[0].Name != "milk" {
		t.Errorf("unexpected alerts: %+v", msg.LowStock)
	}
}

func TestCreateOrder_SnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture()

	response, err := f.service.CreateOrder(context.Background(), validRequest(), "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	// A later menu edit must not touch the settled order.
	f.store.mu.Lock()
	f.store.products[1].SellPrice = decimal.NewFromFloat(9.99)
	f.store.products[1].Name = "Seasonal Latte"
	f.store.mu.Unlock()

	order := f.store.orders[response.OrderID]
	if !order.Cart[0].Product.Price.Equal(decimal.NewFromFloat(4.50)) {
		t.Errorf("snapshot price = %s, want 4.50", order.Cart[0].Product.Price)
	}
	if order.Cart[0].Product.Name != "Latte" {
		t.Errorf("snapshot name = %s, want Latte", order.Cart[0].Product.Name)
	}
	if !order.FinalPrice.Equal(decimal.NewFromFloat(11.80)) {
		t.Errorf("final price = %s, want 11.80", order.FinalPrice)
	}
}

func TestCreateOrder_CouponDiscountAndFloor(t *testing.T) {
	f := newFixture()
	f.store.coupons["BIG50"] = &models.Coupon{
		ID: 1, Code: "BIG50",
		DiscountValue: decimal.NewFromFloat(50.00),
		MaxUsage:      10,
	}
	req := validRequest()
	req.CouponCode = "BIG50"

	response, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	// Discount exceeds the cart total; the final price floors at zero.
	if !response.FinalPrice.Equal(decimal.Zero) {
		t.Errorf("final price = %s, want 0", response.FinalPrice)
	}
	if f.store.coupons["BIG50"].CurrentUsage != 1 {
		t.Errorf("coupon usage = %d, want 1", f.store.coupons["BIG50"].CurrentUsage)
	}
}

func TestCreateOrder_CouponNotFound(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.CouponCode = "NOPE"

	_, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
	if !errors.Is(err, models.ErrCouponNotFound) {
		t.Fatalf("error = %v, want ErrCouponNotFound", err)
	}
	if len(f.store.orders) != 0 {
		t.Error("order persisted despite unknown coupon")
	}
}

func TestCreateOrder_CouponExhausted(t *testing.T) {
	f := newFixture()
	f.store.coupons["SAVE10"] = &models.Coupon{
		ID: 1, Code: "SAVE10",
		DiscountValue: decimal.NewFromFloat(10.00),
		MaxUsage:      1, CurrentUsage: 1,
	}
	req := validRequest()
	req.CouponCode = "SAVE10"

	_, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
	if !errors.Is(err, models.ErrCouponExhausted) {
		t.Fatalf("error = %v, want ErrCouponExhausted", err)
	}
}

func TestCreateOrder_ConcurrentCouponRace(t *testing.T) {
	f := newFixture()
	f.store.coupons["SAVE10"] = &models.Coupon{
		ID: 1, Code: "SAVE10",
		DiscountValue: decimal.NewFromFloat(1.00),
		MaxUsage:      1,
	}

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.CouponCode = "SAVE10"
			_, errs[i] = f.service.CreateOrder(context.Background(), req, "127.0.0.1", fmt.Sprintf("req-%d", i))
		}(i)
	}
	wg.Wait()

	succeeded, exhausted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrCouponExhausted):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d orders claimed the coupon, want exactly 1", succeeded)
	}
	if exhausted != racers-1 {
		t.Errorf("%d callers saw exhaustion, want %d", exhausted, racers-1)
	}
	if f.store.coupons["SAVE10"].CurrentUsage != 1 {
		t.Errorf("coupon usage = %d, want 1", f.store.coupons["SAVE10"].CurrentUsage)
	}
}

func TestCreateOrder_OrphanedCouponSurfacesError(t *testing.T) {
	f := newFixture()
	f.store.coupons["SAVE10"] = &models.Coupon{
		ID: 1, Code: "SAVE10",
		DiscountValue: decimal.NewFromFloat(1.00),
		MaxUsage:      5,
	}
	f.store.failInsert = true
	req := validRequest()
	req.CouponCode = "SAVE10"

	_, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
	if err == nil {
		t.Fatal("CreateOrder succeeded despite storage failure")
	}

	// The usage slot stays claimed; reconciliation is an operational task.
	if f.store.coupons["SAVE10"].CurrentUsage != 1 {
		t.Errorf("coupon usage = %d, want 1", f.store.coupons["SAVE10"].CurrentUsage)
	}
}

func TestCreateOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture()
	f.publisher.fail = true

	response, err := f.service.CreateOrder(context.Background(), validRequest(), "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if _, ok := f.store.orders[response.OrderID]; !ok {
		t.Error("order not persisted")
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Cart = []models.OrderLineInput{{ProductID: 99, Quantity: 1}}

	_, err := f.service.CreateOrder(context.Background(), req, "127.0.0.1", "req-1")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListOrders_NewestFirstWithDefaultLimit(t *testing.T) {
	f := newFixture()
	for i := 0; i < 3; i++ {
		if _, err := f.service.CreateOrder(context.Background(), validRequest(), "127.0.0.1", fmt.Sprintf("req-%d", i)); err != nil {
			t.Fatalf("CreateOrder returned error: %v", err)
		}
	}

	orders, err := f.service.ListOrders(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("listed %d orders, want 3", len(orders))
	}
	if orders[0].ID != f.store.insertOrder[2] {
		t.Error("orders not returned newest first")
	}
}
