package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"tableside/internal/database"
	"tableside/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL-backed order store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := s.db.Pool.QueryRow(ctx, database.GetProductSQL, productID).Scan(
		&product.ID, &product.Name, &product.Price, &product.SellPrice,
		&product.Image, &product.DisplayType, &product.IngredientIDs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError{Resource: "product", ID: strconv.FormatInt(productID, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (s *PostgresStore) RedeemCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.Pool.QueryRow(ctx, database.RedeemCouponSQL, code).Scan(
		&coupon.ID, &coupon.Code, &coupon.DiscountValue, &coupon.MaxUsage, &coupon.CurrentUsage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}
	return &coupon, nil
}

func (s *PostgresStore) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.Pool.QueryRow(ctx, database.GetCouponSQL, code).Scan(
		&coupon.ID, &coupon.Code, &coupon.DiscountValue, &coupon.MaxUsage,
		&coupon.CurrentUsage, &coupon.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &coupon, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, order *models.Order) error {
	cart, err := json.Marshal(order.Cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	err = s.db.Pool.QueryRow(ctx, database.InsertOrderSQL,
		order.ID, order.CustomerName, order.Phone, order.Email,
		string(order.PaymentMethod), order.Discount, order.FinalPrice,
		cart, string(order.Status),
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := s.db.Pool.Query(ctx, database.ListOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var cart []byte
		err := rows.Scan(
			&order.ID, &order.CustomerName, &order.Phone, &order.Email,
			&order.PaymentMethod, &order.Discount, &order.FinalPrice,
			&cart, &order.Status, &order.PaymentAmount,
			&order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if err := json.Unmarshal(cart, &order.Cart); err != nil {
			return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
