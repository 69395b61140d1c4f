package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tableside/internal/database"
	"tableside/internal/models"
)

// PostgresStore implements Store on the shared connection pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL-backed payment store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	var cart []byte
	err := s.db.QueryRow(ctx, database.GetOrderSQL, orderID).Scan(
		&order.ID, &order.CustomerName, &order.Phone, &order.Email,
		&order.PaymentMethod, &order.Discount, &order.FinalPrice,
		&cart, &order.Status, &order.PaymentAmount, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError{Resource: "order", ID: orderID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	if err := json.Unmarshal(cart, &order.Cart); err != nil {
		return nil, fmt.Errorf("failed to decode order cart: %w", err)
	}
	return &order, nil
}

// MarkOrderPaid transitions pending -> paid. The status guard in the WHERE
// clause makes replayed callbacks a no-op.
func (s *PostgresStore) MarkOrderPaid(ctx context.Context, orderID string, amount decimal.Decimal) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, database.MarkOrderPaidSQL, orderID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
