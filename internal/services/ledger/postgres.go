package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"tableside/internal/database"
	"tableside/internal/models"
)

// PostgresStore implements Store on the shared connection pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL-backed ledger store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Reserve runs the conditional decrement. Zero rows means either the
// ingredient is missing or the floor check failed; a follow-up read tells the
// two apart.
func (s *PostgresStore) Reserve(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error) {
	level := models.StockLevel{IngredientID: ingredientID}

	err := s.db.QueryRow(ctx, database.ReserveIngredientSQL, ingredientID, amount).
		Scan(&level.Quantity, &level.SafeThreshold)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.StockLevel{}, fmt.Errorf("failed to reserve ingredient: %w", err)
	}

	var ing models.Ingredient
	err = s.db.QueryRow(ctx, database.GetIngredientSQL, ingredientID).
		Scan(&ing.ID, &ing.Name, &ing.Quantity, &ing.SafeThreshold, &ing.CreatedAt, &ing.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StockLevel{}, models.NotFoundError{Resource: "ingredient", ID: strconv.FormatInt(ingredientID, 10)}
	}
	if err != nil {
		return models.StockLevel{}, fmt.Errorf("failed to look up ingredient: %w", err)
	}

	return models.StockLevel{}, models.InsufficientStockError{
		IngredientID:   ingredientID,
		IngredientName: ing.Name,
		Requested:      amount,
	}
}

// Release runs the unconditional increment.
func (s *PostgresStore) Release(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error) {
	level := models.StockLevel{IngredientID: ingredientID}

	err := s.db.QueryRow(ctx, database.ReleaseIngredientSQL, ingredientID, amount).
		Scan(&level.Quantity, &level.SafeThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StockLevel{}, models.NotFoundError{Resource: "ingredient", ID: strconv.FormatInt(ingredientID, 10)}
	}
	if err != nil {
		return models.StockLevel{}, fmt.Errorf("failed to release ingredient: %w", err)
	}
	return level, nil
}

// IngredientsByIDs loads the given ingredients in id order.
func (s *PostgresStore) IngredientsByIDs(ctx context.Context, ids []int64) ([]models.Ingredient, error) {
	rows, err := s.db.Query(ctx, database.GetIngredientsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []models.Ingredient
	for rows.Next() {
		var ing models.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Quantity, &ing.SafeThreshold, &ing.CreatedAt, &ing.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

// LowStockIngredients lists every ingredient below its threshold.
func (s *PostgresStore) LowStockIngredients(ctx context.Context) ([]models.LowStockAlert, error) {
	rows, err := s.db.Query(ctx, database.GetLowStockIngredientsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock ingredients: %w", err)
	}
	defer rows.Close()

	var alerts []models.LowStockAlert
	for rows.Next() {
		var alert models.LowStockAlert
		if err := rows.Scan(&alert.Name, &alert.Quantity, &alert.SafeThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan low stock row: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
