package ledger

import (
	"context"
	"fmt"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Store is the persistence surface for ingredient stock counts. Reserve and
// Release must be atomic per ingredient: the floor check and the write happen
// as one conditional update, never as a separate read-then-write pair.
type Store interface {
	Reserve(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error)
	Release(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error)
	IngredientsByIDs(ctx context.Context, ids []int64) ([]models.Ingredient, error)
	LowStockIngredients(ctx context.Context) ([]models.LowStockAlert, error)
}

// Service is the ingredient ledger: the authoritative stock count per
// ingredient, with a floor at zero.
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a new ledger service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// Reserve decrements an ingredient's stock, failing if the decrement would
// push the count negative. The returned level tells the caller whether the
// ingredient now sits below its safe threshold.
func (s *Service) Reserve(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error) {
	if amount < 1 {
		return models.StockLevel{}, models.ValidationError{Field: "amount", Message: "amount must be at least 1"}
	}
	return s.store.Reserve(ctx, ingredientID, amount)
}

// Release returns previously reserved stock. There is no upper bound: the
// ledger does not track a maximum, so a release always succeeds for an
// existing ingredient.
func (s *Service) Release(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error) {
	if amount < 1 {
		return models.StockLevel{}, models.ValidationError{Field: "amount", Message: "amount must be at least 1"}
	}
	return s.store.Release(ctx, ingredientID, amount)
}

// LowStockAmong returns the low-stock alerts for the given ingredients only.
// The settlement service uses it to report on the ingredients an order
// actually consumed.
func (s *Service) LowStockAmong(ctx context.Context, ingredientIDs []int64) ([]models.LowStockAlert, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}

	ingredients, err := s.store.IngredientsByIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}

	var alerts []models.LowStockAlert
	for i := range ingredients {
		if ingredients[i].LowStock() {
			alerts = append(alerts, models.LowStockAlert{
				Name:          ingredients[i].Name,
				Quantity:      ingredients[i].Quantity,
				SafeThreshold: ingredients[i].SafeThreshold,
			})
		}
	}
	return alerts, nil
}

// LowStock returns every ingredient currently below its safe threshold.
func (s *Service) LowStock(ctx context.Context) ([]models.LowStockAlert, error) {
	return s.store.LowStockIngredients(ctx)
}
