package cart

import (
	"context"
	"fmt"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Tx is the transactional surface a single cart mutation runs against. Every
// call inside one WithTx either commits together or not at all, covering the
// ingredient adjustments, the display-type recompute, and the line itself.
type Tx interface {
	GetTable(ctx context.Context, tableID int64) (*models.Table, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ReserveIngredient(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error)
	ReleaseIngredient(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error)
	RecomputeDisplayType(ctx context.Context, productID int64) (models.DisplayType, error)
	GetLine(ctx context.Context, tableID, productID int64) (*models.CartLine, error)
	InsertLine(ctx context.Context, line *models.CartLine) error
	UpdateLine(ctx context.Context, lineID int64, quantity int, fulfillment []models.FulfillmentEntry) error
	DeleteLine(ctx context.Context, lineID int64) error
}

// Store opens cart mutation transactions and serves cart reads.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	CartLines(ctx context.Context, tableID int64) ([]models.CartLine, error)
}

// Service is the cart line manager: it keeps a table's cart lines, the
// ingredient ledger, and each product's availability flag mutually
// consistent.
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a new cart service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// AddToCart reserves stock for qty units of the product and increments (or
// creates) the table's cart line. The reservation runs ingredient by
// ingredient in the product's reference order; the first failure aborts the
// whole transaction, so no partial stock consumption survives.
func (s *Service) AddToCart(ctx context.Context, tableID, productID int64, qty int, requestID string) (*models.CartLine, error) {
	if qty < 1 {
		return nil, models.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}

	var result *models.CartLine
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetTable(ctx, tableID); err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		for _, ingredientID := range product.IngredientIDs {
			if _, err := tx.ReserveIngredient(ctx, ingredientID, qty); err != nil {
				return err
			}
		}

		if err := s.recompute(ctx, tx, product); err != nil {
			return err
		}

		line, err := tx.GetLine(ctx, tableID, productID)
		if err != nil {
			return err
		}
		if line != nil {
			line.Quantity += qty
			if err := tx.UpdateLine(ctx, line.ID, line.Quantity, line.Fulfillment); err != nil {
				return err
			}
			result = line
			return nil
		}

		line = &models.CartLine{
			TableID:     tableID,
			ProductID:   productID,
			ProductName: product.Name,
			Quantity:    qty,
			Fulfillment: []models.FulfillmentEntry{{State: models.FulfillmentPending, DoneQuantity: 0}},
		}
		if err := tx.InsertLine(ctx, line); err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cart_line_added", "Added product to cart", requestID, map[string]interface{}{
		"table_id":   tableID,
		"product_id": productID,
		"quantity":   qty,
	})
	return result, nil
}

// RemoveFromCart releases stock for qty units and decrements or deletes the
// line. Removing more than the line holds is rejected, never clamped: a clamp
// would release stock that was never reserved.
func (s *Service) RemoveFromCart(ctx context.Context, tableID, productID int64, qty int, requestID string) error {
	if qty < 1 {
		return models.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		line, err := tx.GetLine(ctx, tableID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return models.ErrLineNotFound
		}
		if qty > line.Quantity {
			return fmt.Errorf("%w: line holds %d, remove requested %d", models.ErrCannotRemove, line.Quantity, qty)
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		for _, ingredientID := range product.IngredientIDs {
			if _, err := tx.ReleaseIngredient(ctx, ingredientID, qty); err != nil {
				return err
			}
		}

		if err := s.recompute(ctx, tx, product); err != nil {
			return err
		}

		newQty := line.Quantity - qty
		if newQty == 0 {
			return tx.DeleteLine(ctx, line.ID)
		}
		return tx.UpdateLine(ctx, line.ID, newQty, clampFulfillment(line.Fulfillment, newQty))
	})
	if err != nil {
		return err
	}

	s.logger.Debug("cart_line_removed", "Removed product from cart", requestID, map[string]interface{}{
		"table_id":   tableID,
		"product_id": productID,
		"quantity":   qty,
	})
	return nil
}

// SetQuantity moves an existing line to newQty, reserving or releasing the
// difference. newQty of zero deletes the line.
func (s *Service) SetQuantity(ctx context.Context, tableID, productID int64, newQty int, requestID string) error {
	if newQty < 0 {
		return models.ValidationError{Field: "quantity", Message: "quantity cannot be negative"}
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		line, err := tx.GetLine(ctx, tableID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return models.ErrLineNotFound
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		delta := newQty - line.Quantity
		switch {
		case delta > 0:
			for _, ingredientID := range product.IngredientIDs {
				if _, err := tx.ReserveIngredient(ctx, ingredientID, delta); err != nil {
					return err
				}
			}
		case delta < 0:
			for _, ingredientID := range product.IngredientIDs {
				if _, err := tx.ReleaseIngredient(ctx, ingredientID, -delta); err != nil {
					return err
				}
			}
		default:
			return nil
		}

		if err := s.recompute(ctx, tx, product); err != nil {
			return err
		}

		if newQty == 0 {
			return tx.DeleteLine(ctx, line.ID)
		}
		return tx.UpdateLine(ctx, line.ID, newQty, clampFulfillment(line.Fulfillment, newQty))
	})
	if err != nil {
		return err
	}

	s.logger.Debug("cart_line_set", "Set cart line quantity", requestID, map[string]interface{}{
		"table_id":   tableID,
		"product_id": productID,
		"quantity":   newQty,
	})
	return nil
}

// Cart returns the table's current lines in insertion order.
func (s *Service) Cart(ctx context.Context, tableID int64) ([]models.CartLine, error) {
	return s.store.CartLines(ctx, tableID)
}

// recompute refreshes the product's availability flag from current ingredient
// state. It is the last step of every ledger mutation; nothing else writes
// display_type once the product exists.
func (s *Service) recompute(ctx context.Context, tx Tx, product *models.Product) error {
	if len(product.IngredientIDs) == 0 {
		return nil
	}
	displayType, err := tx.RecomputeDisplayType(ctx, product.ID)
	if err != nil {
		return err
	}
	product.DisplayType = displayType
	return nil
}

// clampFulfillment keeps done_quantity within the new line quantity after a
// decrease.
func clampFulfillment(entries []models.FulfillmentEntry, quantity int) []models.FulfillmentEntry {
	clamped := make([]models.FulfillmentEntry, len(entries))
	for i, entry := range entries {
		if entry.DoneQuantity > quantity {
			entry.DoneQuantity = quantity
		}
		clamped[i] = entry
	}
	return clamped
}
