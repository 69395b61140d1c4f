package cart

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

// PostgresStore implements Store over a pgx transaction per mutation.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL-backed cart store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx runs fn against a single database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithTx(ctx, func(pgtx pgx.Tx) error {
		return fn(&postgresTx{tx: pgtx})
	})
}

// CartLines returns the table's lines joined with product names.
func (s *PostgresStore) CartLines(ctx context.Context, tableID int64) ([]models.CartLine, error) {
	rows, err := s.db.Query(ctx, database.GetCartLinesSQL, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		var fulfillment []byte
		if err := rows.Scan(&line.ID, &line.TableID, &line.ProductID, &line.ProductName,
			&line.Quantity, &fulfillment, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		if err := json.Unmarshal(fulfillment, &line.Fulfillment); err != nil {
			return nil, fmt.Errorf("failed to decode fulfillment: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) GetTable(ctx context.Context, tableID int64) (*models.Table, error) {
	var table models.Table
	err := t.tx.QueryRow(ctx, database.GetTableSQL, tableID).Scan(
		&table.ID, &table.Name, &table.IsActive, &table.ActiveStep,
		&table.Request, &table.Notice, &table.CreatedAt, &table.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError{Resource: "table", ID: strconv.FormatInt(tableID, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	return &table, nil
}

func (t *postgresTx) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.QueryRow(ctx, database.GetProductSQL, productID).Scan(
		&product.ID, &product.Name, &product.Price, &product.SellPrice,
		&product.Image, &product.DisplayType, &product.IngredientIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError{Resource: "product", ID: strconv.FormatInt(productID, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &product, nil
}

func (t *postgresTx) ReserveIngredient(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error) {
	level := models.StockLevel{IngredientID: ingredientID}

	err := t.tx.QueryRow(ctx, database.ReserveIngredientSQL, ingredientID, amount).
		Scan(&level.Quantity, &level.SafeThreshold)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.StockLevel{}, fmt.Errorf("failed to reserve ingredient: %w", err)
	}

	var ing models.Ingredient
	err = t.tx.QueryRow(ctx, database.GetIngredientSQL, ingredientID).
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

func (t *postgresTx) ReleaseIngredient(ctx context.Context, ingredientID int64, amount int) (models.StockLevel, error) {
	level := models.StockLevel{IngredientID: ingredientID}

	err := t.tx.QueryRow(ctx, database.ReleaseIngredientSQL, ingredientID, amount).
		Scan(&level.Quantity, &level.SafeThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StockLevel{}, models.NotFoundError{Resource: "ingredient", ID: strconv.FormatInt(ingredientID, 10)}
	}
	if err != nil {
		return models.StockLevel{}, fmt.Errorf("failed to release ingredient: %w", err)
	}
	return level, nil
}

func (t *postgresTx) RecomputeDisplayType(ctx context.Context, productID int64) (models.DisplayType, error) {
	var displayType models.DisplayType
	err := t.tx.QueryRow(ctx, database.RecomputeDisplayTypeSQL, productID).Scan(&displayType)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute display type: %w", err)
	}
	return displayType, nil
}

func (t *postgresTx) GetLine(ctx context.Context, tableID, productID int64) (*models.CartLine, error) {
	var line models.CartLine
	var fulfillment []byte
	err := t.tx.QueryRow(ctx, database.GetCartLineSQL, tableID, productID).Scan(
		&line.ID, &line.TableID, &line.ProductID, &line.Quantity, &fulfillment, &line.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}
	if err := json.Unmarshal(fulfillment, &line.Fulfillment); err != nil {
		return nil, fmt.Errorf("failed to decode fulfillment: %w", err)
	}
	return &line, nil
}

func (t *postgresTx) InsertLine(ctx context.Context, line *models.CartLine) error {
	fulfillment, err := json.Marshal(line.Fulfillment)
	if err != nil {
		return fmt.Errorf("failed to encode fulfillment: %w", err)
	}
	err = t.tx.QueryRow(ctx, database.InsertCartLineSQL,
		line.TableID, line.ProductID, line.Quantity, fulfillment).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cart line: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateLine(ctx context.Context, lineID int64, quantity int, fulfillment []models.FulfillmentEntry) error {
	encoded, err := json.Marshal(fulfillment)
	if err != nil {
		return fmt.Errorf("failed to encode fulfillment: %w", err)
	}
	if _, err := t.tx.Exec(ctx, database.UpdateCartLineSQL, lineID, quantity, encoded); err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	return nil
}

func (t *postgresTx) DeleteLine(ctx context.Context, lineID int64) error {
	if _, err := t.tx.Exec(ctx, database.DeleteCartLineSQL, lineID); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}
