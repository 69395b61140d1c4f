package table

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

// NewPostgresStore creates a new PostgreSQL-backed table store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetTable(ctx context.Context, tableID int64) (*models.Table, error) {
	var table models.Table
	err := s.db.QueryRow(ctx, database.GetTableSQL, tableID).Scan(
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

func (s *PostgresStore) CountCartLines(ctx context.Context, tableID int64) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, database.CountCartLinesSQL, tableID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cart lines: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) SetStep(ctx context.Context, tableID int64, step models.ActiveStep) error {
	if err := s.db.Exec(ctx, database.SetTableStepSQL, tableID, step); err != nil {
		return fmt.Errorf("failed to set table step: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetRequest(ctx context.Context, tableID int64, request bool) error {
	if err := s.db.Exec(ctx, database.SetTableRequestSQL, tableID, request); err != nil {
		return fmt.Errorf("failed to set request flag: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetNotice(ctx context.Context, tableID int64, notice bool) error {
	if err := s.db.Exec(ctx, database.SetTableNoticeSQL, tableID, notice); err != nil {
		return fmt.Errorf("failed to set notice flag: %w", err)
	}
	return nil
}

// CompleteService finishes a serving round: every line is marked fully done
// and the table returns to received with the waiter notified.
func (s *PostgresStore) CompleteService(ctx context.Context, tableID int64) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, database.MarkCartLinesDoneSQL, tableID); err != nil {
			return fmt.Errorf("failed to mark cart lines done: %w", err)
		}
		if _, err := tx.Exec(ctx, database.UpdateTableWorkflowSQL,
			tableID, models.StepReceived, false, true); err != nil {
			return fmt.Errorf("failed to reset table workflow: %w", err)
		}
		return nil
	})
}

// Swap exchanges the two tables' workflow state and repoints their cart
// lines. The unique (table_id, product_id) constraint is deferred so both
// carts can cross in one statement.
func (s *PostgresStore) Swap(ctx context.Context, tableAID, tableBID int64) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SET CONSTRAINTS cart_lines_table_product_key DEFERRED"); err != nil {
			return fmt.Errorf("failed to defer cart line constraint: %w", err)
		}

		var a, b models.Table
		err := tx.QueryRow(ctx, database.GetTableSQL+" FOR UPDATE", tableAID).Scan(
			&a.ID, &a.Name, &a.IsActive, &a.ActiveStep, &a.Request, &a.Notice, &a.CreatedAt, &a.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NotFoundError{Resource: "table", ID: strconv.FormatInt(tableAID, 10)}
		}
		if err != nil {
			return fmt.Errorf("failed to lock table: %w", err)
		}
		err = tx.QueryRow(ctx, database.GetTableSQL+" FOR UPDATE", tableBID).Scan(
			&b.ID, &b.Name, &b.IsActive, &b.ActiveStep, &b.Request, &b.Notice, &b.CreatedAt, &b.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NotFoundError{Resource: "table", ID: strconv.FormatInt(tableBID, 10)}
		}
		if err != nil {
			return fmt.Errorf("failed to lock table: %w", err)
		}

		if _, err := tx.Exec(ctx, database.SwapTableStateSQL,
			a.ID, b.IsActive, b.ActiveStep, b.Request, b.Notice); err != nil {
			return fmt.Errorf("failed to write swapped state: %w", err)
		}
		if _, err := tx.Exec(ctx, database.SwapTableStateSQL,
			b.ID, a.IsActive, a.ActiveStep, a.Request, a.Notice); err != nil {
			return fmt.Errorf("failed to write swapped state: %w", err)
		}
		if _, err := tx.Exec(ctx, database.SwapCartLinesSQL, a.ID, b.ID); err != nil {
			return fmt.Errorf("failed to swap cart lines: %w", err)
		}
		return nil
	})
}
