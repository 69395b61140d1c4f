package table

import (
	"context"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Store is the persistence surface for table workflow state. The setters each
// touch a single column, so a step change never writes back a stale flag a
// concurrent signal just raised. CompleteService and Swap are multi-row
// updates and must be transactional.
type Store interface {
	GetTable(ctx context.Context, tableID int64) (*models.Table, error)
	CountCartLines(ctx context.Context, tableID int64) (int, error)
	SetStep(ctx context.Context, tableID int64, step models.ActiveStep) error
	SetRequest(ctx context.Context, tableID int64, request bool) error
	SetNotice(ctx context.Context, tableID int64, notice bool) error
	// CompleteService marks every cart line done, raises notice, clears
	// request, and resets the step to received, atomically.
	CompleteService(ctx context.Context, tableID int64) error
	// Swap exchanges workflow state and cart ownership between two tables.
	Swap(ctx context.Context, tableAID, tableBID int64) error
}

// Service drives the received -> preparing -> served progression and the
// waiter/kitchen signal flags.
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a new table workflow service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// Advance moves the table one step forward. Reaching served completes the
// ordering cycle: all cart lines are marked done, the waiter is notified, and
// the step resets to received so the table can order another round.
func (s *Service) Advance(ctx context.Context, tableID int64, requestID string) (*models.Table, error) {
	table, err := s.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	switch table.ActiveStep {
	case models.StepReceived:
		table.ActiveStep = models.StepPreparing
		if err := s.store.SetStep(ctx, tableID, table.ActiveStep); err != nil {
			return nil, err
		}
	case models.StepPreparing:
		if err := s.store.CompleteService(ctx, tableID); err != nil {
			return nil, err
		}
		table.ActiveStep = models.StepReceived
		table.Request = false
		table.Notice = true
		s.logger.Info("table_served", "Table service round completed", requestID, map[string]interface{}{
			"table_id": tableID,
		})
	case models.StepServed:
		// Served is transient: completing a round already resets to
		// received, so a persisted served step only occurs mid-completion.
		if err := s.store.CompleteService(ctx, tableID); err != nil {
			return nil, err
		}
		table.ActiveStep = models.StepReceived
		table.Request = false
		table.Notice = true
	}

	return table, nil
}

// Regress moves the table one step back; a table already at received stays
// put.
func (s *Service) Regress(ctx context.Context, tableID int64, requestID string) (*models.Table, error) {
	table, err := s.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	if table.ActiveStep == models.StepReceived {
		return table, nil
	}

	table.ActiveStep--
	if err := s.store.SetStep(ctx, tableID, table.ActiveStep); err != nil {
		return nil, err
	}
	return table, nil
}

// SendRequest raises the waiter-to-kitchen signal. An empty cart has nothing
// to request.
func (s *Service) SendRequest(ctx context.Context, tableID int64, requestID string) error {
	if _, err := s.store.GetTable(ctx, tableID); err != nil {
		return err
	}

	count, err := s.store.CountCartLines(ctx, tableID)
	if err != nil {
		return err
	}
	if count == 0 {
		return models.ErrEmptyCart
	}

	return s.store.SetRequest(ctx, tableID, true)
}

// AcknowledgeNotice clears the kitchen-to-waiter signal.
func (s *Service) AcknowledgeNotice(ctx context.Context, tableID int64, requestID string) error {
	if _, err := s.store.GetTable(ctx, tableID); err != nil {
		return err
	}
	return s.store.SetNotice(ctx, tableID, false)
}

// Swap exchanges workflow state and carts between two tables, used when a
// party is physically reseated. Table identity stays where it is.
func (s *Service) Swap(ctx context.Context, tableAID, tableBID int64, requestID string) error {
	if tableAID == tableBID {
		return models.ValidationError{Field: "table_id", Message: "cannot swap a table with itself"}
	}

	if _, err := s.store.GetTable(ctx, tableAID); err != nil {
		return err
	}
	if _, err := s.store.GetTable(ctx, tableBID); err != nil {
		return err
	}

	if err := s.store.Swap(ctx, tableAID, tableBID); err != nil {
		return err
	}

	s.logger.Info("tables_swapped", "Swapped table state", requestID, map[string]interface{}{
		"table_a": tableAID,
		"table_b": tableBID,
	})
	return nil
}
