package table

import (
	"context"
	"errors"
	"testing"

	"tableside/internal/logger"
	"tableside/internal/models"
)

type fakeStore struct {
	tables map[int64]*models.Table
	lines  map[int64][]*models.CartLine

	// afterGet runs after each GetTable, to interleave a concurrent write
	// between a service's read and its update.
	afterGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[int64]*models.Table),
		lines:  make(map[int64][]*models.CartLine),
	}
}

func (s *fakeStore) GetTable(ctx context.Context, tableID int64) (*models.Table, error) {
	table, ok := s.tables[tableID]
	if !ok {
		return nil, models.NotFoundError{Resource: "table"}
	}
	clone := *table
	if s.afterGet != nil {
		s.afterGet()
	}
	return &clone, nil
}

func (s *fakeStore) CountCartLines(ctx context.Context, tableID int64) (int, error) {
	return len(s.lines[tableID]), nil
}

func (s *fakeStore) SetStep(ctx context.Context, tableID int64, step models.ActiveStep) error {
	table, ok := s.tables[tableID]
	if !ok {
		return models.NotFoundError{Resource: "table"}
	}
	table.ActiveStep = step
	return nil
}

func (s *fakeStore) SetRequest(ctx context.Context, tableID int64, request bool) error {
	table, ok := s.tables[tableID]
	if !ok {
		return models.NotFoundError{Resource: "table"}
	}
	table.Request = request
	return nil
}

func (s *fakeStore) SetNotice(ctx context.Context, tableID int64, notice bool) error {
	table, ok := s.tables[tableID]
	if !ok {
		return models.NotFoundError{Resource: "table"}
	}
	table.Notice = notice
	return nil
}

func (s *fakeStore) CompleteService(ctx context.Context, tableID int64) error {
	table, ok := s.tables[tableID]
	if !ok {
		return models.NotFoundError{Resource: "table"}
	}
	for _, line := range s.lines[tableID] {
		line.Fulfillment = []models.FulfillmentEntry{{State: models.FulfillmentDone, DoneQuantity: line.Quantity}}
	}
	table.ActiveStep = models.StepReceived
	table.Request = false
	table.Notice = true
	return nil
}

func (s *fakeStore) Swap(ctx context.Context, tableAID, tableBID int64) error {
	a, okA := s.tables[tableAID]
	b, okB := s.tables[tableBID]
	if !okA || !okB {
		return models.NotFoundError{Resource: "table"}
	}
	a.IsActive, b.IsActive = b.IsActive, a.IsActive
	a.ActiveStep, b.ActiveStep = b.ActiveStep, a.ActiveStep
	a.Request, b.Request = b.Request, a.Request
	a.Notice, b.Notice = b.Notice, a.Notice
	s.lines[tableAID], s.lines[tableBID] = s.lines[tableBID], s.lines[tableAID]
	return nil
}

func newFixture() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, logger.New("table-test")), store
}

func TestAdvance_Progression(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1", ActiveStep: models.StepReceived}
	store.lines[1] = []*models.CartLine{{ID: 1, TableID: 1, ProductID: 10, Quantity: 2,
		Fulfillment: []models.FulfillmentEntry{{State: models.FulfillmentPending}}}}

	ctx := context.Background()
	table, err := svc.Advance(ctx, 1, "req")
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if table.ActiveStep != models.StepPreparing {
		t.Fatalf("step = %v, want preparing", table.ActiveStep)
	}

	// Second advance reaches served: lines done, notice raised, step reset.
	table, err = svc.Advance(ctx, 1, "req")
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if table.ActiveStep != models.StepReceived {
		t.Errorf("step = %v, want received after completing the round", table.ActiveStep)
	}
	if !table.Notice {
		t.Error("notice not raised after serving")
	}
	if table.Request {
		t.Error("request not cleared after serving")
	}
	line := store.lines[1][0]
	if line.Fulfillment[0].State != models.FulfillmentDone || line.Fulfillment[0].DoneQuantity != 2 {
		t.Errorf("fulfillment = %+v, want done with quantity 2", line.Fulfillment[0])
	}
}

func TestRegress(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1", ActiveStep: models.StepPreparing}

	ctx := context.Background()
	table, err := svc.Regress(ctx, 1, "req")
	if err != nil {
		t.Fatalf("Regress returned error: %v", err)
	}
	if table.ActiveStep != models.StepReceived {
		t.Errorf("step = %v, want received", table.ActiveStep)
	}

	// Regress at received is a no-op.
	table, err = svc.Regress(ctx, 1, "req")
	if err != nil {
		t.Fatalf("Regress returned error: %v", err)
	}
	if table.ActiveStep != models.StepReceived {
		t.Errorf("step = %v, want received (no-op)", table.ActiveStep)
	}
}

func TestAdvance_PreservesRequestRaisedDuringStepChange(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1", ActiveStep: models.StepReceived}

	// A waiter signals the kitchen between Advance's read and its write.
	store.afterGet = func() {
		store.tables[1].Request = true
	}

	if _, err := svc.Advance(context.Background(), 1, "req"); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	if store.tables[1].ActiveStep != models.StepPreparing {
		t.Errorf("step = %v, want preparing", store.tables[1].ActiveStep)
	}
	if !store.tables[1].Request {
		t.Error("step change overwrote the concurrently raised request flag")
	}
}

func TestAcknowledgeNotice_PreservesConcurrentRequest(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1", Notice: true}

	store.afterGet = func() {
		store.tables[1].Request = true
	}

	if err := svc.AcknowledgeNotice(context.Background(), 1, "req"); err != nil {
		t.Fatalf("AcknowledgeNotice returned error: %v", err)
	}

	if store.tables[1].Notice {
		t.Error("notice flag not cleared")
	}
	if !store.tables[1].Request {
		t.Error("notice ack overwrote the concurrently raised request flag")
	}
}

func TestSendRequest_EmptyCart(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1"}

	ctx := context.Background()
	err := svc.SendRequest(ctx, 1, "req")
	if !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("SendRequest error = %v, want ErrEmptyCart", err)
	}

	store.lines[1] = []*models.CartLine{{ID: 1, TableID: 1, ProductID: 10, Quantity: 1}}
	if err := svc.SendRequest(ctx, 1, "req"); err != nil {
		t.Fatalf("SendRequest returned error: %v", err)
	}
	if !store.tables[1].Request {
		t.Error("request flag not set")
	}
}

func TestAcknowledgeNotice(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1", Notice: true}

	if err := svc.AcknowledgeNotice(context.Background(), 1, "req"); err != nil {
		t.Fatalf("AcknowledgeNotice returned error: %v", err)
	}
	if store.tables[1].Notice {
		t.Error("notice flag not cleared")
	}
}

func TestSwap_ExchangesStateNotIdentity(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "Window", IsActive: true, ActiveStep: models.StepPreparing, Request: true}
	store.tables[2] = &models.Table{ID: 2, Name: "Patio", IsActive: false, ActiveStep: models.StepReceived, Notice: true}
	store.lines[1] = []*models.CartLine{{ID: 1, TableID: 1, ProductID: 10, Quantity: 2}}

	if err := svc.Swap(context.Background(), 1, 2, "req"); err != nil {
		t.Fatalf("Swap returned error: %v", err)
	}

	a, b := store.tables[1], store.tables[2]
	if a.Name != "Window" || b.Name != "Patio" {
		t.Error("table names must not swap")
	}
	if a.IsActive || a.ActiveStep != models.StepReceived || a.Request || !a.Notice {
		t.Errorf("table 1 state = %+v, want table 2's former state", a)
	}
	if !b.IsActive || b.ActiveStep != models.StepPreparing || !b.Request || b.Notice {
		t.Errorf("table 2 state = %+v, want table 1's former state", b)
	}
	if len(store.lines[1]) != 0 || len(store.lines[2]) != 1 {
		t.Error("cart lines did not move with the swap")
	}
}

func TestSwap_SameTable(t *testing.T) {
	svc, store := newFixture()
	store.tables[1] = &models.Table{ID: 1, Name: "T1"}

	err := svc.Swap(context.Background(), 1, 1, "req")
	var validationErr models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Swap error = %v, want ValidationError", err)
	}
}
