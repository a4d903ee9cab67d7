package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"michaucha/internal/core"
	"michaucha/internal/services"
	"michaucha/internal/storage/memory"
)

type recordingExporter struct {
	mu       sync.Mutex
	exported []core.Transaction
	removed  []int64
	periods  []core.PeriodSummary
	err      error
}

func (r *recordingExporter) ExportTransaction(_ context.Context, t core.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exported = append(r.exported, t)
	return r.err
}

func (r *recordingExporter) RemoveTransaction(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	return r.err
}

func (r *recordingExporter) ExportPeriodSummary(_ context.Context, _ core.Period, s core.PeriodSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods = append(r.periods, s)
	return r.err
}

func newWorker(t *testing.T) (*SyncWorker, *memory.Store, *recordingExporter) {
	t.Helper()
	store := memory.NewSeeded()
	exp := &recordingExporter{}
	return NewSyncWorker(store, exp, services.NewSummaryService(store)), store, exp
}

func TestSyncWorker_TransactionCreated(t *testing.T) {
	w, store, exp := newWorker(t)
	ctx := context.Background()

	cats, _ := store.ListCategories(ctx)
	tx, err := store.CreateTransaction(ctx, core.NewTransaction{
		Amount: 5000, CategoryID: cats[0].ID, PaymentMethod: core.Cash, Date: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Handle(ctx, core.Event{ID: "e1", Type: core.EventTransactionCreated, TransactionID: tx.ID}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(exp.exported) != 1 || exp.exported[0].ID != tx.ID || exp.exported[0].CategoryName != cats[0].Name {
		t.Errorf("exported = %+v", exp.exported)
	}
}

func TestSyncWorker_TransactionGoneIsAcked(t *testing.T) {
	w, _, exp := newWorker(t)
	err := w.Handle(context.Background(), core.Event{ID: "e1", Type: core.EventTransactionCreated, TransactionID: 999})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(exp.exported) != 0 {
		t.Errorf("exported = %+v", exp.exported)
	}
}

func TestSyncWorker_TransactionDeleted(t *testing.T) {
	w, _, exp := newWorker(t)
	if err := w.Handle(context.Background(), core.Event{ID: "e2", Type: core.EventTransactionDeleted, TransactionID: 4}); err != nil {
		t.Fatal(err)
	}
	if len(exp.removed) != 1 || exp.removed[0] != 4 {
		t.Errorf("removed = %v", exp.removed)
	}
}

func TestSyncWorker_PeriodClosed(t *testing.T) {
	w, store, exp := newWorker(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	p, err := store.FindOrCreateActivePeriod(ctx, start)
	if err != nil {
		t.Fatal(err)
	}
	cats, _ := store.ListCategories(ctx)
	if _, err := store.CreateTransaction(ctx, core.NewTransaction{
		Amount: 12000, CategoryID: cats[0].ID, PaymentMethod: core.Visa, Date: start.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClosePeriodAndCreateSuccessor(ctx, p.ID, start.Add(48*time.Hour)); err != nil {
		t.Fatal(err)
	}

	if err := w.Handle(ctx, core.Event{ID: "e3", Type: core.EventPeriodClosed, PeriodID: p.ID}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(exp.periods) != 1 || exp.periods[0].TransactionTotal != 12000 {
		t.Errorf("periods = %+v", exp.periods)
	}
}

func TestSyncWorker_ErrorsRequestRedelivery(t *testing.T) {
	w, _, exp := newWorker(t)
	exp.err = errors.New("quota exceeded")

	err := w.Handle(context.Background(), core.Event{ID: "e4", Type: core.EventTransactionDeleted, TransactionID: 1})
	if err == nil || !errors.Is(err, exp.err) {
		t.Errorf("Handle error = %v, want wrapped exporter error", err)
	}
}

func TestSyncWorker_IgnoresOtherEvents(t *testing.T) {
	w, _, exp := newWorker(t)
	paid := true
	if err := w.Handle(context.Background(), core.Event{ID: "e5", Type: core.EventFixedPaymentToggled, IsPaid: &paid}); err != nil {
		t.Fatal(err)
	}
	if len(exp.exported)+len(exp.removed)+len(exp.periods) != 0 {
		t.Error("toggle event should not reach the exporter")
	}
}
