// Package worker mirrors committed ledger events into an external exporter.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

// Summarizer computes the summary of a stored period.
type Summarizer interface {
	PeriodSummary(ctx context.Context, periodID *int64) (core.Dashboard, error)
}

// SyncWorker turns events into exporter calls. Events it does not export are
// acknowledged without work.
type SyncWorker struct {
	store    ports.Store
	exporter ports.TransactionExporter
	summary  Summarizer
}

func NewSyncWorker(store ports.Store, exporter ports.TransactionExporter, summary Summarizer) *SyncWorker {
	return &SyncWorker{store: store, exporter: exporter, summary: summary}
}

// Handle matches amqp.Handler. A returned error asks for redelivery.
func (w *SyncWorker) Handle(ctx context.Context, e core.Event) error {
	slog.InfoContext(ctx, "Processing event", "event_id", e.ID, "type", e.Type)

	switch e.Type {
	case core.EventTransactionCreated:
		return w.exportTransaction(ctx, e)
	case core.EventTransactionDeleted:
		if err := w.exporter.RemoveTransaction(ctx, e.TransactionID); err != nil {
			return fmt.Errorf("remove transaction %d: %w", e.TransactionID, err)
		}
		return nil
	case core.EventPeriodClosed:
		return w.exportPeriod(ctx, e)
	default:
		slog.DebugContext(ctx, "Event not exported", "event_id", e.ID, "type", e.Type)
		return nil
	}
}

func (w *SyncWorker) exportTransaction(ctx context.Context, e core.Event) error {
	tx, err := w.store.GetTransaction(ctx, e.TransactionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got to it; the delete event clears nothing.
			slog.WarnContext(ctx, "Transaction gone before export", "id", e.TransactionID)
			return nil
		}
		return fmt.Errorf("get transaction %d: %w", e.TransactionID, err)
	}
	if err := w.exporter.ExportTransaction(ctx, tx); err != nil {
		return fmt.Errorf("export transaction %d: %w", tx.ID, err)
	}
	return nil
}

func (w *SyncWorker) exportPeriod(ctx context.Context, e core.Event) error {
	p, err := w.store.FindPeriod(ctx, e.PeriodID)
	if err != nil {
		return fmt.Errorf("find period %d: %w", e.PeriodID, err)
	}
	d, err := w.summary.PeriodSummary(ctx, &p.ID)
	if err != nil {
		return fmt.Errorf("summarize period %d: %w", p.ID, err)
	}
	if err := w.exporter.ExportPeriodSummary(ctx, p, d.Summary); err != nil {
		return fmt.Errorf("export period %d: %w", p.ID, err)
	}
	return nil
}
