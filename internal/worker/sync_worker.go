package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/sheets"
)

// SyncWorker mirrors the persisted ledger into a spreadsheet whenever a
// change message arrives. Every mirror writes the whole ledger, so messages
// older than the last completed mirror are skipped.
type SyncWorker struct {
	ledger *ledger.Store
	sheets sheets.RowWriter
	now    func() time.Time

	mu         sync.Mutex
	lastMirror time.Time
}

func NewSyncWorker(store *ledger.Store, sheets sheets.RowWriter) *SyncWorker {
	return &SyncWorker{
		ledger: store,
		sheets: sheets,
		now:    time.Now,
	}
}

// HandleLedgerChanged processes a single change message from AMQP.
func (w *SyncWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"op", msg.Op,
		"id", msg.ID,
		"count", msg.Count)

	w.mu.Lock()
	last := w.lastMirror
	w.mu.Unlock()
	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(last) {
		slog.DebugContext(ctx, "Change already mirrored, skipping",
			"op", msg.Op,
			"id", msg.ID,
			"message_time", msg.Timestamp,
			"last_mirror", last)
		return nil
	}

	return w.Mirror(ctx)
}

// Mirror reloads the ledger from its slot and replaces the sheet contents.
// The sheet is left untouched when the slot cannot be read.
func (w *SyncWorker) Mirror(ctx context.Context) error {
	started := w.now()

	if err := w.ledger.Load(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	rows := export.Rows(w.ledger.All())

	ref, err := w.sheets.ReplaceRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("mirror ledger to sheets: %w", err)
	}

	w.mu.Lock()
	if started.After(w.lastMirror) {
		w.lastMirror = started
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Ledger mirrored",
		"sheets_ref", ref,
		"transactions", len(rows)-1)
	return nil
}

// StartupSync mirrors the ledger once before consuming, covering changes
// made while the worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup mirror")
	if err := w.Mirror(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}
