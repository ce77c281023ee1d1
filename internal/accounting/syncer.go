package accounting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
)

// Bridge is the part of Client the Syncer depends on.
type Bridge interface {
	Sync(ctx context.Context, inv domain.Invoice) (SyncResult, error)
}

// Syncer pushes invoices to the bridge and records the QuickBooks id on
// success. A failed sync leaves the invoice untouched.
type Syncer struct {
	runner engine.Submitter
	bridge Bridge
}

// NewSyncer creates a syncer reading and writing through runner.
func NewSyncer(runner engine.Submitter, bridge Bridge) *Syncer {
	return &Syncer{runner: runner, bridge: bridge}
}

// Sync pushes the invoice with the given id.
func (s *Syncer) Sync(ctx context.Context, invoiceID string) (SyncResult, error) {
	st, err := s.runner.State(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync invoice %s: %w", invoiceID, err)
	}
	i := domain.IndexOf(st.Invoices, invoiceID)
	if i < 0 {
		return SyncResult{}, engine.NewNotFoundError("sync-invoice", string(domain.Invoices), invoiceID)
	}
	inv := st.Invoices[i]

	result, err := s.bridge.Sync(ctx, inv)
	if err != nil {
		slog.Warn("invoice sync failed", "invoice", invoiceID, "error", err)
		return SyncResult{}, err
	}

	if _, err := s.runner.Submit(ctx, engine.RecordInvoiceSync{
		ID:           invoiceID,
		QuickbooksID: result.QuickbooksInvoiceID,
	}); err != nil {
		return result, fmt.Errorf("record sync of %s: %w", invoiceID, err)
	}

	slog.Info("invoice synced",
		"invoice", invoiceID,
		"quickbooks_id", result.QuickbooksInvoiceID,
		"mock_mode", result.MockMode,
	)
	return result, nil
}
