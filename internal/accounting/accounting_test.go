package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/store"
)

func bridgeServer(t *testing.T, status int, body any) (*httptest.Server, *[]SyncRequest) {
	t.Helper()
	var got []SyncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SyncPath, r.URL.Path)
		var req SyncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClient_Sync_Success(t *testing.T) {
	srv, got := bridgeServer(t, http.StatusOK, SyncResult{
		Success:             true,
		QuickbooksInvoiceID: "QB-INV-1-1700000000000",
		Message:             "Invoice synced to QuickBooks (Demo Mode)",
		MockMode:            true,
	})

	c := NewClient(srv.URL+"/", time.Second)
	res, err := c.Sync(context.Background(), domain.Invoice{ID: "INV-1", CustomerName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "QB-INV-1-1700000000000", res.QuickbooksInvoiceID)
	assert.True(t, res.MockMode)
	require.Len(t, *got, 1)
	assert.Equal(t, "INV-1", (*got)[0].Invoice.ID)
}

func TestClient_Sync_BridgeError(t *testing.T) {
	srv, _ := bridgeServer(t, http.StatusUnauthorized, map[string]any{
		"error":           "Authentication failed - Access token may be expired or invalid",
		"details":         "Token expired",
		"status":          401,
		"troubleshooting": "Check: 1) Access token is valid",
	})

	_, err := NewClient(srv.URL, time.Second).Sync(context.Background(), domain.Invoice{ID: "INV-1"})
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 401, be.Status)
	assert.Equal(t, "Token expired", be.Details)
	assert.Contains(t, be.Error(), "Authentication failed")
	assert.NotEmpty(t, be.Troubleshooting)
}

func TestClient_Sync_MissingID(t *testing.T) {
	srv, _ := bridgeServer(t, http.StatusOK, map[string]any{"success": true})

	_, err := NewClient(srv.URL, time.Second).Sync(context.Background(), domain.Invoice{ID: "INV-1"})
	var be *BridgeError
	require.ErrorAs(t, err, &be)
}

type fakeBridge struct {
	result SyncResult
	err    error
	calls  int
}

func (f *fakeBridge) Sync(_ context.Context, _ domain.Invoice) (SyncResult, error) {
	f.calls++
	return f.result, f.err
}

func setupSyncer(t *testing.T, b Bridge) (*Syncer, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repo := store.NewRepository[domain.Invoice](s, string(domain.Invoices))
	_, err = repo.SaveAll(context.Background(), []domain.Invoice{
		{ID: "INV-1", CustomerName: "Jane Doe", Service: "Gutters", Amount: 100, Status: domain.InvoicePending, DueDate: "2026-03-03"},
	})
	require.NoError(t, err)

	d := engine.NewDispatcher(s, bus.New())
	return NewSyncer(d, b), s
}

func TestSyncer_RecordsOnSuccess(t *testing.T) {
	fb := &fakeBridge{result: SyncResult{Success: true, QuickbooksInvoiceID: "QB-77"}}
	syncer, s := setupSyncer(t, fb)

	res, err := syncer.Sync(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "QB-77", res.QuickbooksInvoiceID)

	invoices, err := store.NewRepository[domain.Invoice](s, "invoices").LoadAll(context.Background())
	require.NoError(t, err)
	assert.True(t, invoices[0].QuickbooksSynced)
	assert.Equal(t, "QB-77", invoices[0].QuickbooksID)
}

func TestSyncer_FailureMarksNothing(t *testing.T) {
	fb := &fakeBridge{err: &BridgeError{Status: 503, Message: "QuickBooks service temporarily unavailable"}}
	syncer, s := setupSyncer(t, fb)

	_, err := syncer.Sync(context.Background(), "INV-1")
	var be *BridgeError
	require.ErrorAs(t, err, &be)

	invoices, err := store.NewRepository[domain.Invoice](s, "invoices").LoadAll(context.Background())
	require.NoError(t, err)
	assert.False(t, invoices[0].QuickbooksSynced)
	assert.Empty(t, invoices[0].QuickbooksID)
}

func TestSyncer_UnknownInvoice(t *testing.T) {
	fb := &fakeBridge{}
	syncer, _ := setupSyncer(t, fb)

	_, err := syncer.Sync(context.Background(), "INV-404")
	assert.True(t, engine.IsNotFound(err))
	assert.Zero(t, fb.calls)
}
