package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/roach88/fieldsync/internal/domain"
)

var bridgeNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) GetKV(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) PutKV(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

var validCreds = Credentials{
	ClientID:    "client",
	AccessToken: strings.Repeat("t", 60),
	RealmID:     "1234567890",
}

func newTestServer(kv KV, cfg Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg.Now = func() time.Time { return bridgeNow }
	return New(kv, cfg).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const invoiceBody = `{"invoice":{"id":"INV-1","customerName":"Jane Doe","service":"Gutters","amount":150,"status":"pending","dueDate":"2026-03-03","quickbooksSynced":false}}`

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(newMemKV(), Config{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSync_MissingInvoice(t *testing.T) {
	h := newTestServer(newMemKV(), Config{})
	for _, body := range []string{`{}`, `{"invoice":null}`, `not json`} {
		rec := do(t, h, http.MethodPost, "/quickbooks/sync-invoice", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Invoice data is required", gjson.Get(rec.Body.String(), "error").String())
	}
}

func TestSync_DemoWithoutCredentials(t *testing.T) {
	kv := newMemKV()
	h := newTestServer(kv, Config{})

	rec := do(t, h, http.MethodPost, "/quickbooks/sync-invoice", invoiceBody)
	require.Equal(t, http.StatusOK, rec.Code)

	want := "QB-INV-1-" + "1769940000000"
	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.True(t, gjson.Get(body, "mockMode").Bool())
	assert.Equal(t, want, gjson.Get(body, "quickbooksInvoiceId").String())

	var stored SyncRecord
	require.NoError(t, json.Unmarshal([]byte(kv.data["qb-invoice-INV-1"]), &stored))
	assert.Equal(t, want, stored.QuickbooksID)
	assert.True(t, stored.MockMode)
	assert.Empty(t, stored.Reason)
}

func TestSync_DemoWithImplausibleCredentials(t *testing.T) {
	kv := newMemKV()
	up := &fakeUpstream{id: "never"}
	h := newTestServer(kv, Config{
		Credentials: Credentials{ClientID: "c", AccessToken: "short", RealmID: "12"},
		Upstream:    up,
	})

	rec := do(t, h, http.MethodPost, "/quickbooks/sync-invoice", invoiceBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "mockMode").Bool())
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "warning").String())
	assert.Zero(t, up.calls)
	assert.Contains(t, kv.data["qb-invoice-INV-1"], "Invalid credentials format")
}

type fakeUpstream struct {
	id    string
	err   error
	calls int
	today string
}

func (f *fakeUpstream) CreateInvoice(_ context.Context, _ domain.Invoice, today string) (string, error) {
	f.calls++
	f.today = today
	return f.id, f.err
}

func TestSync_RealMode(t *testing.T) {
	kv := newMemKV()
	up := &fakeUpstream{id: "145"}
	h := newTestServer(kv, Config{Credentials: validCreds, Upstream: up})

	rec := do(t, h, http.MethodPost, "/quickbooks/sync-invoice", invoiceBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "145", gjson.Get(rec.Body.String(), "quickbooksInvoiceId").String())
	assert.False(t, gjson.Get(rec.Body.String(), "mockMode").Bool())
	assert.Equal(t, "2026-02-01", up.today)

	status := do(t, h, http.MethodGet, "/quickbooks/invoice/INV-1", "")
	assert.JSONEq(t, `{"synced":true,"quickbooksInvoiceId":"145","syncedAt":"`+domain.Timestamp(bridgeNow)+`","mockMode":false}`, status.Body.String())
}

func TestSync_UpstreamFailure(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{401, "Authentication failed - Access token may be expired or invalid"},
		{403, "Access forbidden - Check app permissions and company access"},
		{400, "Bad request - Invalid invoice data or missing required fields"},
		{503, "QuickBooks service temporarily unavailable"},
		{500, "QuickBooks API error"},
	}
	for _, tt := range tests {
		kv := newMemKV()
		up := &fakeUpstream{err: &UpstreamError{Status: tt.status, Fault: "Token expired"}}
		h := newTestServer(kv, Config{Credentials: validCreds, Upstream: up})

		rec := do(t, h, http.MethodPost, "/quickbooks/sync-invoice", invoiceBody)
		assert.Equal(t, tt.status, rec.Code)
		body := rec.Body.String()
		assert.Equal(t, tt.want, gjson.Get(body, "error").String())
		assert.Equal(t, "Token expired", gjson.Get(body, "details").String())
		assert.Equal(t, troubleshooting, gjson.Get(body, "troubleshooting").String())
		assert.Empty(t, kv.data, "failed sync stores nothing")
	}
}

func TestStatus_NotSynced(t *testing.T) {
	rec := do(t, newTestServer(newMemKV(), Config{}), http.MethodGet, "/quickbooks/invoice/INV-9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gjson.Get(rec.Body.String(), "synced").Bool())
}

func TestCORS_AllowsAnyOrigin(t *testing.T) {
	h := newTestServer(newMemKV(), Config{})
	req := httptest.NewRequest(http.MethodOptions, "/quickbooks/sync-invoice", nil)
	req.Header.Set("Origin", "https://office.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestQuickBooks_CreateInvoice(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/company/1234567890/invoice", r.URL.Path)
		assert.Equal(t, "65", r.URL.Query().Get("minorversion"))
		assert.Equal(t, "Bearer "+validCreds.AccessToken, r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got, _ = json.Marshal(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Invoice":{"Id":"145","DocNumber":"INV-1"},"time":"2026-02-01T10:00:00Z"}`))
	}))
	defer srv.Close()

	qb := NewQuickBooks(srv.URL, validCreds, time.Second)
	id, err := qb.CreateInvoice(context.Background(), domain.Invoice{
		ID: "INV-1", CustomerName: "Jane Doe", Amount: 150, DueDate: "2026-03-03T00:00:00Z",
	}, "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, "145", id)

	assert.Equal(t, "Power Washing Service", gjson.GetBytes(got, "Line.0.Description").String())
	assert.Equal(t, int64(1), gjson.GetBytes(got, "Line.0.SalesItemLineDetail.Qty").Int())
	assert.Equal(t, "Jane Doe", gjson.GetBytes(got, "CustomerRef.name").String())
	assert.Equal(t, "2026-03-03", gjson.GetBytes(got, "DueDate").String())
	assert.Equal(t, "INV-1", gjson.GetBytes(got, "DocNumber").String())
}

func TestQuickBooks_Fault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Fault":{"Error":[{"Message":"Invalid Reference Id","code":"2500"}],"type":"ValidationFault"}}`))
	}))
	defer srv.Close()

	_, err := NewQuickBooks(srv.URL, validCreds, time.Second).CreateInvoice(context.Background(), domain.Invoice{ID: "INV-1"}, "2026-02-01")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 400, ue.Status)
	assert.Equal(t, "Invalid Reference Id", ue.Fault)
}
