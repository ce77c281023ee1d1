// Package bridge is the accounting bridge service. It accepts invoices and
// pushes them to QuickBooks, or records a demo sync when no usable
// QuickBooks credentials are configured.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/roach88/fieldsync/internal/domain"
)

const troubleshooting = "Check: 1) Access token is valid, 2) Realm ID is correct, 3) QuickBooks company is properly set up"

// KV persists sync records. Implemented by *store.Store.
type KV interface {
	GetKV(ctx context.Context, key string) (string, bool, error)
	PutKV(ctx context.Context, key, value string) error
}

// Upstream creates invoices in QuickBooks. Implemented by *QuickBooks.
type Upstream interface {
	CreateInvoice(ctx context.Context, inv domain.Invoice, today string) (string, error)
}

// SyncRecord is what the bridge remembers about a synced invoice.
type SyncRecord struct {
	QuickbooksID string `json:"quickbooksId"`
	SyncedAt     string `json:"syncedAt"`
	InvoiceID    string `json:"invoiceId"`
	MockMode     bool   `json:"mockMode"`
	Reason       string `json:"reason,omitempty"`
}

// RecordKey is the KV key of an invoice's sync record.
func RecordKey(invoiceID string) string {
	return "qb-invoice-" + invoiceID
}

// Config configures a Server.
type Config struct {
	Credentials Credentials
	// Upstream is used when Credentials are configured and plausible.
	Upstream Upstream
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the bridge HTTP service.
type Server struct {
	kv       KV
	creds    Credentials
	upstream Upstream
	now      func() time.Time
}

// New creates a bridge server persisting sync records in kv.
func New(kv KV, cfg Config) *Server {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{kv: kv, creds: cfg.Credentials, upstream: cfg.Upstream, now: now}
}

// Router builds the gin engine serving the bridge routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          10 * time.Minute,
	}))

	router.GET("/health", healthHandler)
	router.POST("/quickbooks/sync-invoice", s.syncInvoice)
	router.GET("/quickbooks/invoice/:invoiceId", s.invoiceStatus)
	return router
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) syncInvoice(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice data is required"})
		return
	}
	field := gjson.GetBytes(raw, "invoice")
	if !field.Exists() || !field.IsObject() {
		slog.Warn("sync request without invoice data")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice data is required"})
		return
	}
	var inv domain.Invoice
	if err := json.Unmarshal([]byte(field.Raw), &inv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice data is required", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	slog.Info("starting quickbooks sync",
		"invoice", inv.ID,
		"has_client_id", s.creds.ClientID != "",
		"has_access_token", s.creds.AccessToken != "",
		"has_realm_id", s.creds.RealmID != "",
	)

	switch {
	case !s.creds.Configured() || s.upstream == nil:
		slog.Warn("quickbooks credentials not configured, using demo mode")
		s.demoSync(c, inv, "", fmt.Sprintf("Invoice %s synced in DEMO mode (QuickBooks credentials not configured)", inv.ID), "")
		return
	case !s.creds.Plausible():
		slog.Warn("quickbooks credentials appear invalid, using demo mode",
			"realm_id_length", len(s.creds.RealmID),
			"token_length", len(s.creds.AccessToken),
		)
		s.demoSync(c, inv, "Invalid credentials format",
			fmt.Sprintf("Invoice %s synced in DEMO mode (invalid credentials - using demo mode)", inv.ID),
			"QuickBooks credentials appear invalid. Using demo mode for testing.")
		return
	}

	now := s.now()
	qbID, err := s.upstream.CreateInvoice(ctx, inv, domain.FormatDay(now))
	if err != nil {
		s.upstreamFailure(c, inv, err)
		return
	}

	if err := s.remember(ctx, SyncRecord{QuickbooksID: qbID, SyncedAt: domain.Timestamp(now), InvoiceID: inv.ID}); err != nil {
		s.internalFailure(c, err)
		return
	}
	slog.Info("invoice synced to quickbooks", "invoice", inv.ID, "quickbooks_id", qbID)
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"quickbooksInvoiceId": qbID,
		"message":             fmt.Sprintf("Invoice %s successfully synced to QuickBooks", inv.ID),
		"mockMode":            false,
	})
}

func (s *Server) demoSync(c *gin.Context, inv domain.Invoice, reason, message, warning string) {
	now := s.now()
	id := fmt.Sprintf("QB-%s-%d", inv.ID, now.UnixMilli())
	rec := SyncRecord{
		QuickbooksID: id,
		SyncedAt:     domain.Timestamp(now),
		InvoiceID:    inv.ID,
		MockMode:     true,
		Reason:       reason,
	}
	if err := s.remember(c.Request.Context(), rec); err != nil {
		s.internalFailure(c, err)
		return
	}
	reply := gin.H{
		"success":             true,
		"quickbooksInvoiceId": id,
		"message":             message,
		"mockMode":            true,
	}
	if warning != "" {
		reply["warning"] = warning
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) upstreamFailure(c *gin.Context, inv domain.Invoice, err error) {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		s.internalFailure(c, err)
		return
	}

	details := ue.Body
	if ue.Fault != "" {
		details = ue.Fault
	}
	slog.Error("quickbooks api error",
		"invoice", inv.ID,
		"status", ue.Status,
		"fault", ue.Fault,
	)
	c.JSON(ue.Status, gin.H{
		"error":           upstreamMessage(ue.Status),
		"details":         details,
		"status":          ue.Status,
		"troubleshooting": troubleshooting,
	})
}

func upstreamMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "Authentication failed - Access token may be expired or invalid"
	case http.StatusForbidden:
		return "Access forbidden - Check app permissions and company access"
	case http.StatusBadRequest:
		return "Bad request - Invalid invoice data or missing required fields"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return "QuickBooks service temporarily unavailable"
	default:
		return "QuickBooks API error"
	}
}

func (s *Server) internalFailure(c *gin.Context, err error) {
	slog.Error("invoice sync failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":           "Failed to sync invoice to QuickBooks: " + err.Error(),
		"details":         err.Error(),
		"troubleshooting": "Check server logs for detailed error information",
	})
}

func (s *Server) remember(ctx context.Context, rec SyncRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode sync record: %w", err)
	}
	return s.kv.PutKV(ctx, RecordKey(rec.InvoiceID), string(data))
}

func (s *Server) invoiceStatus(c *gin.Context) {
	id := c.Param("invoiceId")
	value, ok, err := s.kv.GetKV(c.Request.Context(), RecordKey(id))
	if err != nil {
		slog.Error("sync status lookup failed", "invoice", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"synced": false, "message": "Invoice not synced to QuickBooks"})
		return
	}

	rec := gjson.Parse(value)
	c.JSON(http.StatusOK, gin.H{
		"synced":              true,
		"quickbooksInvoiceId": rec.Get("quickbooksId").String(),
		"syncedAt":            rec.Get("syncedAt").String(),
		"mockMode":            rec.Get("mockMode").Bool(),
	})
}
