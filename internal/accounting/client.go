// Package accounting talks to the accounting bridge, which pushes
// invoices to QuickBooks.
package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/roach88/fieldsync/internal/domain"
)

// SyncPath is the bridge route that accepts an invoice.
const SyncPath = "/quickbooks/sync-invoice"

// SyncRequest is the body posted to the bridge.
type SyncRequest struct {
	Invoice domain.Invoice `json:"invoice"`
}

// SyncResult is the bridge's success reply.
type SyncResult struct {
	Success             bool   `json:"success"`
	QuickbooksInvoiceID string `json:"quickbooksInvoiceId"`
	Message             string `json:"message"`
	MockMode            bool   `json:"mockMode"`
}

// BridgeError is the bridge's failure reply, or a transport failure.
type BridgeError struct {
	Status          int    `json:"status"`
	Message         string `json:"error"`
	Details         string `json:"details,omitempty"`
	Troubleshooting string `json:"troubleshooting,omitempty"`
}

func (e *BridgeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "accounting bridge: %s", e.Message)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	return b.String()
}

// Client posts invoices to the accounting bridge.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the bridge at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Sync sends inv to the bridge. A non-2xx reply is returned as *BridgeError.
func (c *Client) Sync(ctx context.Context, inv domain.Invoice) (SyncResult, error) {
	var result SyncResult
	var failure BridgeError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(SyncRequest{Invoice: inv}).
		SetResult(&result).
		SetError(&failure).
		Post(SyncPath)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync invoice %s: %w", inv.ID, err)
	}

	if resp.IsError() {
		if failure.Status == 0 {
			failure.Status = resp.StatusCode()
		}
		if failure.Message == "" {
			failure.Message = resp.Status()
		}
		return SyncResult{}, &failure
	}
	if !result.Success || result.QuickbooksInvoiceID == "" {
		return SyncResult{}, &BridgeError{
			Status:  resp.StatusCode(),
			Message: "bridge reply carried no QuickBooks invoice id",
		}
	}
	return result, nil
}
