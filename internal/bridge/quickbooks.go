package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/roach88/fieldsync/internal/domain"
)

// SandboxURL is the QuickBooks Online sandbox API.
const SandboxURL = "https://sandbox-quickbooks.api.intuit.com"

const defaultDescription = "Power Washing Service"

// Credentials identify the QuickBooks company invoices are pushed to.
type Credentials struct {
	ClientID    string
	AccessToken string
	RealmID     string
}

// Configured reports whether every credential is present.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.AccessToken != "" && c.RealmID != ""
}

// Plausible reports whether the realm and token have usable lengths.
func (c Credentials) Plausible() bool {
	return len(c.RealmID) >= 5 && len(c.AccessToken) >= 50
}

// UpstreamError is a non-2xx reply from QuickBooks.
type UpstreamError struct {
	Status int
	Fault  string
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Fault != "" {
		return fmt.Sprintf("quickbooks returned %d: %s", e.Status, e.Fault)
	}
	return fmt.Sprintf("quickbooks returned %d", e.Status)
}

// QuickBooks creates invoices through the QuickBooks Online API.
type QuickBooks struct {
	http  *resty.Client
	creds Credentials
}

// NewQuickBooks creates a client for baseURL. An empty baseURL means the sandbox.
func NewQuickBooks(baseURL string, creds Credentials, timeout time.Duration) *QuickBooks {
	if baseURL == "" {
		baseURL = SandboxURL
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(creds.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &QuickBooks{http: c, creds: creds}
}

type qbRef struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type qbSalesItemLineDetail struct {
	Qty       int     `json:"Qty"`
	UnitPrice float64 `json:"UnitPrice"`
	ItemRef   qbRef   `json:"ItemRef"`
}

type qbLine struct {
	Amount              float64               `json:"Amount"`
	DetailType          string                `json:"DetailType"`
	Description         string                `json:"Description"`
	SalesItemLineDetail qbSalesItemLineDetail `json:"SalesItemLineDetail"`
}

type qbInvoice struct {
	Line        []qbLine `json:"Line"`
	CustomerRef qbRef    `json:"CustomerRef"`
	TxnDate     string   `json:"TxnDate"`
	DueDate     string   `json:"DueDate"`
	DocNumber   string   `json:"DocNumber"`
}

func toQuickBooks(inv domain.Invoice, today string) qbInvoice {
	desc := inv.Service
	if desc == "" {
		desc = defaultDescription
	}
	return qbInvoice{
		Line: []qbLine{{
			Amount:      inv.Amount,
			DetailType:  "SalesItemLineDetail",
			Description: desc,
			SalesItemLineDetail: qbSalesItemLineDetail{
				Qty:       1,
				UnitPrice: inv.Amount,
				ItemRef:   qbRef{Name: "Services", Value: "1"},
			},
		}},
		CustomerRef: qbRef{Name: inv.CustomerName, Value: "1"},
		TxnDate:     today,
		DueDate:     domain.Day(inv.DueDate),
		DocNumber:   inv.ID,
	}
}

// CreateInvoice posts inv and returns the QuickBooks invoice id.
func (q *QuickBooks) CreateInvoice(ctx context.Context, inv domain.Invoice, today string) (string, error) {
	resp, err := q.http.R().
		SetContext(ctx).
		SetQueryParam("minorversion", "65").
		SetBody(toQuickBooks(inv, today)).
		Post("/v3/company/" + q.creds.RealmID + "/invoice")
	if err != nil {
		return "", fmt.Errorf("create quickbooks invoice %s: %w", inv.ID, err)
	}

	body := resp.Body()
	if resp.IsError() {
		return "", &UpstreamError{
			Status: resp.StatusCode(),
			Fault:  gjson.GetBytes(body, "Fault.Error.0.Message").String(),
			Body:   string(body),
		}
	}

	id := gjson.GetBytes(body, "Invoice.Id").String()
	if id == "" {
		return "", fmt.Errorf("create quickbooks invoice %s: reply has no Invoice.Id", inv.ID)
	}
	return id, nil
}
