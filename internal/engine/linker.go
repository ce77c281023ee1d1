package engine

import (
	"github.com/roach88/fieldsync/internal/domain"
)

// Link is the result of a join between two collections.
type Link struct {
	// Index is the position of the chosen record, or -1.
	Index int
	// Matches counts the candidates; more than one makes the link ambiguous.
	Matches int
	// ByID reports whether the link used quoteId rather than names.
	ByID bool
}

// Found reports whether a record was chosen.
func (l Link) Found() bool { return l.Index >= 0 }

// Ambiguous reports whether the name join had several candidates.
func (l Link) Ambiguous() bool { return l.Matches > 1 }

var noLink = Link{Index: -1}

// JobForQuote finds the job created from quote id.
func JobForQuote(jobs []domain.Job, quoteID string) Link {
	return firstBy(jobs, func(j domain.Job) bool { return j.QuoteID == quoteID }, true)
}

// InvoiceForQuote finds the invoice billed for q. The quoteId link wins;
// failing that, the first invoice without a quoteId whose customer and
// service string match q is chosen.
func InvoiceForQuote(invoices []domain.Invoice, q domain.Quote) Link {
	if l := firstBy(invoices, func(i domain.Invoice) bool { return i.QuoteID == q.ID }, true); l.Found() {
		return l
	}
	service := domain.ServiceString(q.Services)
	return firstBy(invoices, func(i domain.Invoice) bool {
		return i.QuoteID == "" && domain.SameName(i.CustomerName, q.CustomerName) && i.Service == service
	}, false)
}

// QuoteForInvoice finds the quote an invoice bills. The quoteId link wins;
// failing that, the first quote for the same customer with an equal service
// string that is not yet invoiced and not already billed by another invoice
// is chosen. A quote has at most one invoice carrying its id.
func QuoteForInvoice(quotes []domain.Quote, invoices []domain.Invoice, inv domain.Invoice) Link {
	if inv.QuoteID != "" {
		if l := firstBy(quotes, func(q domain.Quote) bool { return q.ID == inv.QuoteID }, true); l.Found() {
			return l
		}
	}
	billed := make(map[string]bool, len(invoices))
	for _, other := range invoices {
		if other.ID != inv.ID && other.QuoteID != "" {
			billed[other.QuoteID] = true
		}
	}
	return firstBy(quotes, func(q domain.Quote) bool {
		return q.Status != domain.QuoteInvoiced &&
			!billed[q.ID] &&
			domain.SameName(q.CustomerName, inv.CustomerName) &&
			domain.ServiceString(q.Services) == inv.Service
	}, false)
}

// JobsOnDay returns the positions of the jobs for customer scheduled on the
// calendar date of day.
func JobsOnDay(jobs []domain.Job, customer, day string) []int {
	var out []int
	for i, j := range jobs {
		if domain.SameName(j.CustomerName, customer) && domain.SameDay(j.ScheduledDate, day) {
			out = append(out, i)
		}
	}
	return out
}

// QuotesOnDay returns the positions of customer's quotes dated day.
func QuotesOnDay(quotes []domain.Quote, customer, day string) []int {
	var out []int
	for i, q := range quotes {
		if domain.SameName(q.CustomerName, customer) && domain.SameDay(q.Date, day) {
			out = append(out, i)
		}
	}
	return out
}

func firstBy[T any](records []T, match func(T) bool, byID bool) Link {
	l := noLink
	for i, r := range records {
		if !match(r) {
			continue
		}
		if l.Index < 0 {
			l.Index = i
		}
		l.Matches++
	}
	if l.Found() {
		l.ByID = byID
	}
	return l
}
