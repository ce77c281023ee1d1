package engine

import (
	"slices"

	"github.com/roach88/fieldsync/internal/domain"
)

func (cmd CreateInvoice) apply(c *cascade) error {
	inv := cmd.Invoice
	if inv.ID == "" {
		inv.ID = c.newID(domain.PrefixInvoice)
	} else if domain.IndexOf(c.st.Invoices, inv.ID) >= 0 {
		return c.duplicate(domain.Invoices, inv.ID)
	}
	if inv.CustomerName == "" {
		return c.invalid("customerName is required")
	}
	if inv.Status == "" {
		inv.Status = domain.InvoicePending
	}
	if !inv.Status.Valid() {
		return c.invalid("invalid invoice status %q", inv.Status)
	}
	if inv.DueDate == "" {
		inv.DueDate = c.dueDate()
	}
	switch {
	case inv.Status == domain.InvoicePaid && inv.PaidDate == "":
		inv.PaidDate = c.today()
	case inv.Status != domain.InvoicePaid:
		inv.PaidDate = ""
	}

	c.st.Invoices = append(c.st.Invoices, inv)
	c.target(domain.Invoices)

	if inv.Status == domain.InvoicePaid {
		c.invoicePaidCascade(len(c.st.Invoices) - 1)
	}
	return nil
}

func (cmd SetInvoiceStatus) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	if !cmd.Status.Valid() {
		return c.invalid("invalid invoice status %q", cmd.Status)
	}
	idx := domain.IndexOf(c.st.Invoices, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Invoices, cmd.ID)
	}
	if c.setInvoiceStatus(idx, cmd.Status) {
		c.target(domain.Invoices)
	}
	if cmd.Status == domain.InvoicePaid {
		c.invoicePaidCascade(idx)
	}
	return nil
}

func (cmd DeleteInvoice) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Invoices, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Invoices, cmd.ID)
	}
	c.st.Invoices = slices.Delete(c.st.Invoices, idx, idx+1)
	c.target(domain.Invoices)
	return nil
}

func (cmd RecordInvoiceSync) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	if cmd.QuickbooksID == "" {
		return c.invalid("quickbooksId is required")
	}
	idx := domain.IndexOf(c.st.Invoices, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Invoices, cmd.ID)
	}
	inv := &c.st.Invoices[idx]
	if inv.QuickbooksSynced && inv.QuickbooksID == cmd.QuickbooksID {
		return nil
	}
	inv.QuickbooksSynced = true
	inv.QuickbooksID = cmd.QuickbooksID
	c.target(domain.Invoices)
	return nil
}

// setInvoiceStatus sets the status of the invoice at idx, keeping paidDate
// in step, and reports whether anything changed.
func (c *cascade) setInvoiceStatus(idx int, status domain.InvoiceStatus) bool {
	inv := &c.st.Invoices[idx]
	paidDate := ""
	if status == domain.InvoicePaid {
		paidDate = inv.PaidDate
		if paidDate == "" {
			paidDate = c.today()
		}
	}
	if inv.Status == status && inv.PaidDate == paidDate {
		return false
	}
	inv.Status = status
	inv.PaidDate = paidDate
	return true
}

// invoicePaidCascade marks the quote billed by the paid invoice at idx as
// invoiced and runs the invoiced cascade for it.
func (c *cascade) invoicePaidCascade(idx int) {
	const rule = "invoice-paid"
	inv := c.st.Invoices[idx]

	l := QuoteForInvoice(c.st.Quotes, c.st.Invoices, inv)
	if !l.Found() {
		c.diag(DiagJoinMiss, rule, "no quote matches invoice %s", inv.ID)
		return
	}
	if l.Ambiguous() && !l.ByID {
		c.diag(DiagAmbiguousJoin, rule, "%d quotes match invoice %s by name; using %s",
			l.Matches, inv.ID, c.st.Quotes[l.Index].ID)
	}

	q := &c.st.Quotes[l.Index]
	if inv.QuoteID == "" {
		c.st.Invoices[idx].QuoteID = q.ID
		c.dependent(domain.Invoices)
	}
	if q.Status == domain.QuoteInvoiced {
		return
	}
	q.Status = domain.QuoteInvoiced
	c.dependent(domain.Quotes)
	c.quoteStatusCascade(*q)
}
