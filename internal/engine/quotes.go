package engine

import (
	"slices"

	"github.com/roach88/fieldsync/internal/domain"
)

func (cmd CreateQuote) apply(c *cascade) error {
	q := cmd.Quote.Clone()
	if q.ID == "" {
		q.ID = c.newID(domain.PrefixQuote)
	} else if domain.IndexOf(c.st.Quotes, q.ID) >= 0 {
		return c.duplicate(domain.Quotes, q.ID)
	}
	if q.CustomerName == "" {
		return c.invalid("customerName is required")
	}
	if q.Status == "" {
		q.Status = domain.QuotePending
	}
	if !q.Status.Valid() {
		return c.invalid("invalid quote status %q", q.Status)
	}
	if q.Date == "" {
		q.Date = c.today()
	}

	c.st.Quotes = append(c.st.Quotes, q)
	c.target(domain.Quotes)

	c.ensureJob(q, domain.JobPending, "quote-created", false)
	if q.Status != domain.QuotePending {
		c.quoteStatusCascade(q)
	}
	return nil
}

func (cmd UpdateQuote) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Quotes, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Quotes, cmd.ID)
	}
	if cmd.CustomerName != nil && *cmd.CustomerName == "" {
		return c.invalid("customerName must not be empty")
	}

	// The name join must see the values the invoice was created with.
	invLink := c.invoiceLink(c.st.Quotes[idx], "quote-updated")

	q := &c.st.Quotes[idx]
	changed := setString(&q.CustomerName, cmd.CustomerName)
	if cmd.Services != nil && !slices.Equal(cmd.Services, q.Services) {
		q.Services = slices.Clone(cmd.Services)
		changed = true
	}
	if cmd.Amount != nil && *cmd.Amount != q.Amount {
		q.Amount = *cmd.Amount
		changed = true
	}
	changed = setString(&q.Date, cmd.Date) || changed
	changed = setString(&q.Time, cmd.Time) || changed
	changed = setString(&q.Notes, cmd.Notes) || changed
	changed = setString(&q.AssignedCrew, cmd.AssignedCrew) || changed
	if !changed {
		return nil
	}
	c.target(domain.Quotes)

	service := domain.ServiceString(q.Services)
	if l := JobForQuote(c.st.Jobs, q.ID); l.Found() {
		j := &c.st.Jobs[l.Index]
		if j.Service != service || j.CustomerName != q.CustomerName || j.Notes != q.Notes {
			j.Service = service
			j.CustomerName = q.CustomerName
			j.Notes = q.Notes
			c.dependent(domain.Jobs)
		}
	}
	if invLink.Found() {
		inv := &c.st.Invoices[invLink.Index]
		if inv.Service != service || inv.CustomerName != q.CustomerName || inv.Amount != q.Amount {
			inv.Service = service
			inv.CustomerName = q.CustomerName
			inv.Amount = q.Amount
			c.dependent(domain.Invoices)
		}
	}
	return nil
}

func (cmd SetQuoteStatus) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	if !cmd.Status.Valid() {
		return c.invalid("invalid quote status %q", cmd.Status)
	}
	idx := domain.IndexOf(c.st.Quotes, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Quotes, cmd.ID)
	}
	if c.st.Quotes[idx].Status != cmd.Status {
		c.st.Quotes[idx].Status = cmd.Status
		c.target(domain.Quotes)
	}
	c.quoteStatusCascade(c.st.Quotes[idx])
	return nil
}

func (cmd DeleteQuote) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Quotes, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Quotes, cmd.ID)
	}
	q := c.st.Quotes[idx]
	invLink := c.invoiceLink(q, "quote-deleted")

	c.st.Quotes = slices.Delete(c.st.Quotes, idx, idx+1)
	c.target(domain.Quotes)

	if !c.tombstoned(q.ID) {
		c.st.DeletedJobRefs = append(c.st.DeletedJobRefs, q.ID)
		c.dependent(domain.DeletedJobRefs)
	}

	var jobs []domain.Job
	for _, j := range c.st.Jobs {
		if j.QuoteID == q.ID {
			if j.Status != domain.JobCancelled && j.Status != domain.JobCompleted {
				c.unassigned(jobSlot(j), jobDetails(j))
			}
			continue
		}
		jobs = append(jobs, j)
	}
	if len(jobs) != len(c.st.Jobs) {
		c.st.Jobs = jobs
		c.dependent(domain.Jobs)
	}

	var invoices []domain.Invoice
	for i, inv := range c.st.Invoices {
		if inv.QuoteID == q.ID || (i == invLink.Index && !invLink.ByID) {
			continue
		}
		invoices = append(invoices, inv)
	}
	if len(invoices) != len(c.st.Invoices) {
		c.st.Invoices = invoices
		c.dependent(domain.Invoices)
	}
	return nil
}

// quoteStatusCascade moves the job and invoice linked to q into the states
// implied by q's status.
func (c *cascade) quoteStatusCascade(q domain.Quote) {
	const rule = "quote-status"
	switch q.Status {
	case domain.QuoteApproved:
		if idx := c.ensureJob(q, domain.JobScheduled, rule, true); idx >= 0 && c.setJobStatus(idx, domain.JobScheduled) {
			c.dependent(domain.Jobs)
		}
		c.ensureInvoice(q, domain.InvoicePending, rule)

	case domain.QuoteRejected:
		if l := JobForQuote(c.st.Jobs, q.ID); l.Found() && c.setJobStatus(l.Index, domain.JobCancelled) {
			c.dependent(domain.Jobs)
		}
		if l := c.invoiceLink(q, rule); l.Found() && c.setInvoiceStatus(l.Index, domain.InvoiceVoid) {
			c.dependent(domain.Invoices)
		}

	case domain.QuoteInvoiced:
		if idx := c.ensureJob(q, domain.JobCompleted, rule, true); idx >= 0 && c.setJobStatus(idx, domain.JobCompleted) {
			c.dependent(domain.Jobs)
		}
		if idx := c.ensureInvoice(q, domain.InvoicePaid, rule); idx >= 0 && c.setInvoiceStatus(idx, domain.InvoicePaid) {
			c.dependent(domain.Invoices)
		}
	}
}

// ensureJob returns the position of the job linked to q, creating it with
// status when missing. A tombstoned quote never gets a job; -1 is returned.
func (c *cascade) ensureJob(q domain.Quote, status domain.JobStatus, rule string, missIsDrift bool) int {
	if l := JobForQuote(c.st.Jobs, q.ID); l.Found() {
		return l.Index
	}
	if c.tombstoned(q.ID) {
		c.diag(DiagTombstoned, rule, "job for quote %s was deleted; not recreated", q.ID)
		return -1
	}
	if missIsDrift {
		c.diag(DiagJoinMiss, rule, "no job for quote %s; created", q.ID)
	}

	date := domain.Day(q.Date)
	if date == "" {
		date = c.today()
	}
	j := domain.Job{
		ID:            c.newID(domain.PrefixJob),
		QuoteID:       q.ID,
		CustomerName:  q.CustomerName,
		Service:       domain.ServiceString(q.Services),
		Address:       c.customerAddress(q.CustomerName),
		ScheduledDate: date,
		AssignedCrew:  domain.Unassigned,
		Status:        status,
		Photos:        []domain.Photo{},
		Notes:         q.Notes,
	}
	if status == domain.JobCompleted {
		j.CompletedDate = c.today()
	}
	c.st.Jobs = append(c.st.Jobs, j)
	c.dependent(domain.Jobs)
	return len(c.st.Jobs) - 1
}

// invoiceLink finds q's invoice and reports an ambiguous name join.
func (c *cascade) invoiceLink(q domain.Quote, rule string) Link {
	l := InvoiceForQuote(c.st.Invoices, q)
	if l.Ambiguous() && !l.ByID {
		c.diag(DiagAmbiguousJoin, rule, "%d invoices match quote %s by name; using %s",
			l.Matches, q.ID, c.st.Invoices[l.Index].ID)
	}
	return l
}

// ensureInvoice returns the position of q's invoice, creating it with
// status when missing. An invoice found by name gains q's id.
func (c *cascade) ensureInvoice(q domain.Quote, status domain.InvoiceStatus, rule string) int {
	if l := c.invoiceLink(q, rule); l.Found() {
		if !l.ByID {
			c.st.Invoices[l.Index].QuoteID = q.ID
			c.dependent(domain.Invoices)
		}
		return l.Index
	}

	inv := domain.Invoice{
		ID:           c.newID(domain.PrefixInvoice),
		QuoteID:      q.ID,
		CustomerName: q.CustomerName,
		Service:      domain.ServiceString(q.Services),
		Amount:       q.Amount,
		Status:       status,
		DueDate:      c.dueDate(),
	}
	if status == domain.InvoicePaid {
		inv.PaidDate = c.today()
	}
	c.st.Invoices = append(c.st.Invoices, inv)
	c.dependent(domain.Invoices)
	return len(c.st.Invoices) - 1
}
