package engine

import (
	"slices"

	"github.com/roach88/fieldsync/internal/crew"
	"github.com/roach88/fieldsync/internal/domain"
)

func (cmd CreateNotification) apply(c *cascade) error {
	if !domain.IsAssigned(cmd.CrewMemberName) {
		return c.invalid("crewMemberName is required")
	}
	if !cmd.Type.Valid() {
		return c.invalid("invalid notification type %q", cmd.Type)
	}
	n := crew.NewNotification(c.env.IDs, c.env.Now, cmd.CrewMemberName, cmd.Type, cmd.Details)
	if cmd.Message != "" {
		n.Message = cmd.Message
	}
	c.notes = append(c.notes, n)
	c.notesAreTarget = true
	return nil
}

func (cmd MarkNotificationRead) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	list, found, changed := crew.MarkRead(c.st.Notifications, cmd.ID)
	if !found {
		return c.notFound(domain.CrewNotifications, cmd.ID)
	}
	if changed {
		c.st.Notifications = list
		c.target(domain.CrewNotifications)
	}
	return nil
}

func (cmd MarkAllNotificationsRead) apply(c *cascade) error {
	if !domain.IsAssigned(cmd.CrewMemberName) {
		return c.invalid("crewMemberName is required")
	}
	list, n := crew.MarkAllRead(c.st.Notifications, cmd.CrewMemberName)
	if n > 0 {
		c.st.Notifications = list
		c.target(domain.CrewNotifications)
	}
	return nil
}

func (cmd DismissYearlyReminder) apply(c *cascade) error {
	if cmd.JobID == "" {
		return c.invalid("jobId is required")
	}
	if slices.Contains(c.st.DismissedReminders, cmd.JobID) {
		return nil
	}
	c.st.DismissedReminders = append(c.st.DismissedReminders, cmd.JobID)
	c.target(domain.DismissedReminders)
	return nil
}

func (cmd MarkYearlyReminderSent) apply(c *cascade) error {
	if cmd.JobID == "" {
		return c.invalid("jobId is required")
	}
	idx := domain.IndexOf(c.st.Jobs, cmd.JobID)
	if idx < 0 {
		return c.notFound(domain.Jobs, cmd.JobID)
	}
	if c.st.Jobs[idx].YearlyReminderSent {
		return nil
	}
	c.st.Jobs[idx].YearlyReminderSent = true
	c.target(domain.Jobs)
	return nil
}

// resyncJobStatus is the job state a quote with a missing job implies.
var resyncJobStatus = map[domain.QuoteStatus]domain.JobStatus{
	domain.QuotePending:  domain.JobPending,
	domain.QuoteApproved: domain.JobScheduled,
	domain.QuoteInvoiced: domain.JobCompleted,
}

// Resync creates the jobs and invoices missing for existing quotes and
// brings invoiced quotes' jobs and invoices to completed and paid. It never
// creates a job for a tombstoned quote. Every write it makes is a cascade
// write.
func (Resync) apply(c *cascade) error {
	const rule = "resync"

	if len(c.st.CrewMembers) == 0 && len(c.st.Technicians) > 0 {
		c.st.CrewMembers = slices.Clone(c.st.Technicians)
		c.dependent(domain.CrewMembers)
	}

	for _, q := range c.st.Quotes {
		status, ok := resyncJobStatus[q.Status]
		if !ok {
			continue
		}
		idx := c.ensureJob(q, status, rule, true)
		if q.Status == domain.QuotePending {
			continue
		}
		if q.Status == domain.QuoteInvoiced && idx >= 0 && c.setJobStatus(idx, domain.JobCompleted) {
			c.dependent(domain.Jobs)
		}

		invStatus := domain.InvoicePending
		if q.Status == domain.QuoteInvoiced {
			invStatus = domain.InvoicePaid
		}
		inv := c.ensureInvoice(q, invStatus, rule)
		if q.Status == domain.QuoteInvoiced && c.setInvoiceStatus(inv, domain.InvoicePaid) {
			c.dependent(domain.Invoices)
		}
	}
	return nil
}

func (ClearAllData) apply(c *cascade) error {
	*c.st = State{}
	for _, col := range domain.AllCollections {
		c.target(col)
	}
	return nil
}
