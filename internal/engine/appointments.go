package engine

import (
	"slices"

	"github.com/roach88/fieldsync/internal/domain"
)

func (cmd CreateAppointment) apply(c *cascade) error {
	a := cmd.Appointment.Clone()
	if a.ID == "" {
		a.ID = c.newID(domain.PrefixAppointment)
	} else if domain.IndexOf(c.st.Appointments, a.ID) >= 0 {
		return c.duplicate(domain.Appointments, a.ID)
	}
	if a.CustomerName == "" {
		return c.invalid("customerName is required")
	}
	if domain.Day(a.Date) == "" {
		return c.invalid("invalid appointment date %q", a.Date)
	}
	if a.Status == "" {
		a.Status = domain.AppointmentScheduled
	}
	if !a.Status.Valid() {
		return c.invalid("invalid appointment status %q", a.Status)
	}
	if a.CustomerID == "" {
		a.CustomerID = c.customerID(a.CustomerName)
	}
	if a.Address == "" {
		a.Address = c.customerAddress(a.CustomerName)
	}
	if a.Services == nil {
		a.Services = []string{}
	}
	if !domain.IsAssigned(a.AssignedEmployee) {
		a.AssignedEmployee = ""
	}

	c.st.Appointments = append(c.st.Appointments, a)
	c.target(domain.Appointments)
	if a.Status == domain.AppointmentScheduled {
		c.assigned(appointmentSlot(a), appointmentDetails(a))
	}
	return nil
}

func (cmd UpdateAppointment) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Appointments, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Appointments, cmd.ID)
	}
	if cmd.CustomerName != nil && *cmd.CustomerName == "" {
		return c.invalid("customerName must not be empty")
	}
	if cmd.Date != nil && domain.Day(*cmd.Date) == "" {
		return c.invalid("invalid appointment date %q", *cmd.Date)
	}

	a := &c.st.Appointments[idx]
	before := appointmentSlot(*a)
	if cmd.AssignedEmployee != nil && !domain.IsAssigned(*cmd.AssignedEmployee) {
		none := ""
		cmd.AssignedEmployee = &none
	}
	changed := setString(&a.CustomerName, cmd.CustomerName)
	if cmd.Services != nil && !slices.Equal(cmd.Services, a.Services) {
		a.Services = slices.Clone(cmd.Services)
		changed = true
	}
	changed = setString(&a.Date, cmd.Date) || changed
	changed = setString(&a.Time, cmd.Time) || changed
	changed = setString(&a.Address, cmd.Address) || changed
	changed = setString(&a.Notes, cmd.Notes) || changed
	changed = setString(&a.AssignedEmployee, cmd.AssignedEmployee) || changed
	if !changed {
		return nil
	}
	c.target(domain.Appointments)

	if a.Status == domain.AppointmentScheduled {
		c.rescheduled(before, appointmentSlot(*a), appointmentDetails(*a))
	}
	return nil
}

func (cmd SetAppointmentStatus) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	if !cmd.Status.Valid() {
		return c.invalid("invalid appointment status %q", cmd.Status)
	}
	idx := domain.IndexOf(c.st.Appointments, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Appointments, cmd.ID)
	}
	a := &c.st.Appointments[idx]
	if a.Status == cmd.Status {
		return nil
	}
	prev := a.Status
	a.Status = cmd.Status
	c.target(domain.Appointments)

	if cmd.Status == domain.AppointmentCancelled && prev == domain.AppointmentScheduled {
		c.unassigned(appointmentSlot(*a), appointmentDetails(*a))
	}
	return nil
}

// DeleteAppointment removes the appointment and unwinds the work booked
// against it: same-day jobs for the customer are cancelled, same-day quotes
// lose their time and crew, and the customer's open invoices go back to
// pending. Completed jobs and paid invoices stay as they are.
func (cmd DeleteAppointment) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Appointments, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Appointments, cmd.ID)
	}
	a := c.st.Appointments[idx]
	c.st.Appointments = slices.Delete(c.st.Appointments, idx, idx+1)
	c.target(domain.Appointments)

	if a.Status == domain.AppointmentScheduled {
		c.unassigned(appointmentSlot(a), appointmentDetails(a))
	}

	for _, i := range JobsOnDay(c.st.Jobs, a.CustomerName, a.Date) {
		if c.st.Jobs[i].Status == domain.JobCompleted {
			continue
		}
		if c.setJobStatus(i, domain.JobCancelled) {
			c.dependent(domain.Jobs)
		}
	}

	for _, i := range QuotesOnDay(c.st.Quotes, a.CustomerName, a.Date) {
		q := &c.st.Quotes[i]
		if q.Time == "" && !domain.IsAssigned(q.AssignedCrew) {
			continue
		}
		q.Time = ""
		q.AssignedCrew = domain.Unassigned
		c.dependent(domain.Quotes)
	}

	for i := range c.st.Invoices {
		inv := &c.st.Invoices[i]
		if !domain.SameName(inv.CustomerName, a.CustomerName) {
			continue
		}
		if inv.Status == domain.InvoicePaid || inv.Status == domain.InvoicePending {
			continue
		}
		if c.setInvoiceStatus(i, domain.InvoicePending) {
			c.dependent(domain.Invoices)
		}
	}
	return nil
}
