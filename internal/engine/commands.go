package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/fieldsync/internal/domain"
)

// Command is one state-changing operation. The set of commands is closed:
// only the types in this package implement it.
type Command interface {
	// CommandName returns the kebab-case wire name.
	CommandName() string

	apply(c *cascade) error
}

// Customers.

type CreateCustomer struct{ domain.Customer }

type UpdateCustomer struct {
	ID      string                 `json:"id"`
	Name    *string                `json:"name,omitempty"`
	Email   *string                `json:"email,omitempty"`
	Phone   *string                `json:"phone,omitempty"`
	Address *string                `json:"address,omitempty"`
	Status  *domain.CustomerStatus `json:"status,omitempty"`
	Notes   *string                `json:"notes,omitempty"`
}

type DeleteCustomer struct {
	ID string `json:"id"`
}

type ArchiveCustomer struct {
	ID string `json:"id"`
}

type RestoreCustomer struct {
	ID string `json:"id"`
}

type PurgeCustomer struct {
	ID string `json:"id"`
}

// Crew members.

type CreateCrewMember struct{ domain.CrewMember }

type UpdateCrewMember struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

type DeleteCrewMember struct {
	ID string `json:"id"`
}

type ArchiveCrewMember struct {
	ID string `json:"id"`
}

type RestoreCrewMember struct {
	ID string `json:"id"`
}

type PurgeCrewMember struct {
	ID string `json:"id"`
}

// Appointments.

type CreateAppointment struct{ domain.Appointment }

// UpdateAppointment patches an appointment. Nil fields are left unchanged;
// an empty AssignedEmployee unassigns it.
type UpdateAppointment struct {
	ID               string   `json:"id"`
	CustomerName     *string  `json:"customerName,omitempty"`
	Services         []string `json:"services,omitempty"`
	Date             *string  `json:"date,omitempty"`
	Time             *string  `json:"time,omitempty"`
	Address          *string  `json:"address,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	AssignedEmployee *string  `json:"assignedEmployee,omitempty"`
}

type SetAppointmentStatus struct {
	ID     string                   `json:"id"`
	Status domain.AppointmentStatus `json:"status"`
}

type DeleteAppointment struct {
	ID string `json:"id"`
}

// Quotes.

type CreateQuote struct{ domain.Quote }

type UpdateQuote struct {
	ID           string   `json:"id"`
	CustomerName *string  `json:"customerName,omitempty"`
	Services     []string `json:"services,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
	Date         *string  `json:"date,omitempty"`
	Time         *string  `json:"time,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	AssignedCrew *string  `json:"assignedCrew,omitempty"`
}

// SetQuoteStatus approves, rejects or invoices a quote (or returns it to
// pending).
type SetQuoteStatus struct {
	ID     string             `json:"id"`
	Status domain.QuoteStatus `json:"status"`
}

type DeleteQuote struct {
	ID string `json:"id"`
}

// Jobs.

type CreateJob struct{ domain.Job }

type UpdateJob struct {
	ID            string  `json:"id"`
	CustomerName  *string `json:"customerName,omitempty"`
	Service       *string `json:"service,omitempty"`
	Address       *string `json:"address,omitempty"`
	ScheduledDate *string `json:"scheduledDate,omitempty"`
	ScheduledTime *string `json:"scheduledTime,omitempty"`
	AssignedCrew  *string `json:"assignedCrew,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type SetJobStatus struct {
	ID     string           `json:"id"`
	Status domain.JobStatus `json:"status"`
}

type AddJobPhoto struct {
	JobID   string `json:"jobId"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type RemoveJobPhoto struct {
	JobID   string `json:"jobId"`
	PhotoID string `json:"photoId"`
}

type DeleteJob struct {
	ID string `json:"id"`
}

// Invoices.

type CreateInvoice struct{ domain.Invoice }

type SetInvoiceStatus struct {
	ID     string               `json:"id"`
	Status domain.InvoiceStatus `json:"status"`
}

type DeleteInvoice struct {
	ID string `json:"id"`
}

// RecordInvoiceSync marks an invoice as pushed to the accounting system.
type RecordInvoiceSync struct {
	ID           string `json:"id"`
	QuickbooksID string `json:"quickbooksId"`
}

// Crew notifications.

// CreateNotification adds a notification directly. Message defaults to the
// standard text for Type.
type CreateNotification struct {
	CrewMemberName string                     `json:"crewMemberName"`
	Type           domain.NotificationType    `json:"type"`
	Message        string                     `json:"message,omitempty"`
	Details        domain.NotificationDetails `json:"details"`
}

type MarkNotificationRead struct {
	ID string `json:"id"`
}

type MarkAllNotificationsRead struct {
	CrewMemberName string `json:"crewMemberName"`
}

// Yearly reminders.

type DismissYearlyReminder struct {
	JobID string `json:"jobId"`
}

type MarkYearlyReminderSent struct {
	JobID string `json:"jobId"`
}

// Maintenance.

// Resync repairs drift between quotes, jobs and invoices.
type Resync struct{}

// ClearAllData empties every collection.
type ClearAllData struct{}

func (CreateCustomer) CommandName() string           { return "create-customer" }
func (UpdateCustomer) CommandName() string           { return "update-customer" }
func (DeleteCustomer) CommandName() string           { return "delete-customer" }
func (ArchiveCustomer) CommandName() string          { return "archive-customer" }
func (RestoreCustomer) CommandName() string          { return "restore-customer" }
func (PurgeCustomer) CommandName() string            { return "purge-customer" }
func (CreateCrewMember) CommandName() string         { return "create-crew-member" }
func (UpdateCrewMember) CommandName() string         { return "update-crew-member" }
func (DeleteCrewMember) CommandName() string         { return "delete-crew-member" }
func (ArchiveCrewMember) CommandName() string        { return "archive-crew-member" }
func (RestoreCrewMember) CommandName() string        { return "restore-crew-member" }
func (PurgeCrewMember) CommandName() string          { return "purge-crew-member" }
func (CreateAppointment) CommandName() string        { return "create-appointment" }
func (UpdateAppointment) CommandName() string        { return "update-appointment" }
func (SetAppointmentStatus) CommandName() string     { return "set-appointment-status" }
func (DeleteAppointment) CommandName() string        { return "delete-appointment" }
func (CreateQuote) CommandName() string              { return "create-quote" }
func (UpdateQuote) CommandName() string              { return "update-quote" }
func (SetQuoteStatus) CommandName() string           { return "set-quote-status" }
func (DeleteQuote) CommandName() string              { return "delete-quote" }
func (CreateJob) CommandName() string                { return "create-job" }
func (UpdateJob) CommandName() string                { return "update-job" }
func (SetJobStatus) CommandName() string             { return "set-job-status" }
func (AddJobPhoto) CommandName() string              { return "add-job-photo" }
func (RemoveJobPhoto) CommandName() string           { return "remove-job-photo" }
func (DeleteJob) CommandName() string                { return "delete-job" }
func (CreateInvoice) CommandName() string            { return "create-invoice" }
func (SetInvoiceStatus) CommandName() string         { return "set-invoice-status" }
func (DeleteInvoice) CommandName() string            { return "delete-invoice" }
func (RecordInvoiceSync) CommandName() string        { return "record-invoice-sync" }
func (CreateNotification) CommandName() string       { return "create-notification" }
func (MarkNotificationRead) CommandName() string     { return "mark-notification-read" }
func (MarkAllNotificationsRead) CommandName() string { return "mark-all-notifications-read" }
func (DismissYearlyReminder) CommandName() string    { return "dismiss-yearly-reminder" }
func (MarkYearlyReminderSent) CommandName() string   { return "mark-yearly-reminder-sent" }
func (Resync) CommandName() string                   { return "resync" }
func (ClearAllData) CommandName() string             { return "clear-all-data" }

type decoder func(data []byte) (Command, error)

var registry = map[string]decoder{
	"create-customer":             decodeAs[CreateCustomer],
	"update-customer":             decodeAs[UpdateCustomer],
	"delete-customer":             decodeAs[DeleteCustomer],
	"archive-customer":            decodeAs[ArchiveCustomer],
	"restore-customer":            decodeAs[RestoreCustomer],
	"purge-customer":              decodeAs[PurgeCustomer],
	"create-crew-member":          decodeAs[CreateCrewMember],
	"update-crew-member":          decodeAs[UpdateCrewMember],
	"delete-crew-member":          decodeAs[DeleteCrewMember],
	"archive-crew-member":         decodeAs[ArchiveCrewMember],
	"restore-crew-member":         decodeAs[RestoreCrewMember],
	"purge-crew-member":           decodeAs[PurgeCrewMember],
	"create-appointment":          decodeAs[CreateAppointment],
	"update-appointment":          decodeAs[UpdateAppointment],
	"set-appointment-status":      decodeAs[SetAppointmentStatus],
	"delete-appointment":          decodeAs[DeleteAppointment],
	"create-quote":                decodeAs[CreateQuote],
	"update-quote":                decodeAs[UpdateQuote],
	"set-quote-status":            decodeAs[SetQuoteStatus],
	"delete-quote":                decodeAs[DeleteQuote],
	"create-job":                  decodeAs[CreateJob],
	"update-job":                  decodeAs[UpdateJob],
	"set-job-status":              decodeAs[SetJobStatus],
	"add-job-photo":               decodeAs[AddJobPhoto],
	"remove-job-photo":            decodeAs[RemoveJobPhoto],
	"delete-job":                  decodeAs[DeleteJob],
	"create-invoice":              decodeAs[CreateInvoice],
	"set-invoice-status":          decodeAs[SetInvoiceStatus],
	"delete-invoice":              decodeAs[DeleteInvoice],
	"record-invoice-sync":         decodeAs[RecordInvoiceSync],
	"create-notification":         decodeAs[CreateNotification],
	"mark-notification-read":      decodeAs[MarkNotificationRead],
	"mark-all-notifications-read": decodeAs[MarkAllNotificationsRead],
	"dismiss-yearly-reminder":     decodeAs[DismissYearlyReminder],
	"mark-yearly-reminder-sent":   decodeAs[MarkYearlyReminderSent],
	"resync":                      decodeAs[Resync],
	"clear-all-data":              decodeAs[ClearAllData],
}

// DecodeCommand builds the command named name from its JSON arguments.
// Empty data decodes as an empty object. Unknown fields are rejected.
func DecodeCommand(name string, data []byte) (Command, error) {
	dec, ok := registry[name]
	if !ok {
		return nil, NewUnknownCommandError(name)
	}
	cmd, err := dec(data)
	if err != nil {
		return nil, &RuntimeError{
			Code:    ErrCodeInvalidCommand,
			Message: "decode arguments",
			Command: name,
			Err:     err,
		}
	}
	return cmd, nil
}

// CommandNames returns every wire name in sorted order.
func CommandNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeAs[T Command](data []byte) (Command, error) {
	var cmd T
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return cmd, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after arguments")
	}
	return cmd, nil
}
