package domain

// CustomerStatus is the activity state of a customer.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// QuoteStatus is the lifecycle state of a quote.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteApproved QuoteStatus = "approved"
	QuoteRejected QuoteStatus = "rejected"
	QuoteInvoiced QuoteStatus = "invoiced"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in-progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// InvoiceStatus is the payment state of an invoice.
// InvoiceVoid is only reached through a rejected quote.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePending InvoiceStatus = "pending"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

// NotificationType classifies a crew notification.
type NotificationType string

const (
	NewAssignment     NotificationType = "new_assignment"
	AssignmentRemoved NotificationType = "assignment_removed"
	DateChanged       NotificationType = "date_changed"
	TimeChanged       NotificationType = "time_changed"
	ScheduleChanged   NotificationType = "schedule_changed"
)

var (
	validCustomerStatuses    = []CustomerStatus{CustomerActive, CustomerInactive}
	validAppointmentStatuses = []AppointmentStatus{AppointmentScheduled, AppointmentCompleted, AppointmentCancelled}
	validQuoteStatuses       = []QuoteStatus{QuotePending, QuoteApproved, QuoteRejected, QuoteInvoiced}
	validJobStatuses         = []JobStatus{JobPending, JobScheduled, JobInProgress, JobCompleted, JobCancelled}
	validInvoiceStatuses     = []InvoiceStatus{InvoicePaid, InvoicePending, InvoiceOverdue, InvoiceVoid}
	validNotificationTypes   = []NotificationType{NewAssignment, AssignmentRemoved, DateChanged, TimeChanged, ScheduleChanged}
)

func oneOf[T comparable](v T, set []T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (s CustomerStatus) Valid() bool    { return oneOf(s, validCustomerStatuses) }
func (s AppointmentStatus) Valid() bool { return oneOf(s, validAppointmentStatuses) }
func (s QuoteStatus) Valid() bool       { return oneOf(s, validQuoteStatuses) }
func (s JobStatus) Valid() bool         { return oneOf(s, validJobStatuses) }
func (s InvoiceStatus) Valid() bool     { return oneOf(s, validInvoiceStatuses) }
func (t NotificationType) Valid() bool  { return oneOf(t, validNotificationTypes) }
