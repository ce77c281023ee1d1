package domain

// Unassigned is the crew name carried by records with no crew member.
const Unassigned = "Unassigned"

// Record is implemented by every record type that has an identifier.
type Record interface {
	RecordID() string
}

// Customer is a client of the business. Its name is the de facto join key
// used by appointments, quotes, jobs and invoices.
type Customer struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Address string         `json:"address"`
	Status  CustomerStatus `json:"status"`
	Notes   string         `json:"notes,omitempty"`
}

// CrewMember is a field worker referenced by name from appointments and jobs.
type CrewMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Appointment is a calendar booking. It may or may not have a matching job.
type Appointment struct {
	ID               string            `json:"id"`
	CustomerID       string            `json:"customerId"`
	CustomerName     string            `json:"customerName"`
	Services         []string          `json:"services"`
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	Address          string            `json:"address"`
	Status           AppointmentStatus `json:"status"`
	Notes            string            `json:"notes"`
	AssignedEmployee string            `json:"assignedEmployee,omitempty"`
}

// Quote is a price proposal. Its status drives job and invoice creation.
type Quote struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customerName"`
	Services     []string    `json:"services"`
	Amount       float64     `json:"amount"`
	Status       QuoteStatus `json:"status"`
	Date         string      `json:"date"`
	Time         string      `json:"time,omitempty"`
	Notes        string      `json:"notes"`
	AssignedCrew string      `json:"assignedCrew,omitempty"`
}

// Photo is an image attached to a job.
type Photo struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Caption    string `json:"caption,omitempty"`
	UploadedAt string `json:"uploadedAt"`
}

// Job is the central execution record. Jobs created from a quote carry its id.
type Job struct {
	ID                 string    `json:"id"`
	QuoteID            string    `json:"quoteId,omitempty"`
	CustomerName       string    `json:"customerName"`
	Service            string    `json:"service"`
	Address            string    `json:"address"`
	ScheduledDate      string    `json:"scheduledDate"`
	ScheduledTime      string    `json:"scheduledTime,omitempty"`
	AssignedCrew       string    `json:"assignedCrew"`
	Status             JobStatus `json:"status"`
	Photos             []Photo   `json:"photos"`
	Notes              string    `json:"notes"`
	ReminderSent       bool      `json:"reminderSent,omitempty"`
	CompletedDate      string    `json:"completedDate,omitempty"`
	YearlyReminderSent bool      `json:"yearlyReminderSent,omitempty"`
}

// Invoice is a bill for work. It links to its quote by id when available.
type Invoice struct {
	ID               string        `json:"id"`
	QuoteID          string        `json:"quoteId,omitempty"`
	CustomerName     string        `json:"customerName"`
	Service          string        `json:"service"`
	Amount           float64       `json:"amount"`
	Status           InvoiceStatus `json:"status"`
	DueDate          string        `json:"dueDate"`
	PaidDate         string        `json:"paidDate,omitempty"`
	QuickbooksSynced bool          `json:"quickbooksSynced"`
	QuickbooksID     string        `json:"quickbooksId,omitempty"`
}

// NotificationDetails describes the record a crew notification is about.
type NotificationDetails struct {
	RecordID     string `json:"recordId,omitempty"`
	RecordType   string `json:"recordType,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	Service      string `json:"service,omitempty"`
	Address      string `json:"address,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	OldDate      string `json:"oldDate,omitempty"`
	OldTime      string `json:"oldTime,omitempty"`
}

// CrewNotification is a feed item for one crew member. Read never goes
// back to false once set.
type CrewNotification struct {
	ID             string              `json:"id"`
	CrewMemberName string              `json:"crewMemberName"`
	Type           NotificationType    `json:"type"`
	Message        string              `json:"message"`
	Details        NotificationDetails `json:"details"`
	Timestamp      string              `json:"timestamp"`
	Read           bool                `json:"read"`
}

func (c Customer) RecordID() string         { return c.ID }
func (c CrewMember) RecordID() string       { return c.ID }
func (a Appointment) RecordID() string      { return a.ID }
func (q Quote) RecordID() string            { return q.ID }
func (j Job) RecordID() string              { return j.ID }
func (i Invoice) RecordID() string          { return i.ID }
func (n CrewNotification) RecordID() string { return n.ID }

// Clone returns a copy of a that shares no slices with it.
func (a Appointment) Clone() Appointment {
	a.Services = cloneStrings(a.Services)
	return a
}

// Clone returns a copy of q that shares no slices with it.
func (q Quote) Clone() Quote {
	q.Services = cloneStrings(q.Services)
	return q
}

// Clone returns a copy of j that shares no slices with it.
func (j Job) Clone() Job {
	if j.Photos != nil {
		photos := make([]Photo, len(j.Photos))
		copy(photos, j.Photos)
		j.Photos = photos
	}
	return j
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// IndexOf returns the position of the record with the given id, or -1.
func IndexOf[T Record](records []T, id string) int {
	for i, r := range records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}
