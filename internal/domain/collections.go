package domain

// Collection names a record collection in the persistent store.
// The string values are stable and shared with every other context
// reading the same store.
type Collection string

const (
	Customers           Collection = "customers"
	Appointments        Collection = "appointments"
	Quotes              Collection = "quotes"
	Jobs                Collection = "jobs"
	Invoices            Collection = "invoices"
	CrewMembers         Collection = "crew-members"
	CrewNotifications   Collection = "crew-notifications"
	ArchivedCustomers   Collection = "archived-customers"
	ArchivedCrewMembers Collection = "archived-crew-members"
	DeletedJobRefs      Collection = "deleted-job-references"
	Technicians         Collection = "technicians"
	DismissedReminders  Collection = "dismissed-yearly-reminders"
)

// AllCollections lists every collection in a fixed order.
var AllCollections = []Collection{
	Customers,
	Appointments,
	Quotes,
	Jobs,
	Invoices,
	CrewMembers,
	CrewNotifications,
	ArchivedCustomers,
	ArchivedCrewMembers,
	DeletedJobRefs,
	Technicians,
	DismissedReminders,
}

// EventName returns the broadcast event published after a write to c.
func (c Collection) EventName() string {
	return string(c) + "-updated"
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCollection converts a collection name or its event name to a Collection.
func ParseCollection(s string) (Collection, bool) {
	for _, known := range AllCollections {
		if s == string(known) || s == known.EventName() {
			return known, true
		}
	}
	return "", false
}

// Names returns the string names of cs.
func Names(cs []Collection) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
