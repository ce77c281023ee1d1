package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/store"
)

// State is a snapshot of every collection. JSON field names are the
// collection names.
type State struct {
	Customers          []domain.Customer                    `json:"customers"`
	Appointments       []domain.Appointment                 `json:"appointments"`
	Quotes             []domain.Quote                       `json:"quotes"`
	Jobs               []domain.Job                         `json:"jobs"`
	Invoices           []domain.Invoice                     `json:"invoices"`
	CrewMembers        []domain.CrewMember                  `json:"crew-members"`
	Notifications      []domain.CrewNotification            `json:"crew-notifications"`
	ArchivedCustomers  []domain.Archived[domain.Customer]   `json:"archived-customers"`
	ArchivedCrew       []domain.Archived[domain.CrewMember] `json:"archived-crew-members"`
	DeletedJobRefs     []string                             `json:"deleted-job-references"`
	Technicians        []domain.CrewMember                  `json:"technicians"`
	DismissedReminders []string                             `json:"dismissed-yearly-reminders"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Customers:          cloneSlice(s.Customers),
		CrewMembers:        cloneSlice(s.CrewMembers),
		Invoices:           cloneSlice(s.Invoices),
		Notifications:      cloneSlice(s.Notifications),
		ArchivedCustomers:  cloneSlice(s.ArchivedCustomers),
		ArchivedCrew:       cloneSlice(s.ArchivedCrew),
		DeletedJobRefs:     cloneSlice(s.DeletedJobRefs),
		Technicians:        cloneSlice(s.Technicians),
		DismissedReminders: cloneSlice(s.DismissedReminders),
	}
	if s.Appointments != nil {
		out.Appointments = make([]domain.Appointment, len(s.Appointments))
		for i, a := range s.Appointments {
			out.Appointments[i] = a.Clone()
		}
	}
	if s.Quotes != nil {
		out.Quotes = make([]domain.Quote, len(s.Quotes))
		for i, q := range s.Quotes {
			out.Quotes[i] = q.Clone()
		}
	}
	if s.Jobs != nil {
		out.Jobs = make([]domain.Job, len(s.Jobs))
		for i, j := range s.Jobs {
			out.Jobs[i] = j.Clone()
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// Records returns the slice held for collection c, never nil.
func (s *State) Records(c domain.Collection) (any, error) {
	switch c {
	case domain.Customers:
		return orEmpty(s.Customers), nil
	case domain.Appointments:
		return orEmpty(s.Appointments), nil
	case domain.Quotes:
		return orEmpty(s.Quotes), nil
	case domain.Jobs:
		return orEmpty(s.Jobs), nil
	case domain.Invoices:
		return orEmpty(s.Invoices), nil
	case domain.CrewMembers:
		return orEmpty(s.CrewMembers), nil
	case domain.CrewNotifications:
		return orEmpty(s.Notifications), nil
	case domain.ArchivedCustomers:
		return orEmpty(s.ArchivedCustomers), nil
	case domain.ArchivedCrewMembers:
		return orEmpty(s.ArchivedCrew), nil
	case domain.DeletedJobRefs:
		return orEmpty(s.DeletedJobRefs), nil
	case domain.Technicians:
		return orEmpty(s.Technicians), nil
	case domain.DismissedReminders:
		return orEmpty(s.DismissedReminders), nil
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}
}

// Encode returns the JSON array stored for collection c.
func (s *State) Encode(c domain.Collection) ([]byte, error) {
	records, err := s.Records(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(records)
}

// LoadState reads every collection from rs. Collections never written load
// as empty.
func LoadState(ctx context.Context, rs store.RawStore) (State, error) {
	var st State
	loaders := []func() error{
		func() error { return load(ctx, rs, domain.Customers, &st.Customers) },
		func() error { return load(ctx, rs, domain.Appointments, &st.Appointments) },
		func() error { return load(ctx, rs, domain.Quotes, &st.Quotes) },
		func() error { return load(ctx, rs, domain.Jobs, &st.Jobs) },
		func() error { return load(ctx, rs, domain.Invoices, &st.Invoices) },
		func() error { return load(ctx, rs, domain.CrewMembers, &st.CrewMembers) },
		func() error { return load(ctx, rs, domain.CrewNotifications, &st.Notifications) },
		func() error { return load(ctx, rs, domain.ArchivedCustomers, &st.ArchivedCustomers) },
		func() error { return load(ctx, rs, domain.ArchivedCrewMembers, &st.ArchivedCrew) },
		func() error { return load(ctx, rs, domain.DeletedJobRefs, &st.DeletedJobRefs) },
		func() error { return load(ctx, rs, domain.Technicians, &st.Technicians) },
		func() error { return load(ctx, rs, domain.DismissedReminders, &st.DismissedReminders) },
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return State{}, fmt.Errorf("load state: %w", err)
		}
	}
	return st, nil
}

func load[T any](ctx context.Context, rs store.RawStore, c domain.Collection, dst *[]T) error {
	records, err := store.NewRepository[T](rs, string(c)).LoadAll(ctx)
	if err != nil {
		return err
	}
	*dst = records
	return nil
}
