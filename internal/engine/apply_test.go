package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/testutil"
)

var testNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

// session applies commands one after another, carrying state and ids.
type session struct {
	t   *testing.T
	st  State
	env Env
}

func newSession(t *testing.T, st State) *session {
	return &session{t: t, st: st, env: Env{Now: testNow, IDs: testutil.NewSequentialIDs()}}
}

func (s *session) do(cmd Command) Result {
	s.t.Helper()
	res, err := Apply(s.st, cmd, s.env)
	require.NoError(s.t, err, "apply %s", cmd.CommandName())
	s.st = res.State
	return res
}

func (s *session) fail(cmd Command) error {
	s.t.Helper()
	_, err := Apply(s.st, cmd, s.env)
	require.Error(s.t, err, "apply %s", cmd.CommandName())
	return err
}

func effects(pairs ...any) []Effect {
	var out []Effect
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Effect{Collection: pairs[i].(domain.Collection), Origin: pairs[i+1].(bus.Origin)})
	}
	return out
}

func janeQuote() CreateQuote {
	return CreateQuote{domain.Quote{
		CustomerName: "Jane Doe",
		Services:     []string{"Driveway Cleaning"},
		Amount:       200,
	}}
}

func TestApply_QuoteLifecycle(t *testing.T) {
	s := newSession(t, State{
		Customers: []domain.Customer{{ID: "CUST-1", Name: "Jane Doe", Address: "1 Elm St", Status: domain.CustomerActive}},
	})

	res := s.do(janeQuote())
	assert.Equal(t, effects(domain.Quotes, bus.OriginCommand, domain.Jobs, bus.OriginCascade), res.Effects)
	require.Len(t, s.st.Quotes, 1)
	require.Len(t, s.st.Jobs, 1)
	q := s.st.Quotes[0]
	assert.Equal(t, "Q-1", q.ID)
	assert.Equal(t, domain.QuotePending, q.Status)
	assert.Equal(t, "2026-02-01", q.Date)

	job := s.st.Jobs[0]
	assert.Equal(t, "J-1", job.ID)
	assert.Equal(t, "Q-1", job.QuoteID)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Equal(t, domain.Unassigned, job.AssignedCrew)
	assert.Equal(t, "Driveway Cleaning", job.Service)
	assert.Equal(t, "1 Elm St", job.Address)
	assert.Equal(t, "2026-02-01", job.ScheduledDate)
	assert.Empty(t, s.st.Invoices)

	res = s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})
	assert.Equal(t, effects(
		domain.Quotes, bus.OriginCommand,
		domain.Jobs, bus.OriginCascade,
		domain.Invoices, bus.OriginCascade,
	), res.Effects)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, domain.JobScheduled, s.st.Jobs[0].Status)
	require.Len(t, s.st.Invoices, 1)
	inv := s.st.Invoices[0]
	assert.Equal(t, "INV-1", inv.ID)
	assert.Equal(t, "Q-1", inv.QuoteID)
	assert.Equal(t, 200.0, inv.Amount)
	assert.Equal(t, domain.InvoicePending, inv.Status)
	assert.Equal(t, "2026-03-03", inv.DueDate)

	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteInvoiced})
	assert.Equal(t, domain.JobCompleted, s.st.Jobs[0].Status)
	assert.Equal(t, "2026-02-01", s.st.Jobs[0].CompletedDate)
	assert.Equal(t, domain.InvoicePaid, s.st.Invoices[0].Status)
	assert.Equal(t, "2026-02-01", s.st.Invoices[0].PaidDate)
	assert.Len(t, s.st.Jobs, 1)
	assert.Len(t, s.st.Invoices, 1)
}

func TestApply_ApproveIsIdempotent(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})

	res := s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})
	assert.Empty(t, res.Effects, "second approval changes nothing")
	assert.Len(t, s.st.Jobs, 1)
	assert.Len(t, s.st.Invoices, 1)
}

func TestApply_ApproveCreatesMissingJob(t *testing.T) {
	s := newSession(t, State{
		Quotes: []domain.Quote{{ID: "Q-9", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Amount: 90, Status: domain.QuotePending, Date: "2026-02-14"}},
	})

	res := s.do(SetQuoteStatus{ID: "Q-9", Status: domain.QuoteApproved})
	require.Len(t, s.st.Jobs, 1)
	assert.Equal(t, domain.JobScheduled, s.st.Jobs[0].Status)
	assert.Equal(t, "2026-02-14", s.st.Jobs[0].ScheduledDate)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagJoinMiss, res.Diagnostics[0].Kind)
}

func TestApply_TombstoneRespected(t *testing.T) {
	s := newSession(t, State{
		Quotes:         []domain.Quote{{ID: "Q-9", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Amount: 90, Status: domain.QuotePending}},
		DeletedJobRefs: []string{"Q-9"},
	})

	res := s.do(SetQuoteStatus{ID: "Q-9", Status: domain.QuoteApproved})
	assert.Empty(t, s.st.Jobs)
	assert.Len(t, s.st.Invoices, 1, "the invoice is still billed")
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, DiagTombstoned, res.Diagnostics[0].Kind)

	s.do(Resync{})
	assert.Empty(t, s.st.Jobs, "resync never resurrects a deleted job")
}

func TestApply_QuoteRejected(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})

	res := s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteRejected})
	assert.Equal(t, domain.JobCancelled, s.st.Jobs[0].Status)
	assert.Equal(t, domain.InvoiceVoid, s.st.Invoices[0].Status)
	assert.Len(t, s.st.Jobs, 1)
	assert.Len(t, s.st.Invoices, 1)
	assert.Empty(t, res.Notifications, "unassigned job has nobody to tell")
}

func TestApply_CreateQuoteAlreadyApproved(t *testing.T) {
	s := newSession(t, State{})
	cmd := janeQuote()
	cmd.Status = domain.QuoteApproved

	s.do(cmd)
	require.Len(t, s.st.Jobs, 1)
	assert.Equal(t, domain.JobScheduled, s.st.Jobs[0].Status)
	require.Len(t, s.st.Invoices, 1)
	assert.Equal(t, "Q-1", s.st.Invoices[0].QuoteID)
}

func TestApply_UpdateQuotePropagates(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})

	amount := 350.0
	notes := "side gate code 1234"
	res := s.do(UpdateQuote{ID: "Q-1", Services: []string{"Driveway Cleaning", "Patio"}, Amount: &amount, Notes: &notes})
	assert.Equal(t, effects(
		domain.Quotes, bus.OriginCommand,
		domain.Jobs, bus.OriginCascade,
		domain.Invoices, bus.OriginCascade,
	), res.Effects)

	job := s.st.Jobs[0]
	assert.Equal(t, "Driveway Cleaning, Patio", job.Service)
	assert.Equal(t, notes, job.Notes)
	assert.Equal(t, domain.JobScheduled, job.Status, "status is not touched")

	inv := s.st.Invoices[0]
	assert.Equal(t, "Driveway Cleaning, Patio", inv.Service)
	assert.Equal(t, 350.0, inv.Amount)
	assert.Equal(t, domain.InvoicePending, inv.Status)
}

func TestApply_UpdateQuoteFindsInvoiceByOldName(t *testing.T) {
	s := newSession(t, State{
		Quotes:   []domain.Quote{{ID: "Q-1", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Amount: 90, Status: domain.QuoteApproved}},
		Invoices: []domain.Invoice{{ID: "INV-7", CustomerName: "Jane Doe", Service: "Gutters", Amount: 90, Status: domain.InvoicePending}},
	})

	s.do(UpdateQuote{ID: "Q-1", Services: []string{"Gutters", "Downspouts"}})
	assert.Equal(t, "Gutters, Downspouts", s.st.Invoices[0].Service)
}

func TestApply_UpdateQuoteNoChange(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())

	res := s.do(UpdateQuote{ID: "Q-1", Services: []string{"Driveway Cleaning"}})
	assert.Empty(t, res.Effects)
}

func TestApply_DeleteQuoteCascade(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})

	res := s.do(DeleteQuote{ID: "Q-1"})
	assert.Equal(t, effects(
		domain.Quotes, bus.OriginCommand,
		domain.DeletedJobRefs, bus.OriginCascade,
		domain.Jobs, bus.OriginCascade,
		domain.Invoices, bus.OriginCascade,
	), res.Effects)
	assert.Empty(t, s.st.Quotes)
	assert.Empty(t, s.st.Jobs)
	assert.Empty(t, s.st.Invoices)
	assert.Equal(t, []string{"Q-1"}, s.st.DeletedJobRefs)

	s.do(Resync{})
	assert.Empty(t, s.st.Jobs)
}

func TestApply_DeleteQuoteInvoiceByName(t *testing.T) {
	s := newSession(t, State{
		Quotes: []domain.Quote{{ID: "Q-1", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Status: domain.QuotePending}},
		Invoices: []domain.Invoice{
			{ID: "INV-1", CustomerName: "Jane Doe", Service: "Gutters"},
			{ID: "INV-2", CustomerName: "John Roe", Service: "Gutters"},
		},
	})

	s.do(DeleteQuote{ID: "Q-1"})
	require.Len(t, s.st.Invoices, 1)
	assert.Equal(t, "INV-2", s.st.Invoices[0].ID)
}

func TestApply_DeleteQuoteNotifiesAssignedCrew(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	crew := "Kevin"
	s.do(UpdateJob{ID: "J-1", AssignedCrew: &crew})

	res := s.do(DeleteQuote{ID: "Q-1"})
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, domain.AssignmentRemoved, res.Notifications[0].Type)
	assert.Equal(t, "Kevin", res.Notifications[0].CrewMemberName)
	assert.Equal(t, domain.CrewNotifications, res.Effects[len(res.Effects)-1].Collection)
}

func TestApply_InvoicePaidByNameJoin(t *testing.T) {
	s := newSession(t, State{
		Quotes: []domain.Quote{{ID: "Q-1", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Amount: 90, Status: domain.QuoteApproved}},
		Jobs:   []domain.Job{{ID: "J-1", QuoteID: "Q-1", CustomerName: "Jane Doe", Service: "Gutters", Status: domain.JobScheduled, AssignedCrew: domain.Unassigned}},
		Invoices: []domain.Invoice{
			{ID: "INV-1", CustomerName: "jane  doe", Service: "Gutters", Amount: 90, Status: domain.InvoicePending},
		},
	})

	res := s.do(SetInvoiceStatus{ID: "INV-1", Status: domain.InvoicePaid})
	assert.Equal(t, effects(
		domain.Invoices, bus.OriginCommand,
		domain.Quotes, bus.OriginCascade,
		domain.Jobs, bus.OriginCascade,
	), res.Effects)
	assert.Equal(t, domain.QuoteInvoiced, s.st.Quotes[0].Status)
	assert.Equal(t, domain.JobCompleted, s.st.Jobs[0].Status)
	assert.Equal(t, "Q-1", s.st.Invoices[0].QuoteID, "the name join is upgraded to an id link")
	assert.Equal(t, "2026-02-01", s.st.Invoices[0].PaidDate)
	assert.Len(t, s.st.Invoices, 1)
}

func TestApply_InvoicePaidKeepsOneInvoicePerQuote(t *testing.T) {
	s := newSession(t, State{})
	s.do(CreateQuote{domain.Quote{ID: "Q-1", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Amount: 90}})
	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})
	require.Len(t, s.st.Invoices, 1)
	first := s.st.Invoices[0].ID
	s.do(CreateInvoice{domain.Invoice{ID: "INV-X", CustomerName: "Jane Doe", Service: "Gutters", Amount: 90, Status: domain.InvoicePending}})

	res := s.do(SetInvoiceStatus{ID: "INV-X", Status: domain.InvoicePaid})
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagJoinMiss, res.Diagnostics[0].Kind)
	assert.Equal(t, effects(domain.Invoices, bus.OriginCommand), res.Effects)

	linked := 0
	for _, inv := range s.st.Invoices {
		if inv.QuoteID == "Q-1" {
			linked++
			assert.Equal(t, first, inv.ID)
			assert.Equal(t, domain.InvoicePending, inv.Status)
		}
	}
	assert.Equal(t, 1, linked)
	assert.Equal(t, domain.QuoteApproved, s.st.Quotes[0].Status)
}

func TestApply_InvoicePaidAmbiguous(t *testing.T) {
	s := newSession(t, State{
		Quotes: []domain.Quote{
			{ID: "Q-1", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Status: domain.QuotePending},
			{ID: "Q-2", CustomerName: "Jane Doe", Services: []string{"Gutters"}, Status: domain.QuotePending},
		},
		Invoices: []domain.Invoice{{ID: "INV-1", CustomerName: "Jane Doe", Service: "Gutters", Status: domain.InvoicePending}},
	})

	res := s.do(SetInvoiceStatus{ID: "INV-1", Status: domain.InvoicePaid})
	assert.Equal(t, domain.QuoteInvoiced, s.st.Quotes[0].Status)
	assert.Equal(t, domain.QuotePending, s.st.Quotes[1].Status, "only the first match is used")
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, DiagAmbiguousJoin, res.Diagnostics[0].Kind)
}

func TestApply_InvoicePaidWithoutQuote(t *testing.T) {
	s := newSession(t, State{
		Invoices: []domain.Invoice{{ID: "INV-1", CustomerName: "Jane Doe", Service: "Gutters", Status: domain.InvoicePending}},
	})

	res := s.do(SetInvoiceStatus{ID: "INV-1", Status: domain.InvoicePaid})
	assert.Equal(t, effects(domain.Invoices, bus.OriginCommand), res.Effects)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagJoinMiss, res.Diagnostics[0].Kind)
}

func TestApply_InvoiceStatusClearsPaidDate(t *testing.T) {
	s := newSession(t, State{
		Invoices: []domain.Invoice{{ID: "INV-1", CustomerName: "Jane Doe", Status: domain.InvoicePaid, PaidDate: "2026-01-20"}},
	})

	s.do(SetInvoiceStatus{ID: "INV-1", Status: domain.InvoiceOverdue})
	assert.Equal(t, domain.InvoiceOverdue, s.st.Invoices[0].Status)
	assert.Empty(t, s.st.Invoices[0].PaidDate)
}

func TestApply_RecordInvoiceSync(t *testing.T) {
	s := newSession(t, State{
		Invoices: []domain.Invoice{{ID: "INV-1", CustomerName: "Jane Doe", Status: domain.InvoicePending}},
	})

	s.do(RecordInvoiceSync{ID: "INV-1", QuickbooksID: "QB-INV-1-1"})
	assert.True(t, s.st.Invoices[0].QuickbooksSynced)
	assert.Equal(t, "QB-INV-1-1", s.st.Invoices[0].QuickbooksID)

	res := s.do(RecordInvoiceSync{ID: "INV-1", QuickbooksID: "QB-INV-1-1"})
	assert.Empty(t, res.Effects)

	err := s.fail(RecordInvoiceSync{ID: "INV-1"})
	assert.True(t, IsInvalidCommand(err))
}

func kevinAppointment() CreateAppointment {
	return CreateAppointment{domain.Appointment{
		CustomerName:     "Jane Doe",
		Services:         []string{"Window Cleaning"},
		Date:             "2026-02-10",
		Time:             "9:00 AM",
		AssignedEmployee: "Kevin",
	}}
}

func TestApply_ReassignmentNotification(t *testing.T) {
	s := newSession(t, State{})
	res := s.do(kevinAppointment())
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, domain.NewAssignment, res.Notifications[0].Type)
	assert.Equal(t, "Kevin", res.Notifications[0].CrewMemberName)

	ryan := "Ryan"
	res = s.do(UpdateAppointment{ID: "APT-1", AssignedEmployee: &ryan})
	require.Len(t, res.Notifications, 2)
	assert.Equal(t, "Kevin", res.Notifications[0].CrewMemberName)
	assert.Equal(t, domain.AssignmentRemoved, res.Notifications[0].Type)
	assert.False(t, res.Notifications[0].Read)
	assert.Equal(t, "Assignment removed: Window Cleaning for Jane Doe on 2026-02-10", res.Notifications[0].Message)
	assert.Equal(t, "Ryan", res.Notifications[1].CrewMemberName)
	assert.Equal(t, domain.NewAssignment, res.Notifications[1].Type)
	assert.False(t, res.Notifications[1].Read)

	assert.Equal(t, effects(
		domain.Appointments, bus.OriginCommand,
		domain.CrewNotifications, bus.OriginCascade,
	), res.Effects)
	require.Len(t, s.st.Notifications, 3)
	assert.Equal(t, "Ryan", s.st.Notifications[0].CrewMemberName, "feed is most recent first")
}

func TestApply_ScheduleChangeNotifications(t *testing.T) {
	tests := []struct {
		name     string
		date     *string
		time     *string
		wantType domain.NotificationType
	}{
		{name: "time only", time: ptr("11:00 AM"), wantType: domain.TimeChanged},
		{name: "date only", date: ptr("2026-02-11"), wantType: domain.DateChanged},
		{name: "date and time", date: ptr("2026-02-11"), time: ptr("11:00 AM"), wantType: domain.ScheduleChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, State{})
			s.do(kevinAppointment())

			res := s.do(UpdateAppointment{ID: "APT-1", Date: tt.date, Time: tt.time})
			require.Len(t, res.Notifications, 1)
			n := res.Notifications[0]
			assert.Equal(t, tt.wantType, n.Type)
			assert.Equal(t, "Kevin", n.CrewMemberName)
			assert.Equal(t, "2026-02-10", n.Details.OldDate)
			assert.Equal(t, "9:00 AM", n.Details.OldTime)
		})
	}
}

func TestApply_JobRescheduleNotification(t *testing.T) {
	s := newSession(t, State{})
	res := s.do(CreateJob{domain.Job{CustomerName: "Jane Doe", Service: "Gutters", ScheduledDate: "2026-02-10", AssignedCrew: "Kevin"}})
	require.Len(t, res.Notifications, 1)

	res = s.do(UpdateJob{ID: "J-1", ScheduledDate: ptr("2026-02-12")})
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, domain.DateChanged, res.Notifications[0].Type)
	assert.Equal(t, "Date changed for Jane Doe: from 2026-02-10 to 2026-02-12", res.Notifications[0].Message)

	res = s.do(UpdateJob{ID: "J-1", Notes: ptr("bring ladder")})
	assert.Empty(t, res.Notifications, "non-schedule edits are silent")
}

func TestApply_CancelNotifiesAssignee(t *testing.T) {
	s := newSession(t, State{})
	s.do(kevinAppointment())

	res := s.do(SetAppointmentStatus{ID: "APT-1", Status: domain.AppointmentCancelled})
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, domain.AssignmentRemoved, res.Notifications[0].Type)
}

func TestApply_DeleteAppointmentCascade(t *testing.T) {
	s := newSession(t, State{
		Appointments: []domain.Appointment{{ID: "APT-1", CustomerName: "Jane Doe", Date: "2026-02-10", Status: domain.AppointmentScheduled}},
		Jobs: []domain.Job{
			{ID: "J-1", CustomerName: "Jane Doe", ScheduledDate: "2026-02-10", Status: domain.JobScheduled, AssignedCrew: "Kevin"},
			{ID: "J-2", CustomerName: "Jane Doe", ScheduledDate: "2026-02-10", Status: domain.JobCompleted, AssignedCrew: domain.Unassigned},
			{ID: "J-3", CustomerName: "Jane Doe", ScheduledDate: "2026-02-11", Status: domain.JobScheduled, AssignedCrew: domain.Unassigned},
		},
		Quotes: []domain.Quote{{ID: "Q-1", CustomerName: "Jane Doe", Date: "2026-02-10", Time: "9:00 AM", AssignedCrew: "Kevin"}},
		Invoices: []domain.Invoice{
			{ID: "INV-1", CustomerName: "Jane Doe", Status: domain.InvoiceOverdue},
			{ID: "INV-2", CustomerName: "Jane Doe", Status: domain.InvoicePaid, PaidDate: "2026-01-02"},
		},
	})

	res := s.do(DeleteAppointment{ID: "APT-1"})
	assert.Equal(t, effects(
		domain.Appointments, bus.OriginCommand,
		domain.Jobs, bus.OriginCascade,
		domain.Quotes, bus.OriginCascade,
		domain.Invoices, bus.OriginCascade,
		domain.CrewNotifications, bus.OriginCascade,
	), res.Effects)
	assert.Empty(t, s.st.Appointments)
	assert.Equal(t, domain.JobCancelled, s.st.Jobs[0].Status)
	assert.Equal(t, domain.JobCompleted, s.st.Jobs[1].Status, "completed work stays completed")
	assert.Equal(t, domain.JobScheduled, s.st.Jobs[2].Status, "other days untouched")
	assert.Empty(t, s.st.Quotes[0].Time)
	assert.Equal(t, domain.Unassigned, s.st.Quotes[0].AssignedCrew)
	assert.Equal(t, domain.InvoicePending, s.st.Invoices[0].Status)
	assert.Equal(t, domain.InvoicePaid, s.st.Invoices[1].Status, "paid invoices stay paid")

	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "Kevin", res.Notifications[0].CrewMemberName)
	assert.Equal(t, "J-1", res.Notifications[0].Details.RecordID)
}

func TestApply_DeleteAppointmentLeavesBareQuoteAlone(t *testing.T) {
	s := newSession(t, State{
		Appointments: []domain.Appointment{{ID: "APT-1", CustomerName: "Jane Doe", Date: "2026-02-10", Status: domain.AppointmentScheduled}},
		Quotes:       []domain.Quote{{ID: "Q-1", CustomerName: "Jane Doe", Date: "2026-02-10", AssignedCrew: ""}},
	})

	res := s.do(DeleteAppointment{ID: "APT-1"})
	assert.Equal(t, effects(domain.Appointments, bus.OriginCommand), res.Effects)
	assert.Equal(t, "", s.st.Quotes[0].AssignedCrew)
}

func TestApply_JobCommands(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())

	err := s.fail(CreateJob{domain.Job{CustomerName: "Jane Doe", QuoteID: "Q-1"}})
	assert.True(t, IsDuplicate(err), "one job per quote")

	s.do(AddJobPhoto{JobID: "J-1", URL: "https://example.test/a.jpg", Caption: "before"})
	require.Len(t, s.st.Jobs[0].Photos, 1)
	assert.Equal(t, "photo-1", s.st.Jobs[0].Photos[0].ID)
	assert.Equal(t, "2026-02-01T10:00:00Z", s.st.Jobs[0].Photos[0].UploadedAt)

	err = s.fail(RemoveJobPhoto{JobID: "J-1", PhotoID: "photo-9"})
	assert.True(t, IsNotFound(err))
	s.do(RemoveJobPhoto{JobID: "J-1", PhotoID: "photo-1"})
	assert.Empty(t, s.st.Jobs[0].Photos)

	s.do(SetJobStatus{ID: "J-1", Status: domain.JobCompleted})
	assert.Equal(t, "2026-02-01", s.st.Jobs[0].CompletedDate)

	res := s.do(DeleteJob{ID: "J-1"})
	assert.Equal(t, effects(
		domain.DeletedJobRefs, bus.OriginCascade,
		domain.Jobs, bus.OriginCommand,
	), res.Effects)
	assert.Equal(t, []string{"Q-1"}, s.st.DeletedJobRefs)

	s.do(Resync{})
	assert.Empty(t, s.st.Jobs)
}

func TestApply_ArchiveRestoreRoundTrip(t *testing.T) {
	c1 := domain.Customer{ID: "CUST-1", Name: "Jane Doe", Email: "jane@example.test", Phone: "555-0100", Address: "1 Elm St", Status: domain.CustomerActive}
	s := newSession(t, State{Customers: []domain.Customer{c1}})

	res := s.do(ArchiveCustomer{ID: "CUST-1"})
	assert.Equal(t, effects(
		domain.ArchivedCustomers, bus.OriginCommand,
		domain.Customers, bus.OriginCommand,
	), res.Effects)
	assert.Empty(t, s.st.Customers)
	require.Len(t, s.st.ArchivedCustomers, 1)
	assert.Equal(t, "2026-02-01T10:00:00Z", s.st.ArchivedCustomers[0].ArchivedDate)

	res = s.do(RestoreCustomer{ID: "CUST-1"})
	assert.Equal(t, effects(
		domain.Customers, bus.OriginCommand,
		domain.ArchivedCustomers, bus.OriginCommand,
	), res.Effects)
	assert.Equal(t, []domain.Customer{c1}, s.st.Customers)
	assert.Empty(t, s.st.ArchivedCustomers)

	s.do(ArchiveCustomer{ID: "CUST-1"})
	s.do(PurgeCustomer{ID: "CUST-1"})
	assert.Empty(t, s.st.Customers)
	assert.Empty(t, s.st.ArchivedCustomers)

	err := s.fail(RestoreCustomer{ID: "CUST-1"})
	assert.True(t, IsNotFound(err))
}

func TestApply_CrewMemberArchive(t *testing.T) {
	s := newSession(t, State{})
	s.do(CreateCrewMember{domain.CrewMember{Name: "Kevin", Role: "Technician"}})
	require.Len(t, s.st.CrewMembers, 1)
	assert.Equal(t, "CREW-1", s.st.CrewMembers[0].ID)

	s.do(ArchiveCrewMember{ID: "CREW-1"})
	assert.Empty(t, s.st.CrewMembers)
	s.do(RestoreCrewMember{ID: "CREW-1"})
	assert.Equal(t, "Kevin", s.st.CrewMembers[0].Name)

	err := s.fail(CreateCrewMember{domain.CrewMember{ID: "CREW-1", Name: "Kevin"}})
	assert.True(t, IsDuplicate(err))
}

func TestApply_NotificationReadIsMonotonic(t *testing.T) {
	s := newSession(t, State{})
	s.do(kevinAppointment())
	s.do(CreateNotification{CrewMemberName: "Kevin", Type: domain.TimeChanged, Message: "custom"})
	require.Len(t, s.st.Notifications, 2)
	assert.Equal(t, "custom", s.st.Notifications[0].Message)

	res := s.do(MarkNotificationRead{ID: "notif-1"})
	assert.Equal(t, effects(domain.CrewNotifications, bus.OriginCommand), res.Effects)

	res = s.do(MarkNotificationRead{ID: "notif-1"})
	assert.Empty(t, res.Effects, "already read")

	s.do(MarkAllNotificationsRead{CrewMemberName: "kevin"})
	for _, n := range s.st.Notifications {
		assert.True(t, n.Read)
	}

	// Nothing that follows flips read back.
	ryan := "Ryan"
	s.do(UpdateAppointment{ID: "APT-1", AssignedEmployee: &ryan})
	for _, n := range s.st.Notifications {
		if n.ID == "notif-1" || n.ID == "notif-2" {
			assert.True(t, n.Read)
		}
	}

	err := s.fail(MarkNotificationRead{ID: "notif-99"})
	assert.True(t, IsNotFound(err))
}

func TestApply_Resync(t *testing.T) {
	s := newSession(t, State{
		Quotes: []domain.Quote{
			{ID: "Q-a", CustomerName: "A", Services: []string{"x"}, Status: domain.QuotePending},
			{ID: "Q-b", CustomerName: "B", Services: []string{"x"}, Status: domain.QuoteApproved},
			{ID: "Q-c", CustomerName: "C", Services: []string{"x"}, Status: domain.QuoteInvoiced},
			{ID: "Q-d", CustomerName: "D", Services: []string{"x"}, Status: domain.QuoteRejected},
		},
		Technicians: []domain.CrewMember{{ID: "T-1", Name: "Kevin"}},
	})

	res := s.do(Resync{})
	for _, e := range res.Effects {
		assert.Equal(t, bus.OriginCascade, e.Origin, "resync writes are cascade writes")
	}
	assert.Equal(t, []domain.CrewMember{{ID: "T-1", Name: "Kevin"}}, s.st.CrewMembers)

	require.Len(t, s.st.Jobs, 3)
	byQuote := map[string]domain.Job{}
	for _, j := range s.st.Jobs {
		byQuote[j.QuoteID] = j
	}
	assert.Equal(t, domain.JobPending, byQuote["Q-a"].Status)
	assert.Equal(t, domain.JobScheduled, byQuote["Q-b"].Status)
	assert.Equal(t, domain.JobCompleted, byQuote["Q-c"].Status)
	assert.NotContains(t, byQuote, "Q-d")

	require.Len(t, s.st.Invoices, 2)
	assert.Equal(t, "Q-b", s.st.Invoices[0].QuoteID)
	assert.Equal(t, domain.InvoicePending, s.st.Invoices[0].Status)
	assert.Equal(t, "Q-c", s.st.Invoices[1].QuoteID)
	assert.Equal(t, domain.InvoicePaid, s.st.Invoices[1].Status)

	res = s.do(Resync{})
	assert.Empty(t, res.Effects, "a converged state needs no writes")
}

func TestApply_ResyncRepairsInvoicedStatus(t *testing.T) {
	s := newSession(t, State{
		Quotes:   []domain.Quote{{ID: "Q-1", CustomerName: "A", Services: []string{"x"}, Status: domain.QuoteInvoiced}},
		Jobs:     []domain.Job{{ID: "J-1", QuoteID: "Q-1", CustomerName: "A", Status: domain.JobScheduled}},
		Invoices: []domain.Invoice{{ID: "INV-1", QuoteID: "Q-1", CustomerName: "A", Status: domain.InvoicePending}},
	})

	s.do(Resync{})
	assert.Equal(t, domain.JobCompleted, s.st.Jobs[0].Status)
	assert.Equal(t, domain.InvoicePaid, s.st.Invoices[0].Status)
}

func TestApply_ClearAllData(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())

	res := s.do(ClearAllData{})
	assert.Len(t, res.Effects, len(domain.AllCollections))
	for _, e := range res.Effects {
		assert.Equal(t, bus.OriginCommand, e.Origin)
	}
	assert.Empty(t, s.st.Quotes)
	assert.Empty(t, s.st.Jobs)
}

func TestApply_YearlyReminders(t *testing.T) {
	s := newSession(t, State{
		Jobs: []domain.Job{{ID: "J-1", CustomerName: "A", Status: domain.JobCompleted, CompletedDate: "2025-02-01"}},
	})

	s.do(MarkYearlyReminderSent{JobID: "J-1"})
	assert.True(t, s.st.Jobs[0].YearlyReminderSent)

	s.do(DismissYearlyReminder{JobID: "J-1"})
	res := s.do(DismissYearlyReminder{JobID: "J-1"})
	assert.Empty(t, res.Effects)
	assert.Equal(t, []string{"J-1"}, s.st.DismissedReminders)
}

func TestApply_Errors(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())

	tests := []struct {
		name  string
		cmd   Command
		check func(error) bool
	}{
		{"missing quote", SetQuoteStatus{ID: "Q-404", Status: domain.QuoteApproved}, IsNotFound},
		{"bad status", SetQuoteStatus{ID: "Q-1", Status: "maybe"}, IsInvalidCommand},
		{"missing id", DeleteQuote{}, IsInvalidCommand},
		{"duplicate quote", CreateQuote{domain.Quote{ID: "Q-1", CustomerName: "X"}}, IsDuplicate},
		{"no customer", CreateQuote{}, IsInvalidCommand},
		{"bad appointment date", CreateAppointment{domain.Appointment{CustomerName: "X", Date: "soon"}}, IsInvalidCommand},
		{"missing invoice", SetInvoiceStatus{ID: "INV-404", Status: domain.InvoicePaid}, IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(s.st, tt.cmd, s.env)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	s.do(SetQuoteStatus{ID: "Q-1", Status: domain.QuoteApproved})

	before := s.st.Clone()
	_, err := Apply(s.st, UpdateQuote{ID: "Q-1", Services: []string{"Other"}}, s.env)
	require.NoError(t, err)
	_, err = Apply(s.st, DeleteQuote{ID: "Q-1"}, s.env)
	require.NoError(t, err)
	assert.Equal(t, before, s.st)
}

func ptr[T any](v T) *T { return &v }

func TestApply_DeleteQuoteCompletedJobIsQuiet(t *testing.T) {
	s := newSession(t, State{})
	s.do(janeQuote())
	crew := "Kevin"
	s.do(UpdateJob{ID: "J-1", AssignedCrew: &crew})
	s.do(SetJobStatus{ID: "J-1", Status: domain.JobCompleted})

	res := s.do(DeleteQuote{ID: "Q-1"})
	assert.Empty(t, res.Notifications)
}
