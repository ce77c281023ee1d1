package engine

import (
	"strings"

	"github.com/roach88/fieldsync/internal/domain"
)

// slot is the crew-visible part of an appointment or job.
type slot struct {
	crew string
	date string
	time string
}

func appointmentSlot(a domain.Appointment) slot {
	return slot{crew: a.AssignedEmployee, date: a.Date, time: a.Time}
}

func jobSlot(j domain.Job) slot {
	return slot{crew: j.AssignedCrew, date: j.ScheduledDate, time: j.ScheduledTime}
}

func appointmentDetails(a domain.Appointment) domain.NotificationDetails {
	return domain.NotificationDetails{
		RecordID:     a.ID,
		RecordType:   "appointment",
		CustomerName: a.CustomerName,
		Service:      domain.ServiceString(a.Services),
		Address:      a.Address,
		Date:         domain.Day(a.Date),
		Time:         a.Time,
	}
}

func jobDetails(j domain.Job) domain.NotificationDetails {
	return domain.NotificationDetails{
		RecordID:     j.ID,
		RecordType:   "job",
		CustomerName: j.CustomerName,
		Service:      j.Service,
		Address:      j.Address,
		Date:         domain.Day(j.ScheduledDate),
		Time:         j.ScheduledTime,
	}
}

func sameCrew(a, b string) bool {
	return domain.NormalizeName(domain.CrewOrUnassigned(a)) == domain.NormalizeName(domain.CrewOrUnassigned(b))
}

// assigned notifies the crew member of a newly created record.
func (c *cascade) assigned(s slot, d domain.NotificationDetails) {
	if domain.IsAssigned(s.crew) {
		c.notify(domain.CrewOrUnassigned(s.crew), domain.NewAssignment, d)
	}
}

// unassigned notifies the crew member of a deleted or cancelled record.
func (c *cascade) unassigned(s slot, d domain.NotificationDetails) {
	if domain.IsAssigned(s.crew) {
		d.Date = domain.Day(s.date)
		d.Time = s.time
		c.notify(domain.CrewOrUnassigned(s.crew), domain.AssignmentRemoved, d)
	}
}

// rescheduled compares the slot before and after an edit. A change of
// assignee tells the old crew member the work is gone and the new one it
// is theirs. With the same assignee, date and time changes each have their
// own type, and both together are a schedule change.
func (c *cascade) rescheduled(before, after slot, d domain.NotificationDetails) {
	if !sameCrew(before.crew, after.crew) {
		c.unassigned(before, d)
		c.assigned(after, d)
		return
	}
	if !domain.IsAssigned(after.crew) {
		return
	}

	dateChanged := domain.Day(before.date) != domain.Day(after.date)
	timeChanged := strings.TrimSpace(before.time) != strings.TrimSpace(after.time)
	d.OldDate = domain.Day(before.date)
	d.OldTime = before.time

	member := domain.CrewOrUnassigned(after.crew)
	switch {
	case dateChanged && timeChanged:
		c.notify(member, domain.ScheduleChanged, d)
	case dateChanged:
		c.notify(member, domain.DateChanged, d)
	case timeChanged:
		c.notify(member, domain.TimeChanged, d)
	}
}
