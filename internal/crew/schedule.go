package crew

import (
	"sort"
	"strings"
	"time"

	"github.com/roach88/fieldsync/internal/domain"
)

// Entry is one item on a crew member's schedule.
type Entry struct {
	Kind         string `json:"kind"` // "job" or "appointment"
	ID           string `json:"id"`
	CustomerName string `json:"customerName"`
	Service      string `json:"service"`
	Address      string `json:"address"`
	Date         string `json:"date"`
	Time         string `json:"time,omitempty"`
	Status       string `json:"status"`
}

// ScheduleDay groups the entries of one calendar day.
type ScheduleDay struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// WeekSchedule returns seven days starting at weekStart's calendar date with
// the member's open jobs (not completed or cancelled) and scheduled
// appointments. Entries in a day are ordered by time of day; entries without
// a readable time come last.
func WeekSchedule(member string, weekStart time.Time, jobs []domain.Job, appointments []domain.Appointment) []ScheduleDay {
	days := make([]ScheduleDay, 7)
	index := make(map[string]int, 7)
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)
	for i := range days {
		d := domain.FormatDay(start.AddDate(0, 0, i))
		days[i] = ScheduleDay{Date: d, Entries: []Entry{}}
		index[d] = i
	}

	add := func(e Entry) {
		if i, ok := index[e.Date]; ok {
			days[i].Entries = append(days[i].Entries, e)
		}
	}

	for _, j := range jobs {
		if !domain.SameName(j.AssignedCrew, member) {
			continue
		}
		if j.Status == domain.JobCompleted || j.Status == domain.JobCancelled {
			continue
		}
		add(Entry{
			Kind:         "job",
			ID:           j.ID,
			CustomerName: j.CustomerName,
			Service:      j.Service,
			Address:      j.Address,
			Date:         domain.Day(j.ScheduledDate),
			Time:         j.ScheduledTime,
			Status:       string(j.Status),
		})
	}

	for _, a := range appointments {
		if !domain.SameName(a.AssignedEmployee, member) || a.Status != domain.AppointmentScheduled {
			continue
		}
		add(Entry{
			Kind:         "appointment",
			ID:           a.ID,
			CustomerName: a.CustomerName,
			Service:      domain.ServiceString(a.Services),
			Address:      a.Address,
			Date:         domain.Day(a.Date),
			Time:         a.Time,
			Status:       string(a.Status),
		})
	}

	for i := range days {
		entries := days[i].Entries
		sort.SliceStable(entries, func(a, b int) bool {
			return minuteOfDay(entries[a].Time) < minuteOfDay(entries[b].Time)
		})
	}
	return days
}

// minuteOfDay parses "9:00 AM" or "14:30" style times. Unreadable times sort last.
func minuteOfDay(s string) int {
	s = strings.TrimSpace(strings.ToUpper(s))
	for _, layout := range []string{"3:04 PM", "3:04PM", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute()
		}
	}
	return 24 * 60
}
