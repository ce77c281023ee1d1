// Package reminder finds completed jobs whose one-year anniversary is near,
// so the customer can be offered the same service again.
package reminder

import (
	"sort"
	"time"

	"github.com/roach88/fieldsync/internal/domain"
)

// Window is how many days before or after the anniversary a job stays due.
const Window = 30

// Reminder is a due yearly reminder.
type Reminder struct {
	Job      domain.Job      `json:"job"`
	Customer domain.Customer `json:"customer"`
	// Anniversary is completedDate plus one year.
	Anniversary string `json:"anniversary"`
	// DaysUntil is negative once the anniversary has passed.
	DaysUntil int `json:"daysUntil"`
}

// Due returns the reminders due at now ordered by DaysUntil, so the most
// overdue comes first.
//
// A job is due when it is completed with a completedDate, its
// yearlyReminderSent flag is unset, it is not in dismissed, its customer can
// be found by name, and today is within Window days of the anniversary.
// Distances are counted in calendar days.
func Due(jobs []domain.Job, customers []domain.Customer, dismissed []string, now time.Time) []Reminder {
	skip := make(map[string]bool, len(dismissed))
	for _, id := range dismissed {
		skip[id] = true
	}

	var out []Reminder
	for _, j := range jobs {
		if j.Status != domain.JobCompleted || j.CompletedDate == "" || j.YearlyReminderSent || skip[j.ID] {
			continue
		}
		completed, err := domain.ParseDay(j.CompletedDate)
		if err != nil {
			continue
		}
		anniversary := nextAnniversary(completed)
		days := domain.DaysBetween(now, anniversary)
		if days < -Window || days > Window {
			continue
		}
		customer, ok := findCustomer(customers, j.CustomerName)
		if !ok {
			continue
		}
		out = append(out, Reminder{
			Job:         j,
			Customer:    customer,
			Anniversary: domain.FormatDay(anniversary),
			DaysUntil:   days,
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].DaysUntil != out[b].DaysUntil {
			return out[a].DaysUntil < out[b].DaysUntil
		}
		return out[a].Job.ID < out[b].Job.ID
	})
	return out
}

func findCustomer(customers []domain.Customer, name string) (domain.Customer, bool) {
	for _, c := range customers {
		if domain.SameName(c.Name, name) {
			return c, true
		}
	}
	return domain.Customer{}, false
}

// nextAnniversary is the same day one year on, clamped to the end of the
// month so a Feb 29 completion falls on Feb 28.
func nextAnniversary(completed time.Time) time.Time {
	y, m, d := completed.Date()
	if last := time.Date(y+1, m+1, 0, 0, 0, 0, 0, time.UTC).Day(); d > last {
		d = last
	}
	return time.Date(y+1, m, d, 0, 0, 0, 0, time.UTC)
}
