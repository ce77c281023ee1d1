// Package crew implements the crew-facing side of fieldsync: the crew
// notification feed and the crew member's weekly schedule.
//
// Notifications are kept most-recent-first. Nothing here deletes a
// notification; items leave the feed only by being marked read, and read
// never goes back to false.
package crew

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/fieldsync/internal/domain"
)

// NewNotification builds an unread notification for member.
func NewNotification(ids domain.IDGenerator, now time.Time, member string, typ domain.NotificationType, details domain.NotificationDetails) domain.CrewNotification {
	return domain.CrewNotification{
		ID:             ids.NewID(domain.PrefixNotification),
		CrewMemberName: member,
		Type:           typ,
		Message:        Message(typ, details),
		Details:        details,
		Timestamp:      domain.Timestamp(now),
		Read:           false,
	}
}

// Message renders the one-line text shown to the crew member.
func Message(typ domain.NotificationType, d domain.NotificationDetails) string {
	subject := d.CustomerName
	if d.Service != "" {
		subject = d.Service + " for " + d.CustomerName
	}

	switch typ {
	case domain.NewAssignment:
		return "New assignment: " + subject + on(d.Date, d.Time)
	case domain.AssignmentRemoved:
		return "Assignment removed: " + subject + on(d.Date, "")
	case domain.DateChanged:
		return fmt.Sprintf("Date changed for %s: from %s to %s", d.CustomerName, d.OldDate, d.Date)
	case domain.TimeChanged:
		return fmt.Sprintf("Time changed for %s%s: from %s to %s", d.CustomerName, on(d.Date, ""), d.OldTime, d.Time)
	case domain.ScheduleChanged:
		return fmt.Sprintf("Schedule changed for %s: now%s", d.CustomerName, on(d.Date, d.Time))
	default:
		return strings.TrimSpace(string(typ) + " " + subject)
	}
}

func on(date, clock string) string {
	var b strings.Builder
	if date != "" {
		b.WriteString(" on " + date)
	}
	if clock != "" {
		b.WriteString(" at " + clock)
	}
	return b.String()
}

// Prepend returns a new list with n at the front.
func Prepend(list []domain.CrewNotification, n domain.CrewNotification) []domain.CrewNotification {
	out := make([]domain.CrewNotification, 0, len(list)+1)
	out = append(out, n)
	return append(out, list...)
}

// MarkRead sets read on the notification with the given id. It reports
// whether the id exists and whether anything changed.
func MarkRead(list []domain.CrewNotification, id string) (out []domain.CrewNotification, found, changed bool) {
	out = make([]domain.CrewNotification, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		found = true
		if !out[i].Read {
			out[i].Read = true
			changed = true
		}
	}
	return out, found, changed
}

// MarkAllRead sets read on every unread notification for member and returns
// how many changed.
func MarkAllRead(list []domain.CrewNotification, member string) ([]domain.CrewNotification, int) {
	out := make([]domain.CrewNotification, len(list))
	copy(out, list)
	n := 0
	for i := range out {
		if !out[i].Read && domain.SameName(out[i].CrewMemberName, member) {
			out[i].Read = true
			n++
		}
	}
	return out, n
}

// Unread returns member's unread notifications, most recent first.
func Unread(list []domain.CrewNotification, member string) []domain.CrewNotification {
	var out []domain.CrewNotification
	for _, n := range list {
		if !n.Read && domain.SameName(n.CrewMemberName, member) {
			out = append(out, n)
		}
	}
	return out
}
