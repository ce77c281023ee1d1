package engine

import (
	"fmt"
	"time"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/crew"
	"github.com/roach88/fieldsync/internal/domain"
)

// InvoiceDueDays is how far after creation a cascade-created invoice falls due.
const InvoiceDueDays = 30

// Env injects the wall clock and identity source into Apply.
type Env struct {
	Now time.Time
	IDs domain.IDGenerator
}

// Effect names one collection a command changed.
type Effect struct {
	Collection domain.Collection `json:"collection"`
	Origin     bus.Origin        `json:"origin"`
}

// Diagnostic kinds.
const (
	DiagJoinMiss      = "join_miss"
	DiagAmbiguousJoin = "ambiguous_join"
	DiagTombstoned    = "tombstoned"
)

// Diagnostic records a best-effort decision taken by a cascade rule.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result is the outcome of Apply.
type Result struct {
	// State is the complete state after the command.
	State State

	// Effects lists each changed collection once, in the order it was
	// first touched. Persisting them in this order is part of the contract.
	Effects []Effect

	// Notifications are the crew notifications created, oldest first.
	Notifications []domain.CrewNotification

	// Diagnostics are the linker decisions worth surfacing.
	Diagnostics []Diagnostic
}

// Apply computes the effect of cmd on st. It performs no I/O and does not
// modify st.
func Apply(st State, cmd Command, env Env) (Result, error) {
	if cmd == nil {
		return Result{}, NewInvalidCommandError("", "nil command")
	}
	if env.Now.IsZero() {
		env.Now = time.Now()
	}
	if env.IDs == nil {
		env.IDs = domain.UUIDGenerator{}
	}

	next := st.Clone()
	c := &cascade{
		cmd:  cmd.CommandName(),
		env:  env,
		st:   &next,
		seen: make(map[domain.Collection]bool),
	}
	if err := cmd.apply(c); err != nil {
		return Result{}, err
	}
	c.flushNotifications()

	return Result{
		State:         next,
		Effects:       c.effects,
		Notifications: c.notes,
		Diagnostics:   c.diags,
	}, nil
}

// cascade accumulates the effects of one command.
type cascade struct {
	cmd     string
	env     Env
	st      *State
	effects []Effect
	seen    map[domain.Collection]bool
	notes   []domain.CrewNotification
	diags   []Diagnostic

	// notesAreTarget is set by commands that write notifications directly.
	notesAreTarget bool
}

func (c *cascade) touch(col domain.Collection, origin bus.Origin) {
	if c.seen[col] {
		return
	}
	c.seen[col] = true
	c.effects = append(c.effects, Effect{Collection: col, Origin: origin})
}

// target marks a collection the command changes directly.
func (c *cascade) target(col domain.Collection) { c.touch(col, bus.OriginCommand) }

// dependent marks a collection changed by a cascade rule.
func (c *cascade) dependent(col domain.Collection) { c.touch(col, bus.OriginCascade) }

func (c *cascade) notify(member string, typ domain.NotificationType, d domain.NotificationDetails) {
	c.notes = append(c.notes, crew.NewNotification(c.env.IDs, c.env.Now, member, typ, d))
}

// flushNotifications adds the notifications raised by the command to the
// feed after every record write, newest first.
func (c *cascade) flushNotifications() {
	if len(c.notes) == 0 {
		return
	}
	for _, n := range c.notes {
		c.st.Notifications = crew.Prepend(c.st.Notifications, n)
	}
	origin := bus.OriginCascade
	if c.notesAreTarget {
		origin = bus.OriginCommand
	}
	c.touch(domain.CrewNotifications, origin)
}

func (c *cascade) diag(kind, rule, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{Kind: kind, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

func (c *cascade) newID(prefix string) string { return c.env.IDs.NewID(prefix) }

func (c *cascade) today() string { return domain.FormatDay(c.env.Now) }

func (c *cascade) dueDate() string {
	return domain.FormatDay(c.env.Now.AddDate(0, 0, InvoiceDueDays))
}

func (c *cascade) tombstoned(quoteID string) bool {
	for _, ref := range c.st.DeletedJobRefs {
		if ref == quoteID {
			return true
		}
	}
	return false
}

func (c *cascade) notFound(col domain.Collection, id string) error {
	return NewNotFoundError(c.cmd, string(col), id)
}

func (c *cascade) invalid(format string, args ...any) error {
	return NewInvalidCommandError(c.cmd, fmt.Sprintf(format, args...))
}

func (c *cascade) duplicate(col domain.Collection, id string) error {
	return NewDuplicateError(c.cmd, string(col), id)
}

func (c *cascade) requireID(id string) error {
	if id == "" {
		return c.invalid("id is required")
	}
	return nil
}

// customerAddress returns the address of the customer named name, or "".
func (c *cascade) customerAddress(name string) string {
	for _, cust := range c.st.Customers {
		if domain.SameName(cust.Name, name) {
			return cust.Address
		}
	}
	return ""
}

func (c *cascade) customerID(name string) string {
	for _, cust := range c.st.Customers {
		if domain.SameName(cust.Name, name) {
			return cust.ID
		}
	}
	return ""
}

func setString(dst *string, v *string) bool {
	if v == nil || *v == *dst {
		return false
	}
	*dst = *v
	return true
}
