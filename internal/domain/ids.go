package domain

import (
	"github.com/google/uuid"
)

// ID prefixes for generated record identifiers.
const (
	PrefixCustomer     = "CUST"
	PrefixCrewMember   = "CREW"
	PrefixAppointment  = "APT"
	PrefixQuote        = "Q"
	PrefixJob          = "J"
	PrefixInvoice      = "INV"
	PrefixNotification = "notif"
	PrefixPhoto        = "photo"
)

// IDGenerator issues record identifiers. Identifiers are never reused.
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDGenerator issues "<prefix>-<uuidv7>" identifiers. UUIDv7 sorts by
// creation time, so listings ordered by id follow creation order.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// NewID returns a fresh identifier with the given prefix.
func (UUIDGenerator) NewID(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}
