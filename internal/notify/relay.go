package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/store"
)

// Sender delivers a text message. Implemented by *SMS.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// CrewRelay forwards crew notifications to the crew member's phone.
// Crew members are looked up by name in the crew-members collection.
type CrewRelay struct {
	sender Sender
	crew   *store.Repository[domain.CrewMember]
}

// NewCrewRelay creates a relay reading crew members from rs.
func NewCrewRelay(sender Sender, rs store.RawStore) *CrewRelay {
	return &CrewRelay{
		sender: sender,
		crew:   store.NewRepository[domain.CrewMember](rs, string(domain.CrewMembers)),
	}
}

// Deliver texts n's message to its crew member. Crew members without a
// phone number are skipped.
func (r *CrewRelay) Deliver(ctx context.Context, n domain.CrewNotification) error {
	members, err := r.crew.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("relay %s: %w", n.ID, err)
	}

	for _, m := range members {
		if !domain.SameName(m.Name, n.CrewMemberName) {
			continue
		}
		if m.Phone == "" {
			break
		}
		sid, err := r.sender.Send(ctx, m.Phone, n.Message)
		if err != nil {
			return fmt.Errorf("relay %s: %w", n.ID, err)
		}
		slog.Debug("crew notification relayed",
			"notification", n.ID,
			"crew_member", m.Name,
			"message_sid", sid,
		)
		return nil
	}

	slog.Debug("crew notification not relayed: no phone",
		"notification", n.ID,
		"crew_member", n.CrewMemberName,
	)
	return nil
}
