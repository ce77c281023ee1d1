package engine

import (
	"errors"
	"slices"

	"github.com/roach88/fieldsync/internal/archive"
	"github.com/roach88/fieldsync/internal/domain"
)

func (cmd CreateCustomer) apply(c *cascade) error {
	cust := cmd.Customer
	if cust.ID == "" {
		cust.ID = c.newID(domain.PrefixCustomer)
	} else if domain.IndexOf(c.st.Customers, cust.ID) >= 0 || domain.IndexOf(c.st.ArchivedCustomers, cust.ID) >= 0 {
		return c.duplicate(domain.Customers, cust.ID)
	}
	if cust.Name == "" {
		return c.invalid("name is required")
	}
	if cust.Status == "" {
		cust.Status = domain.CustomerActive
	}
	if !cust.Status.Valid() {
		return c.invalid("invalid customer status %q", cust.Status)
	}
	c.st.Customers = append(c.st.Customers, cust)
	c.target(domain.Customers)
	return nil
}

// UpdateCustomer does not rewrite the name carried by other records; they
// keep the name they were created with.
func (cmd UpdateCustomer) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Customers, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Customers, cmd.ID)
	}
	if cmd.Name != nil && *cmd.Name == "" {
		return c.invalid("name must not be empty")
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return c.invalid("invalid customer status %q", *cmd.Status)
	}

	cust := &c.st.Customers[idx]
	changed := setString(&cust.Name, cmd.Name)
	changed = setString(&cust.Email, cmd.Email) || changed
	changed = setString(&cust.Phone, cmd.Phone) || changed
	changed = setString(&cust.Address, cmd.Address) || changed
	changed = setString(&cust.Notes, cmd.Notes) || changed
	if cmd.Status != nil && *cmd.Status != cust.Status {
		cust.Status = *cmd.Status
		changed = true
	}
	if changed {
		c.target(domain.Customers)
	}
	return nil
}

func (cmd DeleteCustomer) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Customers, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Customers, cmd.ID)
	}
	c.st.Customers = slices.Delete(c.st.Customers, idx, idx+1)
	c.target(domain.Customers)
	return nil
}

func (cmd ArchiveCustomer) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	active, archived, err := archive.Archive(c.st.Customers, c.st.ArchivedCustomers, cmd.ID, domain.Timestamp(c.env.Now))
	if err != nil {
		return c.archiveError(err, domain.Customers, cmd.ID)
	}
	c.st.Customers, c.st.ArchivedCustomers = active, archived
	c.target(domain.ArchivedCustomers)
	c.target(domain.Customers)
	return nil
}

func (cmd RestoreCustomer) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	active, archived, err := archive.Restore(c.st.Customers, c.st.ArchivedCustomers, cmd.ID)
	if err != nil {
		return c.archiveError(err, domain.ArchivedCustomers, cmd.ID)
	}
	c.st.Customers, c.st.ArchivedCustomers = active, archived
	c.target(domain.Customers)
	c.target(domain.ArchivedCustomers)
	return nil
}

func (cmd PurgeCustomer) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	archived, err := archive.Purge(c.st.ArchivedCustomers, cmd.ID)
	if err != nil {
		return c.archiveError(err, domain.ArchivedCustomers, cmd.ID)
	}
	c.st.ArchivedCustomers = archived
	c.target(domain.ArchivedCustomers)
	return nil
}

func (cmd CreateCrewMember) apply(c *cascade) error {
	m := cmd.CrewMember
	if m.ID == "" {
		m.ID = c.newID(domain.PrefixCrewMember)
	} else if domain.IndexOf(c.st.CrewMembers, m.ID) >= 0 || domain.IndexOf(c.st.ArchivedCrew, m.ID) >= 0 {
		return c.duplicate(domain.CrewMembers, m.ID)
	}
	if !domain.IsAssigned(m.Name) {
		return c.invalid("name is required")
	}
	c.st.CrewMembers = append(c.st.CrewMembers, m)
	c.target(domain.CrewMembers)
	return nil
}

// UpdateCrewMember leaves assignments made under the old name alone.
func (cmd UpdateCrewMember) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.CrewMembers, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.CrewMembers, cmd.ID)
	}
	if cmd.Name != nil && !domain.IsAssigned(*cmd.Name) {
		return c.invalid("name must not be empty")
	}
	m := &c.st.CrewMembers[idx]
	changed := setString(&m.Name, cmd.Name)
	changed = setString(&m.Phone, cmd.Phone) || changed
	changed = setString(&m.Email, cmd.Email) || changed
	changed = setString(&m.Role, cmd.Role) || changed
	if changed {
		c.target(domain.CrewMembers)
	}
	return nil
}

func (cmd DeleteCrewMember) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.CrewMembers, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.CrewMembers, cmd.ID)
	}
	c.st.CrewMembers = slices.Delete(c.st.CrewMembers, idx, idx+1)
	c.target(domain.CrewMembers)
	return nil
}

func (cmd ArchiveCrewMember) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	active, archived, err := archive.Archive(c.st.CrewMembers, c.st.ArchivedCrew, cmd.ID, domain.Timestamp(c.env.Now))
	if err != nil {
		return c.archiveError(err, domain.CrewMembers, cmd.ID)
	}
	c.st.CrewMembers, c.st.ArchivedCrew = active, archived
	c.target(domain.ArchivedCrewMembers)
	c.target(domain.CrewMembers)
	return nil
}

func (cmd RestoreCrewMember) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	active, archived, err := archive.Restore(c.st.CrewMembers, c.st.ArchivedCrew, cmd.ID)
	if err != nil {
		return c.archiveError(err, domain.ArchivedCrewMembers, cmd.ID)
	}
	c.st.CrewMembers, c.st.ArchivedCrew = active, archived
	c.target(domain.CrewMembers)
	c.target(domain.ArchivedCrewMembers)
	return nil
}

func (cmd PurgeCrewMember) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	archived, err := archive.Purge(c.st.ArchivedCrew, cmd.ID)
	if err != nil {
		return c.archiveError(err, domain.ArchivedCrewMembers, cmd.ID)
	}
	c.st.ArchivedCrew = archived
	c.target(domain.ArchivedCrewMembers)
	return nil
}

func (c *cascade) archiveError(err error, col domain.Collection, id string) error {
	if errors.Is(err, archive.ErrNotFound) {
		return c.notFound(col, id)
	}
	return err
}
