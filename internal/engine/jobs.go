package engine

import (
	"slices"

	"github.com/roach88/fieldsync/internal/domain"
)

func (cmd CreateJob) apply(c *cascade) error {
	j := cmd.Job.Clone()
	if j.ID == "" {
		j.ID = c.newID(domain.PrefixJob)
	} else if domain.IndexOf(c.st.Jobs, j.ID) >= 0 {
		return c.duplicate(domain.Jobs, j.ID)
	}
	if j.CustomerName == "" {
		return c.invalid("customerName is required")
	}
	if j.QuoteID != "" {
		if l := JobForQuote(c.st.Jobs, j.QuoteID); l.Found() {
			return c.duplicate(domain.Jobs, c.st.Jobs[l.Index].ID)
		}
	}
	if j.Status == "" {
		j.Status = domain.JobPending
	}
	if !j.Status.Valid() {
		return c.invalid("invalid job status %q", j.Status)
	}
	if j.ScheduledDate == "" {
		j.ScheduledDate = c.today()
	}
	if j.Address == "" {
		j.Address = c.customerAddress(j.CustomerName)
	}
	if j.Photos == nil {
		j.Photos = []domain.Photo{}
	}
	if j.Status == domain.JobCompleted && j.CompletedDate == "" {
		j.CompletedDate = c.today()
	}
	j.AssignedCrew = domain.CrewOrUnassigned(j.AssignedCrew)

	c.st.Jobs = append(c.st.Jobs, j)
	c.target(domain.Jobs)
	if j.Status != domain.JobCancelled {
		c.assigned(jobSlot(j), jobDetails(j))
	}
	return nil
}

func (cmd UpdateJob) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Jobs, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Jobs, cmd.ID)
	}
	if cmd.CustomerName != nil && *cmd.CustomerName == "" {
		return c.invalid("customerName must not be empty")
	}

	j := &c.st.Jobs[idx]
	before := jobSlot(*j)
	if cmd.AssignedCrew != nil {
		crew := domain.CrewOrUnassigned(*cmd.AssignedCrew)
		cmd.AssignedCrew = &crew
	}
	changed := setString(&j.CustomerName, cmd.CustomerName)
	changed = setString(&j.Service, cmd.Service) || changed
	changed = setString(&j.Address, cmd.Address) || changed
	changed = setString(&j.ScheduledDate, cmd.ScheduledDate) || changed
	changed = setString(&j.ScheduledTime, cmd.ScheduledTime) || changed
	changed = setString(&j.AssignedCrew, cmd.AssignedCrew) || changed
	changed = setString(&j.Notes, cmd.Notes) || changed
	if !changed {
		return nil
	}
	c.target(domain.Jobs)

	if j.Status != domain.JobCancelled && j.Status != domain.JobCompleted {
		c.rescheduled(before, jobSlot(*j), jobDetails(*j))
	}
	return nil
}

func (cmd SetJobStatus) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	if !cmd.Status.Valid() {
		return c.invalid("invalid job status %q", cmd.Status)
	}
	idx := domain.IndexOf(c.st.Jobs, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Jobs, cmd.ID)
	}
	if c.setJobStatus(idx, cmd.Status) {
		c.target(domain.Jobs)
	}
	return nil
}

func (cmd AddJobPhoto) apply(c *cascade) error {
	if cmd.JobID == "" || cmd.URL == "" {
		return c.invalid("jobId and url are required")
	}
	idx := domain.IndexOf(c.st.Jobs, cmd.JobID)
	if idx < 0 {
		return c.notFound(domain.Jobs, cmd.JobID)
	}
	j := &c.st.Jobs[idx]
	j.Photos = append(j.Photos, domain.Photo{
		ID:         c.newID(domain.PrefixPhoto),
		URL:        cmd.URL,
		Caption:    cmd.Caption,
		UploadedAt: domain.Timestamp(c.env.Now),
	})
	c.target(domain.Jobs)
	return nil
}

func (cmd RemoveJobPhoto) apply(c *cascade) error {
	if cmd.JobID == "" || cmd.PhotoID == "" {
		return c.invalid("jobId and photoId are required")
	}
	idx := domain.IndexOf(c.st.Jobs, cmd.JobID)
	if idx < 0 {
		return c.notFound(domain.Jobs, cmd.JobID)
	}
	j := &c.st.Jobs[idx]
	p := slices.IndexFunc(j.Photos, func(p domain.Photo) bool { return p.ID == cmd.PhotoID })
	if p < 0 {
		return c.notFound(domain.Jobs, cmd.PhotoID)
	}
	j.Photos = slices.Delete(j.Photos, p, p+1)
	c.target(domain.Jobs)
	return nil
}

func (cmd DeleteJob) apply(c *cascade) error {
	if err := c.requireID(cmd.ID); err != nil {
		return err
	}
	idx := domain.IndexOf(c.st.Jobs, cmd.ID)
	if idx < 0 {
		return c.notFound(domain.Jobs, cmd.ID)
	}
	j := c.st.Jobs[idx]

	// The tombstone is persisted first so a resync running between the two
	// writes cannot bring the job back.
	if j.QuoteID != "" && !c.tombstoned(j.QuoteID) {
		c.st.DeletedJobRefs = append(c.st.DeletedJobRefs, j.QuoteID)
		c.dependent(domain.DeletedJobRefs)
	}
	c.st.Jobs = slices.Delete(c.st.Jobs, idx, idx+1)
	c.target(domain.Jobs)

	if j.Status != domain.JobCancelled && j.Status != domain.JobCompleted {
		c.unassigned(jobSlot(j), jobDetails(j))
	}
	return nil
}

// setJobStatus sets the status of the job at idx and reports whether it
// changed. Completion stamps completedDate; cancelling an assigned job
// tells its crew member.
func (c *cascade) setJobStatus(idx int, status domain.JobStatus) bool {
	j := &c.st.Jobs[idx]
	if j.Status == status {
		return false
	}
	prev := j.Status
	j.Status = status
	if status == domain.JobCompleted && j.CompletedDate == "" {
		j.CompletedDate = c.today()
	}
	if status == domain.JobCancelled && prev != domain.JobCompleted {
		c.unassigned(jobSlot(*j), jobDetails(*j))
	}
	return true
}
