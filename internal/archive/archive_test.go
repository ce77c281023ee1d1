package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/domain"
)

func customers() []domain.Customer {
	return []domain.Customer{
		{ID: "CUST-1", Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100", Address: "1 Main St", Status: domain.CustomerActive},
		{ID: "CUST-2", Name: "Sam Lee", Status: domain.CustomerActive},
	}
}

func TestArchive_MovesRecord(t *testing.T) {
	active := customers()

	nextActive, nextArchived, err := Archive(active, nil, "CUST-1", "2026-02-01T10:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, -1, domain.IndexOf(nextActive, "CUST-1"))
	require.Len(t, nextArchived, 1)
	assert.Equal(t, active[0], nextArchived[0].Record)
	assert.Equal(t, "2026-02-01T10:00:00Z", nextArchived[0].ArchivedDate)

	// Inputs are untouched.
	assert.Len(t, active, 2)
}

func TestArchive_NotFound(t *testing.T) {
	_, _, err := Archive(customers(), nil, "CUST-9", "2026-02-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_ReplacesStaleArchiveEntry(t *testing.T) {
	active := customers()
	stale := []domain.Archived[domain.Customer]{{Record: active[0], ArchivedDate: "2025-01-01"}}

	_, nextArchived, err := Archive(active, stale, "CUST-1", "2026-02-01")
	require.NoError(t, err)
	require.Len(t, nextArchived, 1)
	assert.Equal(t, "2026-02-01", nextArchived[0].ArchivedDate)
}

func TestRestore_RoundTrip(t *testing.T) {
	original := customers()

	active, archived, err := Archive(original, nil, "CUST-1", "2026-02-01")
	require.NoError(t, err)

	active, archived, err = Restore(active, archived, "CUST-1")
	require.NoError(t, err)

	assert.Empty(t, archived)
	idx := domain.IndexOf(active, "CUST-1")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, original[0], active[idx])
}

func TestRestore_ReplacesStaleActiveCopy(t *testing.T) {
	active := customers()
	archived := []domain.Archived[domain.Customer]{{Record: active[0], ArchivedDate: "2026-02-01"}}

	nextActive, nextArchived, err := Restore(active, archived, "CUST-1")
	require.NoError(t, err)
	assert.Len(t, nextActive, 2)
	assert.Empty(t, nextArchived)
}

func TestRestore_NotFound(t *testing.T) {
	_, _, err := Restore(customers(), nil, "CUST-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurge(t *testing.T) {
	crew := []domain.Archived[domain.CrewMember]{
		{Record: domain.CrewMember{ID: "CREW-1", Name: "Kevin"}, ArchivedDate: "2026-01-01"},
		{Record: domain.CrewMember{ID: "CREW-2", Name: "Ryan"}, ArchivedDate: "2026-01-02"},
	}

	next, err := Purge(crew, "CREW-1")
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "CREW-2", next[0].RecordID())

	_, err = Purge(next, "CREW-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
