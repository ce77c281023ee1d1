// Package archive moves records between an active collection and its
// parallel archive collection.
//
// The functions are pure: they return new slices and never modify their
// inputs. Persisting the two collections is the caller's job, and the order
// matters. For Archive the archive collection must be written before the
// active one, and for Restore the active collection first, so an
// interruption between the two writes leaves the record in both collections
// rather than in neither.
package archive

import (
	"errors"
	"fmt"

	"github.com/roach88/fieldsync/internal/domain"
)

// ErrNotFound is returned when the record to move does not exist.
var ErrNotFound = errors.New("record not found")

// Archive removes the record with the given id from active and appends it to
// archived with archivedDate set to date. A stale archive entry with the
// same id (left by an interrupted earlier archive) is replaced.
func Archive[T domain.Record](active []T, archived []domain.Archived[T], id, date string) ([]T, []domain.Archived[T], error) {
	idx := domain.IndexOf(active, id)
	if idx < 0 {
		return nil, nil, fmt.Errorf("archive %s: %w", id, ErrNotFound)
	}
	rec := active[idx]

	nextArchived := without(archived, id)
	nextArchived = append(nextArchived, domain.Archived[T]{Record: rec, ArchivedDate: date})

	return without(active, id), nextArchived, nil
}

// Restore removes the record with the given id from archived and appends it,
// without its archivedDate, to active. A stale active copy is replaced.
func Restore[T domain.Record](active []T, archived []domain.Archived[T], id string) ([]T, []domain.Archived[T], error) {
	idx := domain.IndexOf(archived, id)
	if idx < 0 {
		return nil, nil, fmt.Errorf("restore %s: %w", id, ErrNotFound)
	}
	rec := archived[idx].Record

	nextActive := without(active, id)
	nextActive = append(nextActive, rec)

	return nextActive, without(archived, id), nil
}

// Purge permanently removes the record with the given id from archived.
// Records in other collections that refer to it are left as they are.
func Purge[T domain.Record](archived []domain.Archived[T], id string) ([]domain.Archived[T], error) {
	if domain.IndexOf(archived, id) < 0 {
		return nil, fmt.Errorf("purge %s: %w", id, ErrNotFound)
	}
	return without(archived, id), nil
}

func without[T domain.Record](records []T, id string) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.RecordID() != id {
			out = append(out, r)
		}
	}
	return out
}
