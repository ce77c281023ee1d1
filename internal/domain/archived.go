package domain

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Archived is a record moved to an archive collection. It serialises flat:
// every field of the record plus archivedDate.
type Archived[T Record] struct {
	Record       T
	ArchivedDate string
}

// RecordID returns the archived record's id.
func (a Archived[T]) RecordID() string {
	return a.Record.RecordID()
}

// MarshalJSON writes the record's fields with archivedDate added.
func (a Archived[T]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(a.Record)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("archived record is not an object: %w", err)
	}
	date, err := json.Marshal(a.ArchivedDate)
	if err != nil {
		return nil, err
	}
	fields["archivedDate"] = date
	return json.Marshal(fields)
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (a *Archived[T]) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid archived record")
	}
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	a.Record = rec
	a.ArchivedDate = gjson.GetBytes(data, "archivedDate").String()
	return nil
}
