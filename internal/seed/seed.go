// Package seed bulk-loads collections from a CUE or JSON document checked
// against the embedded #Seed schema.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/store"
)

//go:embed schema.cue
var schemaSource []byte

// Seed is a validated seed document.
type Seed struct {
	// State holds the decoded records.
	State engine.State
	// Collections lists the collections the document gives, in
	// canonical order. Collections not listed are left untouched.
	Collections []domain.Collection
}

// Load reads and validates the seed document at path.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data, a CUE or JSON document, and decodes it. filename
// is used in error positions.
func Parse(filename string, data []byte) (*Seed, error) {
	cctx := cuecontext.New()

	schema := cctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile seed schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Seed"))

	doc := cctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	v := def.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filename, err)
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", filename, err)
	}

	s := &Seed{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s.State); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}

	for _, c := range domain.AllCollections {
		if v.LookupPath(cue.MakePath(cue.Str(string(c)))).Exists() {
			s.Collections = append(s.Collections, c)
		}
	}
	return s, nil
}

// Apply writes every collection the seed gives to rs. The caller runs a
// resync afterwards so derived records catch up.
func Apply(ctx context.Context, rs store.RawStore, s *Seed) ([]store.Stamp, error) {
	stamps := make([]store.Stamp, 0, len(s.Collections))
	for _, c := range s.Collections {
		data, err := s.State.Encode(c)
		if err != nil {
			return stamps, fmt.Errorf("seed %s: %w", c, err)
		}
		stamp, err := rs.WriteRaw(ctx, string(c), data)
		if err != nil {
			return stamps, fmt.Errorf("seed %s: %w", c, err)
		}
		stamps = append(stamps, stamp)
	}
	return stamps, nil
}
