// internal/registry/registry.go
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PageRecord is one entry of a collection's sources file.
type PageRecord struct {
	PathName        string `yaml:"pathName"`
	PageTitle       string `yaml:"pageTitle"`
	NamedIdentifier string `yaml:"namedIdentifier"`
}

// PathEntry is what the ByPathName index holds for a path name.
type PathEntry struct {
	PageTitle       string
	NamedIdentifier string
}

// IdentifierEntry is what the ByNamedIdentifier index holds for an identifier.
type IdentifierEntry struct {
	PathName  string
	PageTitle string
}

// Registry is the read-only set of page records of one collection together
// with its two lookup indices. The zero value is an empty registry.
type Registry struct {
	records      []PageRecord
	byPathName   map[string]PathEntry
	byIdentifier map[string]IdentifierEntry
	position     map[string]int
}

// sourcesFile mirrors the layout of sources.yaml.
type sourcesFile struct {
	Pages []PageRecord `yaml:"pages"`
}

// New builds a registry from an ordered list of records. Any empty field or
// any path name or identifier used twice rejects the whole list.
func New(records []PageRecord) (*Registry, error) {
	r := &Registry{
		records:      make([]PageRecord, 0, len(records)),
		byPathName:   make(map[string]PathEntry, len(records)),
		byIdentifier: make(map[string]IdentifierEntry, len(records)),
		position:     make(map[string]int, len(records)),
	}
	identifierAt := make(map[string]int, len(records))

	for i, rec := range records {
		if err := rec.validate(i); err != nil {
			return nil, err
		}
		if first, ok := r.position[rec.PathName]; ok {
			return nil, &ConfigError{Op: "load", Field: FieldPathName, Key: rec.PathName, Err: ErrDuplicate,
				Detail: fmt.Sprintf("records %d and %d", first, i)}
		}
		if first, ok := identifierAt[rec.NamedIdentifier]; ok {
			return nil, &ConfigError{Op: "load", Field: FieldNamedIdentifier, Key: rec.NamedIdentifier, Err: ErrDuplicate,
				Detail: fmt.Sprintf("records %d and %d", first, i)}
		}

		r.position[rec.PathName] = len(r.records)
		identifierAt[rec.NamedIdentifier] = i
		r.records = append(r.records, rec)
		r.byPathName[rec.PathName] = PathEntry{PageTitle: rec.PageTitle, NamedIdentifier: rec.NamedIdentifier}
		r.byIdentifier[rec.NamedIdentifier] = IdentifierEntry{PathName: rec.PathName, PageTitle: rec.PageTitle}
	}
	return r, nil
}

func (rec PageRecord) validate(index int) error {
	fields := []struct{ name, value string }{
		{FieldPathName, rec.PathName},
		{FieldPageTitle, rec.PageTitle},
		{FieldNamedIdentifier, rec.NamedIdentifier},
	}
	for _, f := range fields {
		if f.value == "" {
			return &ConfigError{Op: "load", Field: f.name, Err: ErrInvalid,
				Detail: fmt.Sprintf("record %d has an empty %s", index, f.name)}
		}
	}
	return nil
}

// Parse reads a sources document of the form `pages: [...]`. Keys other than
// the three record fields are rejected so typos surface as errors.
func Parse(data []byte) (*Registry, error) {
	var doc sourcesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Op: "parse", Err: ErrInvalid, Detail: err.Error()}
	}
	return New(doc.Pages)
}

// Load reads and parses the sources file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read sources file at %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("sources file %s: %w", path, err)
	}
	return reg, nil
}

// Resolve maps a logical identifier to the path name and title of its page.
func (r *Registry) Resolve(identifier string) (IdentifierEntry, error) {
	e, ok := r.byIdentifier[identifier]
	if !ok {
		return IdentifierEntry{}, &ConfigError{Op: "resolve", Field: FieldNamedIdentifier, Key: identifier, Err: ErrNotFound}
	}
	return e, nil
}

// Lookup maps a path name back to its identifier and title.
func (r *Registry) Lookup(pathName string) (PathEntry, error) {
	e, ok := r.byPathName[pathName]
	if !ok {
		return PathEntry{}, &ConfigError{Op: "lookup", Field: FieldPathName, Key: pathName, Err: ErrNotFound}
	}
	return e, nil
}

// Records returns a copy of the records in sources order.
func (r *Registry) Records() []PageRecord {
	out := make([]PageRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len reports the number of records.
func (r *Registry) Len() int { return len(r.records) }

// Neighbors returns the records before and after pathName in sources order.
// Either may be nil at the ends of the list.
func (r *Registry) Neighbors(pathName string) (prev, next *PageRecord, err error) {
	i, ok := r.position[pathName]
	if !ok {
		return nil, nil, &ConfigError{Op: "lookup", Field: FieldPathName, Key: pathName, Err: ErrNotFound}
	}
	if i > 0 {
		p := r.records[i-1]
		prev = &p
	}
	if i+1 < len(r.records) {
		n := r.records[i+1]
		next = &n
	}
	return prev, next, nil
}

// Filter returns a registry holding only the records keep accepts, in the
// same order. A subset of a valid registry is always valid.
func (r *Registry) Filter(keep func(PageRecord) bool) *Registry {
	var kept []PageRecord
	for _, rec := range r.records {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	out, err := New(kept)
	if err != nil {
		panic(fmt.Sprintf("registry: filtered subset rejected: %v", err))
	}
	return out
}
