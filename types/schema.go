package types

import (
	"fmt"
	"strings"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
	"github.com/guyvdb/drepo/store"
)

// Field declares one attribute of a record type.
type Field struct {
	Name     string     `yaml:"name"`
	Kind     store.Kind `yaml:"kind"`
	Required bool       `yaml:"required"`
	Unique   bool       `yaml:"unique"`
	Indexed  bool       `yaml:"indexed"`
}

// Schema names a record type and its declared fields. id, created_at and
// updated_at are always declared and need not be listed.
type Schema struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

var implicitFields = []Field{
	{Name: record.IdField, Kind: store.KindInt},
	{Name: record.CreatedAtField, Kind: store.KindTime},
	{Name: record.UpdatedAtField, Kind: store.KindTime},
}

// Validate checks the schema has a name and no duplicate or empty fields.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: missing type name", fault.ErrInvalidSchema)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" || strings.ContainsAny(f.Name, " \t\n") {
			return fmt.Errorf("%w: %s: invalid field name %q", fault.ErrInvalidSchema, s.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s: duplicate field %q", fault.ErrInvalidSchema, s.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// AllFields returns the implicit fields followed by the declared ones.
func (s Schema) AllFields() []Field {
	fields := make([]Field, 0, len(implicitFields)+len(s.Fields))
	fields = append(fields, implicitFields...)
	for _, f := range s.Fields {
		if !isImplicit(f.Name) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field looks up a field by name, implicit fields included.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.AllFields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) Declares(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Columns describes the schema to a store.
func (s Schema) Columns() []store.Column {
	columns := make([]store.Column, 0, len(s.Fields))
	for _, f := range s.Fields {
		if isImplicit(f.Name) {
			continue
		}
		c := store.Column{Name: f.Name, Kind: f.Kind}
		switch {
		case f.Unique:
			c.Index = store.UniqueIndex
		case f.Indexed:
			c.Index = store.NonUniqueIndex
		}
		columns = append(columns, c)
	}
	return columns
}

func isImplicit(name string) bool {
	for _, f := range implicitFields {
		if f.Name == name {
			return true
		}
	}
	return false
}
