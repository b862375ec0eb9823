package repo

import (
	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
)

// finder is the pair of lookups generated for one declared field.
type finder struct {
	one func(v any) (*Entity, error)
	all func(v any) ([]*Entity, error)
}

func (r *Repository) buildFinders() {
	fields := r.typ.Schema.AllFields()
	r.finders = make(map[string]finder, len(fields))
	for _, f := range fields {
		name := f.Name
		all := func(v any) ([]*Entity, error) {
			return r.whereFilter(record.Attributes{name: v})
		}
		r.finders[name] = finder{
			all: all,
			one: func(v any) (*Entity, error) {
				found, err := all(v)
				if err != nil || len(found) == 0 {
					return nil, err
				}
				return found[0], nil
			},
		}
	}
}

// FindBy returns the first entity whose field equals v, or nil.
func (r *Repository) FindBy(field string, v any) (*Entity, error) {
	f, ok := r.finders[field]
	if !ok {
		return nil, &fault.UnknownAttributeError{TypeName: r.Name(), Attribute: field}
	}
	return f.one(v)
}

// FindAllBy returns every entity whose field equals v.
func (r *Repository) FindAllBy(field string, v any) ([]*Entity, error) {
	f, ok := r.finders[field]
	if !ok {
		return nil, &fault.UnknownAttributeError{TypeName: r.Name(), Attribute: field}
	}
	return f.all(v)
}

// Finders lists the fields that have generated finders.
func (r *Repository) Finders() []string {
	names := make([]string, 0, len(r.finders))
	for _, f := range r.typ.Schema.AllFields() {
		names = append(names, f.Name)
	}
	return names
}
