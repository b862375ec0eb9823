// Package record holds the map-backed record shared by every store and the
// value helpers the query layer uses to compare field values.
package record

import (
	"maps"
	"slices"
)

// Fields every record carries regardless of its schema.
const (
	IdField        = "id"
	CreatedAtField = "created_at"
	UpdatedAtField = "updated_at"
)

// Attributes maps field names to values.
type Attributes map[string]any

// Clone returns a shallow copy of the attributes.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Id returns the normalized id held in the attributes, if any.
func (a Attributes) Id() (int64, bool) {
	v, ok := a[IdField]
	if !ok || v == nil {
		return 0, false
	}
	return ToInt64(v)
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Record is a single row of a store. A Record returned by a store is always
// a private copy; changing it does not change the store.
type Record struct {
	attrs Attributes
}

// New creates a record holding a copy of attrs.
func New(attrs Attributes) *Record {
	r := &Record{attrs: make(Attributes, len(attrs))}
	for k, v := range attrs {
		r.attrs[k] = Normalize(v)
	}
	return r
}

// Id returns the record id, or 0 when the record has none yet.
func (r *Record) Id() int64 {
	id, _ := r.attrs.Id()
	return id
}

func (r *Record) SetId(id int64) {
	r.attrs[IdField] = id
}

func (r *Record) Get(name string) any {
	return r.attrs[name]
}

// Has reports whether the field holds a value that is not blank.
func (r *Record) Has(name string) bool {
	return !Blank(r.attrs[name])
}

func (r *Record) Set(name string, value any) {
	r.attrs[name] = Normalize(value)
}

func (r *Record) Unset(name string) {
	delete(r.attrs, name)
}

// Attributes returns a copy of the record fields.
func (r *Record) Attributes() Attributes {
	return r.attrs.Clone()
}

func (r *Record) Clone() *Record {
	return &Record{attrs: r.attrs.Clone()}
}

// Matches reports whether every filter entry equals the record value.
func (r *Record) Matches(filter Attributes) bool {
	for k, want := range filter {
		if !Equal(r.attrs[k], want) {
			return false
		}
	}
	return true
}

// SortById orders records ascending by id, in place.
func SortById(records []*Record) {
	slices.SortStableFunc(records, func(a, b *Record) int {
		switch ai, bi := a.Id(), b.Id(); {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	})
}
