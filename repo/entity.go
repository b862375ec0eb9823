package repo

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
	"github.com/guyvdb/drepo/store"
)

// Entity is one record of a repository's type. It holds its own copy of
// the field values; changes reach the store only through Save, Persist,
// UpdateAttributes or Convert.
type Entity struct {
	repo      *Repository
	attrs     record.Attributes
	persisted bool
	errs      []error
}

func (e *Entity) Repository() *Repository {
	return e.repo
}

// Id returns the entity id, or 0 when none has been assigned.
func (e *Entity) Id() int64 {
	id, _ := e.attrs.Id()
	return id
}

func (e *Entity) Get(name string) any {
	return e.attrs[name]
}

// Set assigns a declared field, converting the value to the field kind.
func (e *Entity) Set(name string, value any) error {
	v, err := e.convert(name, value)
	if err != nil {
		return err
	}
	e.attrs[name] = v
	return nil
}

func (e *Entity) convert(name string, value any) (any, error) {
	f, ok := e.repo.typ.Schema.Field(name)
	if !ok {
		return nil, &fault.UnknownAttributeError{TypeName: e.repo.Name(), Attribute: name}
	}
	v, err := store.Coerce(f.Kind, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", fault.ErrInvalidArgument, e.repo.Name(), name, err)
	}
	return v, nil
}

// Attributes returns a copy of the entity fields.
func (e *Entity) Attributes() record.Attributes {
	return e.attrs.Clone()
}

// SetAttributes assigns every pair of attrs. Nothing is assigned when one
// of the names is not declared or a value cannot be converted.
func (e *Entity) SetAttributes(attrs record.Attributes) error {
	converted := make(record.Attributes, len(attrs))
	for _, name := range attrs.Keys() {
		v, err := e.convert(name, attrs[name])
		if err != nil {
			return err
		}
		converted[name] = v
	}
	for name, v := range converted {
		e.attrs[name] = v
	}
	return nil
}

// Persisted reports whether the entity was loaded from or written to the
// bound store.
func (e *Entity) Persisted() bool {
	return e.persisted
}

// Errors returns the failures of the last validation.
func (e *Entity) Errors() []error {
	return e.errs
}

// Valid runs the field checks and records their failures.
func (e *Entity) Valid() bool {
	e.errs = e.validate()
	return len(e.errs) == 0
}

// Save writes a valid entity. A local entity is saved to its repository
// store, and one never persisted gets a new id when its id is taken; a
// delegated one is converted into a bound model record keyed by id. It
// returns false, with Errors set, when validation fails.
func (e *Entity) Save() (bool, error) {
	if !e.Valid() {
		slog.Debug("Entity.Save() - invalid", "type", e.repo.Name(), "errors", len(e.errs))
		return false, nil
	}
	if !e.repo.IsLocal() {
		if err := e.Convert(record.IdField); err != nil {
			return false, err
		}
		return true, nil
	}

	if id, ok := e.attrs.Id(); ok && !e.persisted {
		taken, err := e.repo.model().Exists(id)
		if err != nil {
			return false, err
		}
		if taken {
			slog.Debug("Entity.Save() - id taken, dropping", "type", e.repo.Name(), "id", id)
			delete(e.attrs, record.IdField)
		}
	}

	rec := record.New(e.attrs)
	if err := e.repo.model().Save(rec); err != nil {
		return false, err
	}
	e.load(rec)
	return true, nil
}

// Persist is Save.
func (e *Entity) Persist() (bool, error) {
	return e.Save()
}

// Convert writes the entity into the bound model. The model record whose
// key field equals the entity's value is updated, or a new one created,
// with every field except id; the resulting id is written back.
func (e *Entity) Convert(key string) error {
	if !e.repo.typ.Schema.Declares(key) {
		return &fault.UnknownAttributeError{TypeName: e.repo.Name(), Attribute: key}
	}

	target, err := e.counterpart(key)
	if err != nil {
		return err
	}
	if target == nil {
		slog.Debug("Entity.Convert() - no counterpart, creating", "type", e.repo.Name(), "key", key)
		target = record.New(nil)
	}
	for name, v := range e.attrs {
		if name != record.IdField {
			target.Set(name, v)
		}
	}

	if err := e.repo.model().Save(target); err != nil {
		return err
	}
	e.load(target)
	return nil
}

func (e *Entity) counterpart(key string) (*record.Record, error) {
	model := e.repo.model()
	if key == record.IdField {
		id, ok := e.attrs.Id()
		if !ok {
			return nil, nil
		}
		rec, err := model.Find(id)
		if errors.Is(err, fault.ErrRecordNotFound) {
			return nil, nil
		}
		return rec, err
	}

	v, ok := e.attrs[key]
	if !ok || v == nil {
		return nil, nil
	}
	found, err := model.Where(record.Attributes{key: v})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Reload replaces the entity fields with the stored ones.
func (e *Entity) Reload() error {
	id, ok := e.attrs.Id()
	if !ok {
		return fault.ErrIdIsNil
	}
	fresh, err := e.repo.Find(id)
	if err != nil {
		return err
	}
	e.attrs = fresh.attrs
	e.persisted = true
	e.errs = nil
	return nil
}

// UpdateAttributes assigns attrs and writes them to the live record of
// the bound model, then copies the saved fields back. id is never
// changed. It returns false, with Errors set, when validation fails.
func (e *Entity) UpdateAttributes(attrs record.Attributes) (bool, error) {
	changes := attrs.Clone()
	delete(changes, record.IdField)
	if err := e.SetAttributes(changes); err != nil {
		return false, err
	}
	if !e.Valid() {
		return false, nil
	}

	id, ok := e.attrs.Id()
	if !ok {
		if err := e.Convert(record.IdField); err != nil {
			return false, err
		}
		return true, nil
	}

	live, err := e.repo.model().Find(id)
	if err != nil {
		return false, &fault.RecordNotFoundError{TypeName: e.repo.Name(), Ids: []int64{id}, Cause: err}
	}
	for name := range changes {
		live.Set(name, e.attrs[name])
	}
	if err := e.repo.model().Save(live); err != nil {
		return false, err
	}
	e.load(live)
	return true, nil
}

// Delete removes the entity's record from the bound store.
func (e *Entity) Delete() error {
	id, ok := e.attrs.Id()
	if !ok {
		return nil
	}
	if err := e.repo.model().Delete(id); err != nil {
		return err
	}
	e.persisted = false
	return nil
}

// load takes the fields of a record the bound store has just returned.
func (e *Entity) load(rec *record.Record) {
	e.attrs = rec.Attributes()
	e.persisted = true
}
