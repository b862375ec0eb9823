package repo

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/query"
	"github.com/guyvdb/drepo/record"
	"github.com/guyvdb/drepo/store"
	"github.com/guyvdb/drepo/types"
)

// Repository is the entry point for one record type.
type Repository struct {
	typ     *types.Type
	finders map[string]finder
}

type options struct {
	model     store.Store
	registry  *types.Registry
	storeOpts []store.Option
}

type Option func(*options)

// WithModel binds the repository to an external store: every operation is
// delegated to it.
func WithModel(m store.Store) Option {
	return func(o *options) {
		o.model = m
	}
}

// WithRegistry registers the type in r instead of the global registry.
func WithRegistry(r *types.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithStoreOptions configures the store a local repository creates.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// New registers schema and returns its repository. Without WithModel the
// repository is local and keeps its records in memory. When the name is
// already registered the existing binding is used and the options that
// would change it are ignored.
func New(schema types.Schema, opts ...Option) (*Repository, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = types.GetRegistry()
	}

	binding := types.Binding{Model: o.model, Mode: types.Delegated}
	if o.model == nil {
		binding = types.Binding{Model: store.NewMemory(schema.Name, o.storeOpts...), Mode: types.Local}
	}

	t, _, err := o.registry.Register(schema, binding)
	if err != nil {
		return nil, err
	}

	r := &Repository{typ: t}
	r.buildFinders()
	return r, nil
}

func (r *Repository) Name() string {
	return r.typ.Name()
}

func (r *Repository) Type() *types.Type {
	return r.typ
}

func (r *Repository) IsLocal() bool {
	return r.typ.IsLocal()
}

func (r *Repository) model() store.Store {
	return r.typ.Model()
}

// Find returns the entity with the given id.
func (r *Repository) Find(id int64) (*Entity, error) {
	entities, err := r.FindMany(id)
	if err != nil {
		return nil, err
	}
	return entities[0], nil
}

// FindMany returns one entity per id, in the order given. If any id is
// missing, or the store fails, the error names every requested id.
func (r *Repository) FindMany(ids ...int64) ([]*Entity, error) {
	if len(ids) == 0 {
		return nil, &fault.ArgumentError{Op: "find", Message: "no id given"}
	}

	entities := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		rec, err := r.model().Find(id)
		if err != nil {
			notFound := &fault.RecordNotFoundError{TypeName: r.Name(), Ids: ids}
			if !errors.Is(err, fault.ErrRecordNotFound) {
				notFound.Cause = err
			}
			return nil, notFound
		}
		e, err := r.wrap(rec)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Where filters the records of the type. The first argument is either a
// record.Attributes (or map[string]any) equality filter or a query
// template whose ? placeholders are filled from the remaining arguments.
func (r *Repository) Where(args ...any) ([]*Entity, error) {
	if len(args) == 0 {
		return nil, &fault.ArgumentError{Op: "where", Message: "wrong number of arguments (0 for 1)"}
	}

	switch first := args[0].(type) {
	case record.Attributes:
		return r.whereFilter(first)
	case map[string]any:
		return r.whereFilter(record.Attributes(first))
	case string:
		return r.whereQuery(query.Interpolate(first, args[1:]...))
	}
	return nil, &fault.ArgumentError{Op: "where", Message: fmt.Sprintf("unsupported argument %T", args[0])}
}

func (r *Repository) whereQuery(raw string) ([]*Entity, error) {
	n, err := query.Compile(raw)
	if err != nil {
		return nil, err
	}

	if !r.IsLocal() {
		if filter, ok := query.EqualityFilter(n); ok {
			if coerced, ok := r.typedFilter(filter); ok {
				slog.Debug("Repository.Where() - delegate as filter", "type", r.Name(), "query", raw)
				return r.whereFilter(coerced)
			}
		}
	}

	slog.Debug("Repository.Where() - run query", "type", r.Name(), "query", raw, "mode", r.typ.Mode().String())
	records, err := query.Run(r.model(), n)
	if err != nil {
		return nil, err
	}
	return r.wrapAll(records)
}

// typedFilter converts the string operands of an equality query to the
// declared field kinds. It fails when a field is undeclared or untyped,
// since equality on those would not match the string comparison of the
// query.
func (r *Repository) typedFilter(filter record.Attributes) (record.Attributes, bool) {
	typed := make(record.Attributes, len(filter))
	for name, v := range filter {
		f, ok := r.typ.Schema.Field(name)
		if !ok || (f.Kind != store.KindString && f.Kind != store.KindInt) {
			return nil, false
		}
		cv, err := store.Coerce(f.Kind, v)
		if err != nil || record.String(cv) != v {
			return nil, false
		}
		typed[name] = cv
	}
	return typed, true
}

func (r *Repository) whereFilter(filter record.Attributes) ([]*Entity, error) {
	typed, err := r.coerce(filter)
	if err != nil {
		return nil, err
	}
	records, err := r.model().Where(typed)
	if err != nil {
		return nil, err
	}
	return r.wrapAll(records)
}

// All returns every record of the type.
func (r *Repository) All() ([]*Entity, error) {
	records, err := r.model().All()
	if err != nil {
		return nil, err
	}
	return r.wrapAll(records)
}

func (r *Repository) Count() (int, error) {
	records, err := r.model().All()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Build returns an unsaved entity holding attrs.
func (r *Repository) Build(attrs record.Attributes) (*Entity, error) {
	e := &Entity{repo: r, attrs: record.Attributes{}}
	if err := e.SetAttributes(attrs); err != nil {
		return nil, err
	}
	return e, nil
}

// Create builds and saves an entity. An id that is already taken is
// dropped so that the store assigns a new one. When validation fails the
// unsaved entity is returned with its errors.
func (r *Repository) Create(attrs record.Attributes) (*Entity, error) {
	e, err := r.Build(attrs)
	if err != nil {
		return nil, err
	}

	if id, ok := e.attrs.Id(); ok {
		taken, err := r.model().Exists(id)
		if err != nil {
			return nil, err
		}
		if taken {
			slog.Debug("Repository.Create() - id taken, dropping", "type", r.Name(), "id", id)
			delete(e.attrs, record.IdField)
		}
	}

	if !e.Valid() {
		return e, nil
	}

	rec, err := r.model().Create(e.attrs)
	if err != nil {
		return nil, err
	}
	e.load(rec)
	return e, nil
}

// FindOrCreate returns the first entity whose fields equal attrs, creating
// one when there is none.
func (r *Repository) FindOrCreate(attrs record.Attributes) (*Entity, error) {
	found, err := r.whereFilter(attrs)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found[0], nil
	}
	return r.Create(attrs)
}

func (r *Repository) DeleteAll() error {
	return r.model().DeleteAll()
}

func (r *Repository) Exists(id int64) (bool, error) {
	return r.model().Exists(id)
}

// First returns the entity with the lowest id, or nil.
func (r *Repository) First() (*Entity, error) {
	return r.edge(true)
}

// Last returns the entity with the highest id, or nil.
func (r *Repository) Last() (*Entity, error) {
	return r.edge(false)
}

func (r *Repository) edge(first bool) (*Entity, error) {
	if !r.IsLocal() {
		var rec *record.Record
		var err error
		if first {
			rec, err = r.model().First()
		} else {
			rec, err = r.model().Last()
		}
		if err != nil || rec == nil {
			return nil, err
		}
		return r.wrap(rec)
	}

	records, err := r.model().All()
	if err != nil || len(records) == 0 {
		return nil, err
	}
	record.SortById(records)
	pick := records[0]
	if !first {
		pick = records[len(records)-1]
	}
	return r.Find(pick.Id())
}

// coerce checks filter names against the schema and converts the values
// to the declared kinds.
func (r *Repository) coerce(attrs record.Attributes) (record.Attributes, error) {
	typed := make(record.Attributes, len(attrs))
	for name, v := range attrs {
		f, ok := r.typ.Schema.Field(name)
		if !ok {
			return nil, &fault.UnknownAttributeError{TypeName: r.Name(), Attribute: name}
		}
		cv, err := store.Coerce(f.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", fault.ErrInvalidArgument, r.Name(), name, err)
		}
		typed[name] = cv
	}
	return typed, nil
}

// wrap turns a store record into an entity, assigning each field through
// the strict attribute setter.
func (r *Repository) wrap(rec *record.Record) (*Entity, error) {
	e := &Entity{repo: r, attrs: record.Attributes{}}
	if err := e.SetAttributes(rec.Attributes()); err != nil {
		return nil, err
	}
	e.persisted = true
	return e, nil
}

func (r *Repository) wrapAll(records []*record.Record) ([]*Entity, error) {
	entities := make([]*Entity, 0, len(records))
	for _, rec := range records {
		e, err := r.wrap(rec)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
