package types

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/guyvdb/drepo/fault"
)

// First id handed out to a registered type.
const firstTypeId int64 = 1001

// Registry records the known types and their bindings. A binding is set
// once: registering a name again returns the first registration and the
// new binding is ignored.
type Registry struct {
	mu         sync.RWMutex
	nextTypeId int64
	byName     map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	slog.Debug("NewRegistry - create registry")
	return &Registry{
		nextTypeId: firstTypeId,
		byName:     make(map[string]*Type),
	}
}

// Register records schema with binding. The returned bool is true when
// this call created the registration.
func (r *Registry) Register(schema Schema, binding Binding) (*Type, bool, error) {
	if err := schema.Validate(); err != nil {
		return nil, false, err
	}
	if binding.Model == nil {
		return nil, false, fmt.Errorf("%w: %s has no bound model", fault.ErrInvalidSchema, schema.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.byName[schema.Name]; found {
		slog.Debug("Registry.Register() - already registered, ignoring rebind", "typeName", schema.Name, "mode", existing.Mode().String())
		return existing, false, nil
	}

	t := &Type{
		Id:      r.nextTypeId,
		Schema:  schema,
		binding: binding,
	}
	r.nextTypeId++
	r.byName[schema.Name] = t

	slog.Debug("Registry.Register() - register type", "typeName", schema.Name, "typeId", t.Id, "mode", binding.Mode.String(), "store", binding.Model.Name())
	return t, true, nil
}

func (r *Registry) Lookup(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, found := r.byName[name]
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrTypeNotFound, name)
	}
	return t, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
