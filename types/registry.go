package types

import (
	"sync"

	"github.com/guyvdb/drepo/store"
)

type Mode int

const (
	// Local types keep their records in a store of their own.
	Local Mode = iota
	// Delegated types forward every operation to a bound model.
	Delegated
)

func (m Mode) String() string {
	return [...]string{"local", "delegated"}[m]
}

// Binding attaches a type to the store holding its records.
type Binding struct {
	Model store.Store
	Mode  Mode
}

// Type is the immutable registration of a record type.
type Type struct {
	Id      int64
	Schema  Schema
	binding Binding
}

func (t *Type) Name() string {
	return t.Schema.Name
}

// Model returns the bound store.
func (t *Type) Model() store.Store {
	return t.binding.Model
}

func (t *Type) Mode() Mode {
	return t.binding.Mode
}

func (t *Type) IsLocal() bool {
	return t.binding.Mode == Local
}

var (
	registry     *Registry
	registryOnce sync.Once
)

// GetRegistry returns the process wide registry.
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		registry = NewRegistry()
	})
	return registry
}
