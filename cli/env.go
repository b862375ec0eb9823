package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/guyvdb/drepo/config"
	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/repo"
	"github.com/guyvdb/drepo/store"
	"github.com/guyvdb/drepo/types"
)

// Environment holds one repository per configured model, bound to the
// configured store driver.
type Environment struct {
	Config   *config.Config
	Registry *types.Registry
	repos    map[string]*repo.Repository
	close    func() error
}

// Open builds the environment for cfg. The memory driver gives local
// repositories, which are seeded from the fixtures file when there is one;
// bolt and sqlite give repositories delegating to the database.
func Open(cfg *config.Config) (*Environment, error) {
	env := &Environment{
		Config:   cfg,
		Registry: types.NewRegistry(),
		repos:    make(map[string]*repo.Repository, len(cfg.Models)),
		close:    func() error { return nil },
	}

	models, err := openModels(cfg)
	if err != nil {
		return nil, err
	}
	if models != nil {
		env.close = models.close
	}

	for _, schema := range cfg.Models {
		opts := []repo.Option{repo.WithRegistry(env.Registry)}
		if models != nil {
			m, err := models.store(schema)
			if err != nil {
				env.Close()
				return nil, err
			}
			opts = append(opts, repo.WithModel(m))
		}
		r, err := repo.New(schema, opts...)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.repos[schema.Name] = r
	}

	if cfg.Store.Driver == config.DriverMemory && cfg.Fixtures != "" {
		if _, err := env.Load(cfg.Fixtures); err != nil {
			env.Close()
			return nil, err
		}
	}
	return env, nil
}

// database opens one store per schema on a shared file.
type database struct {
	store func(types.Schema) (store.Store, error)
	close func() error
}

func openModels(cfg *config.Config) (*database, error) {
	var opts []store.Option
	if cfg.Store.Codec != "" {
		codec, ok := store.CodecByName(cfg.Store.Codec)
		if !ok {
			return nil, fmt.Errorf("unknown codec %q", cfg.Store.Codec)
		}
		opts = append(opts, store.WithCodec(codec))
	}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		return nil, nil
	case config.DriverBolt:
		db, err := store.OpenBolt(cfg.Store.Path, opts...)
		if err != nil {
			return nil, err
		}
		return &database{
			store: func(s types.Schema) (store.Store, error) { return db.Store(s.Name, s.Columns()) },
			close: db.Close,
		}, nil
	case config.DriverSQLite:
		db, err := store.OpenSQL(cfg.Store.Path, opts...)
		if err != nil {
			return nil, err
		}
		return &database{
			store: func(s types.Schema) (store.Store, error) { return db.Store(s.Name, s.Columns()) },
			close: db.Close,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", fault.ErrUnsupportedDriver, cfg.Store.Driver)
}

// Repository returns the repository of the named model.
func (e *Environment) Repository(name string) (*repo.Repository, error) {
	r, ok := e.repos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fault.ErrTypeNotFound, name)
	}
	return r, nil
}

// Load creates the records of a fixtures file, model by model in name
// order, and returns how many were created per model.
func (e *Environment) Load(path string) (map[string]int, error) {
	fixtures, err := config.LoadFixtures(path)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(fixtures))
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		r, err := e.Repository(name)
		if err != nil {
			return nil, err
		}
		for i, attrs := range fixtures[name] {
			entity, err := r.Create(attrs)
			if err != nil {
				return nil, fmt.Errorf("fixture %s[%d]: %w", name, i, err)
			}
			if !entity.Persisted() {
				return nil, fmt.Errorf("fixture %s[%d]: %w", name, i, errors.Join(entity.Errors()...))
			}
			counts[name]++
		}
		slog.Debug("Environment.Load() - loaded fixtures", "type", name, "count", counts[name])
	}
	return counts, nil
}

func (e *Environment) Close() error {
	return e.close()
}
