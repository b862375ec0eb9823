package store

import (
	"log/slog"
	"sync"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
)

var _ Store = (*Memory)(nil)

// Memory is a volatile Store. Records are kept in creation order, which is
// the order All returns them in. Every call is guarded on its own; a
// sequence of calls is not atomic.
type Memory struct {
	mu      sync.RWMutex
	name    string
	records []*record.Record
	index   map[int64]int
	opts    *options
}

// NewMemory creates an empty in-memory store for the named type.
func NewMemory(name string, opts ...Option) *Memory {
	slog.Debug("NewMemory - create memory store", "type", name)
	return &Memory{
		name:  name,
		index: make(map[int64]int),
		opts:  newOptions(opts),
	}
}

func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) All() ([]*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*record.Record, len(m.records))
	for i, r := range m.records {
		results[i] = r.Clone()
	}
	return results, nil
}

func (m *Memory) Find(id int64) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, found := m.index[id]
	if !found {
		return nil, fault.ErrRecordNotFound
	}
	return m.records[pos].Clone(), nil
}

func (m *Memory) Where(filter record.Attributes) ([]*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*record.Record, 0)
	for _, r := range m.records {
		if r.Matches(filter) {
			results = append(results, r.Clone())
		}
	}
	record.SortById(results)
	return results, nil
}

func (m *Memory) Create(attrs record.Attributes) (*record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := record.New(attrs)
	id, ok := requestedId(attrs)
	if !ok || m.taken(id) {
		if ok {
			slog.Debug("Memory.Create() - id taken, reassigning", "type", m.name, "id", id)
		}
		id = m.nextId()
	}
	r.SetId(id)
	touch(r, m.opts.now(), true)

	m.append(r)
	return r.Clone(), nil
}

func (m *Memory) Save(r *record.Record) error {
	if r == nil {
		return fault.ErrNilRecord
	}
	if r.Id() <= 0 {
		created, err := m.Create(r.Attributes())
		if err != nil {
			return err
		}
		r.SetId(created.Id())
		r.Set(record.CreatedAtField, created.Get(record.CreatedAtField))
		r.Set(record.UpdatedAtField, created.Get(record.UpdatedAtField))
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, found := m.index[r.Id()]
	if found && !r.Has(record.CreatedAtField) {
		r.Set(record.CreatedAtField, m.records[pos].Get(record.CreatedAtField))
	}
	touch(r, m.opts.now(), !found)
	if found {
		m.records[pos] = r.Clone()
		return nil
	}
	m.append(r.Clone())
	return nil
}

func (m *Memory) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, found := m.index[id]
	if !found {
		return nil
	}
	m.records = append(m.records[:pos], m.records[pos+1:]...)
	m.reindex()
	return nil
}

func (m *Memory) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("Memory.DeleteAll() - clear store", "type", m.name, "count", len(m.records))
	m.records = nil
	m.index = make(map[int64]int)
	return nil
}

func (m *Memory) Exists(id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.taken(id), nil
}

func (m *Memory) First() (*record.Record, error) {
	return m.edge(func(a, b int64) bool { return a < b })
}

func (m *Memory) Last() (*record.Record, error) {
	return m.edge(func(a, b int64) bool { return a > b })
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) edge(better func(a, b int64) bool) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *record.Record
	for _, r := range m.records {
		if found == nil || better(r.Id(), found.Id()) {
			found = r
		}
	}
	if found == nil {
		return nil, nil
	}
	return found.Clone(), nil
}

func (m *Memory) taken(id int64) bool {
	_, found := m.index[id]
	return found
}

func (m *Memory) nextId() int64 {
	var max int64
	for id := range m.index {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (m *Memory) append(r *record.Record) {
	m.index[r.Id()] = len(m.records)
	m.records = append(m.records, r)
}

func (m *Memory) reindex() {
	m.index = make(map[int64]int, len(m.records))
	for i, r := range m.records {
		m.index[r.Id()] = i
	}
}
