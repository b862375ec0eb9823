package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.etcd.io/bbolt"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
)

// BoltDB is a bbolt file holding the records of any number of types, one
// bucket per type.
type BoltDB struct {
	db   *bbolt.DB
	opts *options
}

// Bolt implements the Store interface for one record type of a BoltDB.
var _ Store = (*Bolt)(nil)

type Bolt struct {
	db      *bbolt.DB
	name    string
	bucket  []byte
	columns map[string]Column
	indexes []Column
	opts    *options
}

// OpenBolt opens (or creates) the bolt file at path.
func OpenBolt(path string, opts ...Option) (*BoltDB, error) {
	slog.Debug("OpenBolt - open bolt db", "path", path)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &BoltDB{db: db, opts: newOptions(opts)}, nil
}

// Store returns the store for the named type, allocating its buckets if
// needed.
func (b *BoltDB) Store(name string, columns []Column) (*Bolt, error) {
	s := &Bolt{
		db:      b.db,
		name:    name,
		bucket:  []byte("Type." + name),
		columns: columnIndex(columns),
		opts:    b.opts,
	}
	for _, c := range columns {
		if c.Indexed() {
			s.indexes = append(s.indexes, c)
		}
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return s.allocateBuckets(tx)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return nil, fault.ErrStoreClosed
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the bolt file. Stores obtained from it become unusable.
func (b *BoltDB) Close() error {
	slog.Debug("BoltDB.Close() - close db")
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (s *Bolt) Name() string {
	return s.name
}

func (s *Bolt) All() ([]*record.Record, error) {
	results := make([]*record.Record, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fault.ErrBucketNotFound
		}
		return bucket.ForEach(func(k, v []byte) error {
			r, err := s.decode(v)
			if err != nil {
				return err
			}
			results = append(results, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Bolt) Find(id int64) (*record.Record, error) {
	slog.Debug("Bolt.Find() - find record", "type", s.name, "id", id)

	var result *record.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		result, err = s.get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fault.ErrRecordNotFound
	}
	return result, nil
}

func (s *Bolt) Where(filter record.Attributes) ([]*record.Record, error) {
	filter = filter.Clone()
	coerceAll(filter, s.columns)

	results := make([]*record.Record, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		ids, indexed, err := s.lookup(tx, filter)
		if err != nil {
			return err
		}

		if indexed {
			for _, id := range ids {
				r, err := s.get(tx, id)
				if err != nil {
					return err
				}
				if r != nil && r.Matches(filter) {
					results = append(results, r)
				}
			}
			return nil
		}

		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fault.ErrBucketNotFound
		}
		return bucket.ForEach(func(k, v []byte) error {
			r, err := s.decode(v)
			if err != nil {
				return err
			}
			if r.Matches(filter) {
				results = append(results, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	record.SortById(results)
	return results, nil
}

func (s *Bolt) Create(attrs record.Attributes) (*record.Record, error) {
	attrs = attrs.Clone()
	coerceAll(attrs, s.columns)
	r := record.New(attrs)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fault.ErrBucketNotFound
		}

		id, ok := requestedId(attrs)
		if ok && bucket.Get(idKey(id)) == nil {
			if uint64(id) > bucket.Sequence() {
				if err := bucket.SetSequence(uint64(id)); err != nil {
					return err
				}
			}
		} else {
			next, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			if ok {
				slog.Debug("Bolt.Create() - id taken, reassigning", "type", s.name, "id", id, "newId", next)
			}
			id = int64(next)
		}
		r.SetId(id)
		touch(r, s.opts.now(), true)
		return s.put(tx, bucket, r, nil)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Bolt) Save(r *record.Record) error {
	if r == nil {
		return fault.ErrNilRecord
	}
	if r.Id() <= 0 {
		created, err := s.Create(r.Attributes())
		if err != nil {
			return err
		}
		for k, v := range created.Attributes() {
			r.Set(k, v)
		}
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fault.ErrBucketNotFound
		}
		previous, err := s.get(tx, r.Id())
		if err != nil {
			return err
		}
		if previous != nil && !r.Has(record.CreatedAtField) {
			r.Set(record.CreatedAtField, previous.Get(record.CreatedAtField))
		}
		if uint64(r.Id()) > bucket.Sequence() {
			if err := bucket.SetSequence(uint64(r.Id())); err != nil {
				return err
			}
		}
		touch(r, s.opts.now(), previous == nil)
		return s.put(tx, bucket, r, previous)
	})
}

func (s *Bolt) Delete(id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fault.ErrBucketNotFound
		}
		previous, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if previous == nil {
			slog.Debug("Bolt.Delete() - record not found, considering delete successful", "type", s.name, "id", id)
			return nil
		}
		if err := s.removeIndexes(tx, previous); err != nil {
			return err
		}
		return bucket.Delete(idKey(id))
	})
}

func (s *Bolt) DeleteAll() error {
	slog.Debug("Bolt.DeleteAll() - drop buckets", "type", s.name)

	return s.db.Update(func(tx *bbolt.Tx) error {
		names := [][]byte{s.bucket}
		for _, c := range s.indexes {
			names = append(names, s.indexBucketName(c.Name))
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return fmt.Errorf("failed to delete bucket %s: %w", string(name), err)
			}
		}
		return s.allocateBuckets(tx)
	})
}

func (s *Bolt) Exists(id int64) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		exists = bucket.Get(idKey(id)) != nil
		return nil
	})
	return exists, err
}

func (s *Bolt) First() (*record.Record, error) {
	return s.edge(func(c *bbolt.Cursor) ([]byte, []byte) { return c.First() })
}

func (s *Bolt) Last() (*record.Record, error) {
	return s.edge(func(c *bbolt.Cursor) ([]byte, []byte) { return c.Last() })
}

// Close is a no-op; the file is closed through BoltDB.
func (s *Bolt) Close() error {
	return nil
}

func (s *Bolt) edge(move func(c *bbolt.Cursor) ([]byte, []byte)) (*record.Record, error) {
	var result *record.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fault.ErrBucketNotFound
		}
		k, v := move(bucket.Cursor())
		if k == nil {
			return nil
		}
		var err error
		result, err = s.decode(v)
		return err
	})
	return result, err
}

func (s *Bolt) allocateBuckets(tx *bbolt.Tx) error {
	if _, err := tx.CreateBucketIfNotExists(s.bucket); err != nil {
		return fmt.Errorf("%w: %s: %w", fault.ErrBucketCreateFailed, string(s.bucket), err)
	}
	for _, c := range s.indexes {
		name := s.indexBucketName(c.Name)
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("%w: %s: %w", fault.ErrBucketCreateFailed, string(name), err)
		}
	}
	return nil
}

func (s *Bolt) get(tx *bbolt.Tx, id int64) (*record.Record, error) {
	bucket := tx.Bucket(s.bucket)
	if bucket == nil {
		return nil, fault.ErrBucketNotFound
	}
	val := bucket.Get(idKey(id))
	if val == nil {
		return nil, nil
	}
	return s.decode(val)
}

func (s *Bolt) decode(data []byte) (*record.Record, error) {
	// Values are only valid for the lifetime of the transaction.
	valueBytes := make([]byte, len(data))
	copy(valueBytes, data)

	attrs, err := s.opts.codec.Unmarshal(valueBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrUnmarshalFailed, err)
	}
	coerceAll(attrs, s.columns)
	return record.New(attrs), nil
}

func (s *Bolt) put(tx *bbolt.Tx, bucket *bbolt.Bucket, r *record.Record, previous *record.Record) error {
	attrs := r.Attributes()
	coerceAll(attrs, s.columns)
	data, err := s.opts.codec.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrMarshalFailed, err)
	}
	if previous != nil {
		if err := s.removeIndexes(tx, previous); err != nil {
			return err
		}
	}
	if err := bucket.Put(idKey(r.Id()), data); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrPutFailed, err)
	}
	return s.updateIndexes(tx, r)
}

func (s *Bolt) updateIndexes(tx *bbolt.Tx, r *record.Record) error {
	for _, index := range s.indexes {
		idxbucket := tx.Bucket(s.indexBucketName(index.Name))
		if idxbucket == nil {
			return fault.ErrBucketNotFound
		}

		valueBytes, ok := indexValue(index.Kind, r.Get(index.Name))
		if !ok {
			slog.Debug("Bolt.updateIndexes() - skipping unindexable value", "type", s.name, "property", index.Name, "kind", index.Kind.String())
			continue
		}

		idBytes := idKey(r.Id())
		key := buildIndexKey(index.Index, valueBytes, r.Id())

		if index.Index == UniqueIndex {
			existing := idxbucket.Get(key)
			if existing != nil && !bytes.Equal(existing, idBytes) {
				return fmt.Errorf("%w: %s.%s already mapped to id %d", fault.ErrUniqueConstraint, s.name, index.Name, keyId(existing))
			}
		}

		if err := idxbucket.Put(key, idBytes); err != nil {
			return fmt.Errorf("%w: %s: %w", fault.ErrIndexUpdateFailed, index.Name, err)
		}
	}
	return nil
}

func (s *Bolt) removeIndexes(tx *bbolt.Tx, r *record.Record) error {
	for _, index := range s.indexes {
		idxbucket := tx.Bucket(s.indexBucketName(index.Name))
		if idxbucket == nil {
			continue
		}
		valueBytes, ok := indexValue(index.Kind, r.Get(index.Name))
		if !ok {
			continue
		}
		key := buildIndexKey(index.Index, valueBytes, r.Id())
		if index.Index == UniqueIndex && !bytes.Equal(idxbucket.Get(key), idKey(r.Id())) {
			continue
		}
		if err := idxbucket.Delete(key); err != nil {
			return fmt.Errorf("%w: %s: %w", fault.ErrIndexUpdateFailed, index.Name, err)
		}
	}
	return nil
}

// lookup resolves candidate ids through the first indexed column named in
// the filter. indexed is false when no index applies.
func (s *Bolt) lookup(tx *bbolt.Tx, filter record.Attributes) (ids []int64, indexed bool, err error) {
	for _, index := range s.indexes {
		want, present := filter[index.Name]
		if !present {
			continue
		}
		valueBytes, ok := indexValue(index.Kind, want)
		if !ok {
			continue
		}
		idxbucket := tx.Bucket(s.indexBucketName(index.Name))
		if idxbucket == nil {
			return nil, false, fault.ErrBucketNotFound
		}

		if index.Index == UniqueIndex {
			if v := idxbucket.Get(valueBytes); v != nil {
				ids = append(ids, keyId(v))
			}
			return ids, true, nil
		}

		prefix := append(valueBytes, 0)
		c := idxbucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			ids = append(ids, keyId(v))
		}
		return ids, true, nil
	}
	return nil, false, nil
}

func (s *Bolt) indexBucketName(propertyName string) []byte {
	return []byte("Index." + s.name + "." + propertyName)
}

// indexValue encodes v so that byte order follows value order.
func indexValue(kind Kind, v any) ([]byte, bool) {
	cv, err := Coerce(kind, v)
	if err != nil || cv == nil {
		return nil, false
	}

	switch kind {
	case KindString:
		return []byte(cv.(string)), true
	case KindInt:
		// XOR with (1 << 63) to make signed int64 lexicographically sortable
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(cv.(int64))^(1<<63))
		return buf, true
	case KindFloat:
		bits := math.Float64bits(cv.(float64))
		if bits&(1<<63) == 0 {
			bits |= (1 << 63)
		} else {
			bits = ^bits
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bits)
		return buf, true
	case KindBool:
		if cv.(bool) {
			return []byte{1}, true
		}
		return []byte{0}, true
	case KindTime:
		return cv.(time.Time).AppendFormat(make([]byte, 0, 35), time.RFC3339Nano), true
	}
	return nil, false
}

// buildIndexKey creates the key for the index bucket based on index type.
// For UniqueIndex, the key is the property value. For NonUniqueIndex the
// value is joined with the id by a null byte so equal values stay distinct.
func buildIndexKey(indexType IndexType, valueBytes []byte, id int64) []byte {
	if indexType == UniqueIndex {
		return valueBytes
	}
	idBytes := idKey(id)
	key := make([]byte, 0, len(valueBytes)+1+len(idBytes))
	key = append(key, valueBytes...)
	key = append(key, 0)
	key = append(key, idBytes...)
	return key
}
