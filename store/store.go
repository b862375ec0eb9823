package store

import (
	"time"

	"github.com/guyvdb/drepo/record"
)

// Store is an ordered collection of records of one type keyed by a numeric
// id. It is both the local record store of a repository and the contract a
// bound model has to satisfy in delegated mode.
type Store interface {
	// Name is the record type held by the store.
	Name() string

	All() ([]*record.Record, error)
	Find(id int64) (*record.Record, error)

	// Where returns the records whose fields equal every filter entry,
	// in id order.
	Where(filter record.Attributes) ([]*record.Record, error)

	// Create persists a new record. An id that is missing, not positive or
	// already taken is replaced with a freshly assigned one.
	Create(attrs record.Attributes) (*record.Record, error)

	// Save inserts or replaces the record with the id r carries. A record
	// without an id is created.
	Save(r *record.Record) error

	Delete(id int64) error
	DeleteAll() error
	Exists(id int64) (bool, error)

	// First and Last return the records with the lowest and highest id,
	// or nil when the store is empty.
	First() (*record.Record, error)
	Last() (*record.Record, error)

	Close() error
}

type Clock func() time.Time

type options struct {
	clock Clock
	codec Codec
}

type Option func(*options)

// WithClock replaces the clock used to stamp created_at and updated_at.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithCodec replaces the codec a Bolt store uses for record values.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		clock: time.Now,
		codec: MsgpackCodec{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) now() time.Time {
	return o.clock().UTC().Truncate(time.Second)
}

// touch stamps the record before it is written. created_at is only set
// when the record is new.
func touch(r *record.Record, now time.Time, created bool) {
	if created || !r.Has(record.CreatedAtField) {
		r.Set(record.CreatedAtField, now)
	}
	r.Set(record.UpdatedAtField, now)
}

// requestedId returns the usable id carried by attrs, if any.
func requestedId(attrs record.Attributes) (int64, bool) {
	id, ok := attrs.Id()
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
