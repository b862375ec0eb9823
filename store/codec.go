package store

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/guyvdb/drepo/record"
)

// Codec encodes record attributes into stored bytes.
// Changing the codec of an existing bolt file makes its values unreadable.
type Codec interface {
	Marshal(attrs record.Attributes) ([]byte, error)
	Unmarshal(data []byte) (record.Attributes, error)
	Name() string
}

// CodecByName returns a built-in codec by its configuration name.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "msgpack":
		return MsgpackCodec{}, true
	case "json":
		return JSONCodec{}, true
	default:
		return nil, false
	}
}

// MsgpackCodec keeps integers, floats and times distinct on the wire.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Marshal(attrs record.Attributes) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(map[string]any(attrs)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte) (record.Attributes, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	attrs := make(record.Attributes, len(m))
	for k, v := range m {
		// msgpack restores times in the local zone.
		if t, ok := v.(time.Time); ok {
			v = t.UTC()
		}
		attrs[k] = record.Normalize(v)
	}
	return attrs, nil
}

// JSONCodec is human readable but loses value types; stores using it coerce
// values back through the column kinds.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(attrs record.Attributes) ([]byte, error) {
	return json.Marshal(map[string]any(attrs))
}

func (JSONCodec) Unmarshal(data []byte) (record.Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	attrs := make(record.Attributes, len(m))
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		attrs[k] = v
	}
	return attrs, nil
}
