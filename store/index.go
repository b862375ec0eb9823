package store

import (
	"fmt"
	"strings"
)

type IndexType int
type Kind int

const (
	NoIndex IndexType = iota
	UniqueIndex
	NonUniqueIndex
)

// Kind specifies the value type a column holds. KindAny columns accept
// every value and are never indexed.
const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
)

// Column describes one field of a record type to a store.
type Column struct {
	Name  string    `json:"name" yaml:"name"`
	Kind  Kind      `json:"kind" yaml:"kind"`
	Index IndexType `json:"index" yaml:"index"`
}

func (it IndexType) String() string {
	return [...]string{"None", "Unique", "NonUnique"}[it]
}

// String returns the string representation of Kind.
func (k Kind) String() string {
	return [...]string{"any", "string", "int", "float", "bool", "time"}[k]
}

// ParseKind maps a kind name (as used in configuration) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return KindAny, nil
	case "string", "text":
		return KindString, nil
	case "int", "integer", "int64":
		return KindInt, nil
	case "float", "float64", "real":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	case "time", "datetime", "date", "timestamp":
		return KindTime, nil
	}
	return KindAny, fmt.Errorf("unknown kind %q", s)
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Indexed reports whether the column keeps a secondary index.
func (c Column) Indexed() bool {
	return c.Index != NoIndex && c.Kind != KindAny
}
