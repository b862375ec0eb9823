package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guyvdb/drepo/record"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	record.DateTimeLayout,
	"2006-01-02 15:04:05",
	record.DateLayout,
}

// Coerce converts v to the Go representation of kind: int64, float64,
// string, bool or UTC time.Time. Nil passes through unchanged.
func Coerce(kind Kind, v any) (any, error) {
	v = record.Normalize(v)
	if v == nil {
		return nil, nil
	}

	switch kind {
	case KindAny:
		return v, nil
	case KindString:
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return record.String(v), nil
	case KindInt:
		if n, ok := record.ToInt64(v); ok {
			return n, nil
		}
	case KindFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	case KindTime:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
					return t.UTC(), nil
				}
			}
		}
	}
	return nil, fmt.Errorf("cannot convert %v (%T) to %s", v, v, kind)
}

// coerceAll converts the attributes named by columns in place, leaving
// values it cannot convert untouched.
func coerceAll(attrs record.Attributes, columns map[string]Column) {
	for name, v := range attrs {
		c, ok := columns[name]
		if !ok {
			continue
		}
		if cv, err := Coerce(c.Kind, v); err == nil {
			attrs[name] = cv
		}
	}
}

// implicitColumns are present in every record type.
func implicitColumns() []Column {
	return []Column{
		{Name: record.IdField, Kind: KindInt},
		{Name: record.CreatedAtField, Kind: KindTime},
		{Name: record.UpdatedAtField, Kind: KindTime},
	}
}

// columnIndex maps column names, including the implicit ones, to columns.
func columnIndex(columns []Column) map[string]Column {
	idx := make(map[string]Column, len(columns)+3)
	for _, c := range implicitColumns() {
		idx[c.Name] = c
	}
	for _, c := range columns {
		idx[c.Name] = c
	}
	return idx
}
