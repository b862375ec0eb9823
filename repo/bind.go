package repo

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
)

const tagName = "drepo"

var timeType = reflect.TypeOf(time.Time{})

// structField is an exported struct field and the attribute it maps to.
type structField struct {
	index     int
	attribute string
	omitEmpty bool
}

// fieldsOf lists the mapped fields of struct type t. The attribute name is
// the drepo tag, or the snake_case field name; a "-" tag skips the field.
func fieldsOf(t reflect.Type) []structField {
	fields := make([]structField, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get(tagName), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(sf.Name)
		}
		fields = append(fields, structField{index: i, attribute: name, omitEmpty: opts == "omitempty"})
	}
	return fields
}

func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, &fault.ArgumentError{Op: "encode", Message: "nil pointer"}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, &fault.ArgumentError{Op: "encode", Message: fmt.Sprintf("%T is not a struct", v)}
	}
	return rv, nil
}

// Encode returns the attributes of struct v (or a pointer to one).
func Encode(v any) (record.Attributes, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}

	attrs := record.Attributes{}
	for _, f := range fieldsOf(rv.Type()) {
		fv := rv.Field(f.index)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				attrs[f.attribute] = nil
				continue
			}
			fv = fv.Elem()
		}
		attrs[f.attribute] = record.Normalize(fv.Interface())
	}
	return attrs, nil
}

// Decode copies the entity fields into the struct v points to. Struct
// fields without a matching attribute are left untouched; attributes
// without a matching field are ignored.
func (e *Entity) Decode(v any) error {
	return decode(e.repo.Name(), e.attrs, v)
}

func decode(typeName string, attrs record.Attributes, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &fault.ArgumentError{Op: "decode", Message: fmt.Sprintf("%T is not a non-nil pointer", v)}
	}
	rv = rv.Elem()
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return &fault.ArgumentError{Op: "decode", Message: fmt.Sprintf("%s is not a struct", rv.Type())}
	}

	for _, f := range fieldsOf(rv.Type()) {
		value, ok := attrs[f.attribute]
		if !ok {
			slog.Debug("Entity.Decode() - no attribute for field", "type", typeName, "attribute", f.attribute)
			continue
		}
		if err := assign(rv.Field(f.index), value); err != nil {
			return fmt.Errorf("%w: %s.%s: %w", fault.ErrInvalidArgument, typeName, f.attribute, err)
		}
	}
	return nil
}

// assign stores value in dst, converting between numeric kinds. Numbers
// are never turned into strings.
func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	value = record.Normalize(value)
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := record.ToInt64(value)
		if !ok || dst.OverflowInt(n) {
			break
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := record.ToInt64(value)
		if !ok || n < 0 || dst.OverflowUint(uint64(n)) {
			break
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		switch x := value.(type) {
		case float64:
			dst.SetFloat(x)
			return nil
		case int64:
			dst.SetFloat(float64(x))
			return nil
		}
	case reflect.String:
		if s, ok := value.(string); ok {
			dst.SetString(s)
			return nil
		}
	default:
		src := reflect.ValueOf(value)
		if src.Type().AssignableTo(dst.Type()) {
			dst.Set(src)
			return nil
		}
		if dst.Type() != timeType && src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind() {
			dst.Set(src.Convert(dst.Type()))
			return nil
		}
	}
	return fmt.Errorf("cannot assign %v (%T) to %s", value, value, dst.Type())
}
