package fault

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordNotFoundError is returned by a find that could not locate every
// requested id. Any underlying store error is folded into the message.
type RecordNotFoundError struct {
	TypeName string
	Ids      []int64
	Cause    error
}

func (e *RecordNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("couldn't find ")
	b.WriteString(e.TypeName)
	if len(e.Ids) == 1 {
		b.WriteString(" with ID=")
		b.WriteString(strconv.FormatInt(e.Ids[0], 10))
	} else {
		parts := make([]string, len(e.Ids))
		for i, id := range e.Ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		b.WriteString(" with IDs=(")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is reports ErrRecordNotFound so callers can match with errors.Is.
func (e *RecordNotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// UnknownAttributeError is returned when a value is assigned to a field
// the target type does not declare.
type UnknownAttributeError struct {
	TypeName  string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q for %s", e.Attribute, e.TypeName)
}

func (e *UnknownAttributeError) Is(target error) bool {
	return target == ErrUnknownAttribute
}

// ArgumentError is returned when an operation is called with arguments it
// cannot work with.
type ArgumentError struct {
	Op      string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// SyntaxError is returned by the query compiler for input outside the
// supported grammar.
type SyntaxError struct {
	Query   string
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed query %q: %s", e.Query, e.Message)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrMalformedQuery
}

// ValidationError describes one failed check on an entity field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
