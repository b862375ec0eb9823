package query

import (
	"strings"

	"github.com/guyvdb/drepo/record"
)

// Interpolate substitutes the ? placeholders of template with args, left
// to right. Strings and times are single-quoted (dates as YYYY-MM-DD, other
// times as YYYY-MM-DD HH:MM:SS ±ZZZZ) and nil becomes null. Placeholders
// without an argument are left in place; surplus arguments are ignored.
func Interpolate(template string, args ...any) string {
	if len(args) == 0 {
		return template
	}

	var b strings.Builder
	rest := template
	for _, arg := range args {
		i := strings.IndexByte(rest, '?')
		if i < 0 {
			break
		}
		b.WriteString(rest[:i])
		b.WriteString(record.Literal(arg))
		rest = rest[i+1:]
	}
	b.WriteString(rest)
	return b.String()
}
