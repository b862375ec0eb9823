package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/guyvdb/drepo/query"
	"github.com/guyvdb/drepo/record"
	"github.com/guyvdb/drepo/repo"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or lookup failure
	ExitCommandError = 2 // Command error (bad config, unknown model, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success writes data as a JSON envelope, or text with one line per
// element of lines.
func (f *OutputFormatter) Success(data any, lines ...string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(f.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

// Error reports err and returns it wrapped with its exit code.
func (f *OutputFormatter) Error(code int, message string, err error) error {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: fmt.Sprintf("%s: %v", message, err)})
	}
	return WrapExitError(code, message, err)
}

// entityLines renders each entity as name=literal pairs, id first and then
// the declared fields in schema order. Timestamps are left out.
func entityLines(r *repo.Repository, entities []*repo.Entity) []string {
	lines := make([]string, 0, len(entities)+1)
	for _, e := range entities {
		parts := []string{record.IdField + "=" + record.Literal(e.Id())}
		for _, f := range r.Type().Schema.Fields {
			if f.Name == record.IdField {
				continue
			}
			parts = append(parts, f.Name+"="+record.Literal(e.Get(f.Name)))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return append(lines, fmt.Sprintf("%d %s record(s)", len(entities), r.Name()))
}

func entityData(entities []*repo.Entity) []record.Attributes {
	data := make([]record.Attributes, 0, len(entities))
	for _, e := range entities {
		data = append(data, e.Attributes())
	}
	return data
}

// treeLines renders a compiled query, children indented under their
// combinator.
func treeLines(n query.Node, depth int) []string {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *query.Combined:
		lines := []string{indent + string(n.Combinator)}
		lines = append(lines, treeLines(n.Left, depth+1)...)
		return append(lines, treeLines(n.Right, depth+1)...)
	}
	return []string{indent + n.String()}
}

// treeData is the JSON form of a compiled query.
func treeData(n query.Node) map[string]any {
	switch n := n.(type) {
	case *query.Combined:
		return map[string]any{
			"combinator": n.Combinator,
			"left":       treeData(n.Left),
			"right":      treeData(n.Right),
		}
	case *query.Predicate:
		return map[string]any{
			"field":    n.Field,
			"op":       n.Op,
			"operands": n.Operands,
		}
	}
	return nil
}
