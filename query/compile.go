package query

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/guyvdb/drepo/fault"
)

type Operator string

const (
	OpEq      Operator = "=="
	OpNe      Operator = "!="
	OpGt      Operator = ">"
	OpGe      Operator = ">="
	OpLt      Operator = "<"
	OpLe      Operator = "<="
	OpBetween Operator = "between"
	OpIs      Operator = "is"
	OpIsNot   Operator = "is not"
)

// Combinator joins two clauses: or is a union, and an intersection.
type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

var comparisons = map[string]Operator{
	"=":  OpEq,
	"==": OpEq,
	"!=": OpNe,
	"<>": OpNe,
	">":  OpGt,
	">=": OpGe,
	"<":  OpLt,
	"<=": OpLe,
}

// Node is a compiled query: a *Predicate leaf or a *Combined pair.
type Node interface {
	String() string
	node()
}

// Predicate is one clause. Operands hold the literals with quotes removed
// and underscores turned back into spaces; between has two, is none.
type Predicate struct {
	Field    string
	Op       Operator
	Operands []string
}

// Combined joins the results of Left and Right.
type Combined struct {
	Combinator Combinator
	Left       Node
	Right      Node
}

func (*Predicate) node() {}
func (*Combined) node()  {}

func (p *Predicate) String() string {
	switch p.Op {
	case OpIs:
		return p.Field + " is null"
	case OpIsNot:
		return p.Field + " is not null"
	case OpBetween:
		return fmt.Sprintf("%s between %s and %s", p.Field, quoteOperand(p.Operands[0]), quoteOperand(p.Operands[1]))
	}
	return fmt.Sprintf("%s %s %s", p.Field, p.Op, quoteOperand(p.Operands[0]))
}

func (c *Combined) String() string {
	return c.Left.String() + " " + string(c.Combinator) + " " + c.Right.String()
}

func quoteOperand(s string) string {
	if s == "" || strings.ContainsAny(s, " \t") {
		return "'" + s + "'"
	}
	return s
}

var quotedLiteral = regexp.MustCompile(`'[^']*'|"[^"]*"`)

var literalSanitizer = strings.NewReplacer(" ", "_", "'", "", `"`, "")

// Sanitize turns every quoted literal into a single word: spaces become
// underscores and the quotes are dropped.
func Sanitize(raw string) string {
	return quotedLiteral.ReplaceAllStringFunc(raw, literalSanitizer.Replace)
}

// restore undoes the space substitution of Sanitize.
func restore(word string) string {
	return strings.ReplaceAll(word, "_", " ")
}

// Compile parses raw into a predicate tree.
func Compile(raw string) (Node, error) {
	sanitized := Sanitize(raw)
	slog.Debug("query.Compile() - compile", "query", raw, "sanitized", sanitized)

	ast, err := queryParser.ParseString("", sanitized)
	if err != nil {
		return nil, &fault.SyntaxError{Query: raw, Message: err.Error()}
	}
	return build(raw, ast)
}

// Split compiles raw and returns its leading clause, the combinator that
// follows it (empty for a single clause) and the remaining query text.
func Split(raw string) (Combinator, *Predicate, string, error) {
	n, err := Compile(raw)
	if err != nil {
		return "", nil, "", err
	}
	switch n := n.(type) {
	case *Combined:
		return n.Combinator, n.Left.(*Predicate), n.Right.String(), nil
	case *Predicate:
		return "", n, "", nil
	}
	return "", nil, "", nil
}

func build(raw string, e *expr) (Node, error) {
	leaf, err := buildClause(raw, e.Clause)
	if err != nil {
		return nil, err
	}
	if e.Rest == nil {
		return leaf, nil
	}
	rest, err := build(raw, e.Rest)
	if err != nil {
		return nil, err
	}
	return &Combined{Combinator: Combinator(e.Combinator), Left: leaf, Right: rest}, nil
}

func buildClause(raw string, c *clause) (*Predicate, error) {
	switch {
	case c.Between != nil:
		return &Predicate{
			Field:    c.Field,
			Op:       OpBetween,
			Operands: []string{restore(c.Between.Low), restore(c.Between.High)},
		}, nil
	case c.Is != nil:
		op := OpIs
		if c.Is.Not {
			op = OpIsNot
		}
		return &Predicate{Field: c.Field, Op: op}, nil
	case c.Compare != nil:
		op, ok := comparisons[c.Compare.Op]
		if !ok {
			return nil, &fault.SyntaxError{Query: raw, Message: fmt.Sprintf("unsupported operator %q", c.Compare.Op)}
		}
		return &Predicate{Field: c.Field, Op: op, Operands: []string{restore(c.Compare.Value)}}, nil
	}
	return nil, &fault.SyntaxError{Query: raw, Message: "empty clause"}
}
