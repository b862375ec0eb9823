package query

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---
// Keywords are matched case-sensitively against whitespace separated words.

// expr parses: clause [ (and|or) expr ]
type expr struct {
	Clause     *clause `parser:"@@"`
	Combinator string  `parser:"( @( 'and' | 'or' )"`
	Rest       *expr   `parser:"  @@ )?"`
}

// clause parses a field followed by one of the operator forms, tried in
// the order between, is, comparison.
type clause struct {
	Field   string       `parser:"@Word"`
	Between *betweenForm `parser:"( @@"`
	Is      *isForm      `parser:"| @@"`
	Compare *compareForm `parser:"| @@ )"`
}

// betweenForm parses: between low and high
type betweenForm struct {
	Low  string `parser:"'between' @Word"`
	High string `parser:"'and' @Word"`
}

// isForm parses: is [not] null
type isForm struct {
	Is  string `parser:"@'is'"`
	Not bool   `parser:"@'not'? 'null'"`
}

// compareForm parses: op value
type compareForm struct {
	Op    string `parser:"@Word"`
	Value string `parser:"@Word"`
}

var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Word", Pattern: `\S+`},
})

var queryParser = participle.MustBuild[expr](
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)
