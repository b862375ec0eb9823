// Package query compiles the constrained SQL-like expressions accepted by
// Repository.Where into predicate trees and runs them over a record source.
//
// A query is a chain of clauses joined by "and" / "or":
//
//	status = 'active' and age > 21
//	created_at between '2012-01-01' and '2012-12-31' or name is not null
//
// Clauses compare one field against one literal. Comparisons are made on
// the string form of the field value, so numbers compare lexicographically;
// only between switches to integer comparison, and only when the first
// record of the source holds an integer in that field. Chains group to the
// right: "a and b or c" means "a and (b or c)".
//
// Tokens are separated by whitespace only. Quoted literals have their
// spaces turned into underscores before tokenizing and back into spaces
// when compared, so a literal underscore inside a quoted value matches a
// space as well.
package query
