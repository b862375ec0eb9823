package query

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/guyvdb/drepo/record"
)

// Source supplies the snapshot a query runs against.
type Source interface {
	All() ([]*record.Record, error)
}

// Execute compiles raw and runs it against src.
func Execute(src Source, raw string) ([]*record.Record, error) {
	n, err := Compile(raw)
	if err != nil {
		return nil, err
	}
	return Run(src, n)
}

// Run evaluates n against src. A single clause returns matches in source
// order. Combined clauses each run against the full source and the joined
// result is ordered by id.
func Run(src Source, n Node) ([]*record.Record, error) {
	switch n := n.(type) {
	case *Predicate:
		rows, err := src.All()
		if err != nil {
			return nil, err
		}
		return n.Filter(rows), nil
	case *Combined:
		left, err := Run(src, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Run(src, n.Right)
		if err != nil {
			return nil, err
		}
		return combine(n.Combinator, left, right), nil
	}
	return nil, fmt.Errorf("unsupported node %T", n)
}

func combine(c Combinator, left, right []*record.Record) []*record.Record {
	byId := make(map[uint64]*record.Record, len(left)+len(right))
	lb, rb := roaring64.New(), roaring64.New()
	for _, r := range left {
		id := uint64(r.Id())
		lb.Add(id)
		byId[id] = r
	}
	for _, r := range right {
		id := uint64(r.Id())
		rb.Add(id)
		if _, seen := byId[id]; !seen {
			byId[id] = r
		}
	}

	var set *roaring64.Bitmap
	if c == Or {
		set = roaring64.Or(lb, rb)
	} else {
		set = roaring64.And(lb, rb)
	}

	results := make([]*record.Record, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		results = append(results, byId[it.Next()])
	}
	return results
}

// Filter returns the rows matching p, in their original order.
func (p *Predicate) Filter(rows []*record.Record) []*record.Record {
	numeric := p.Op == OpBetween && len(rows) > 0 && record.IsInteger(rows[0].Get(p.Field))

	results := make([]*record.Record, 0)
	for _, r := range rows {
		if p.match(r.Get(p.Field), numeric) {
			results = append(results, r)
		}
	}
	return results
}

func (p *Predicate) match(v any, numeric bool) bool {
	switch p.Op {
	case OpIs:
		return record.Blank(v)
	case OpIsNot:
		return !record.Blank(v)
	}

	if v == nil {
		return false
	}

	if p.Op == OpBetween {
		if numeric {
			n, ok := record.ToInt64(v)
			if !ok {
				n = record.LeadingInt(record.String(v))
			}
			return n >= record.LeadingInt(p.Operands[0]) && n <= record.LeadingInt(p.Operands[1])
		}
		s := record.String(v)
		return s >= p.Operands[0] && s <= p.Operands[1]
	}

	s, want := record.String(v), p.Operands[0]
	switch p.Op {
	case OpEq:
		return s == want
	case OpNe:
		return s != want
	case OpGt:
		return s > want
	case OpGe:
		return s >= want
	case OpLt:
		return s < want
	case OpLe:
		return s <= want
	}
	return false
}

// EqualityFilter returns the key/value filter equivalent to n when n is a
// conjunction of == clauses, as used by stores that only support equality.
func EqualityFilter(n Node) (record.Attributes, bool) {
	filter := record.Attributes{}
	var walk func(n Node) bool
	walk = func(n Node) bool {
		switch n := n.(type) {
		case *Predicate:
			if n.Op != OpEq {
				return false
			}
			if prev, dup := filter[n.Field]; dup && prev != n.Operands[0] {
				return false
			}
			filter[n.Field] = n.Operands[0]
			return true
		case *Combined:
			return n.Combinator == And && walk(n.Left) && walk(n.Right)
		}
		return false
	}
	if !walk(n) {
		return nil, false
	}
	return filter, true
}
