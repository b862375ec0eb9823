// Package repo is the entity layer applications use. A Repository fronts
// one record type and runs every operation either against a store of its
// own (local mode) or against the bound model it was given (delegated
// mode). Results always come back as Entity values holding their own copy
// of the record fields.
//
//	people, _ := repo.New(types.Schema{Name: "person", Fields: fields})
//	adults, _ := people.Where("age >= ? and city = ?", 18, "New York")
//
// Bindings are write-once per registry: creating a second Repository for an
// already registered name reuses the first binding.
package repo
