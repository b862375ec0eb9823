package repo

import (
	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
)

const (
	msgBlank = "can't be blank"
	msgTaken = "has already been taken"
)

// validate checks required fields for presence and unique fields against
// the other records of the bound store.
func (e *Entity) validate() []error {
	var errs []error
	for _, f := range e.repo.typ.Schema.Fields {
		v := e.attrs[f.Name]
		if f.Required && record.Blank(v) {
			errs = append(errs, &fault.ValidationError{Field: f.Name, Message: msgBlank})
			continue
		}
		if !f.Unique || record.Blank(v) {
			continue
		}
		others, err := e.repo.model().Where(record.Attributes{f.Name: v})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, o := range others {
			if o.Id() != e.Id() {
				errs = append(errs, &fault.ValidationError{Field: f.Name, Message: msgTaken})
				break
			}
		}
	}
	return errs
}
