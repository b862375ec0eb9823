package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/guyvdb/drepo/store"
)

func TestSchemaImplicitFields(t *testing.T) {
	s := personSchema()
	names := []string{}
	for _, f := range s.AllFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "created_at", "updated_at", "name", "email", "age"}, names)

	f, ok := s.Field("id")
	require.True(t, ok)
	assert.Equal(t, store.KindInt, f.Kind)
	assert.True(t, s.Declares("created_at"))
	assert.False(t, s.Declares("nickname"))
}

func TestSchemaColumns(t *testing.T) {
	s := personSchema()
	s.Fields = append(s.Fields, Field{Name: "id", Kind: store.KindInt})

	assert.Equal(t, []store.Column{
		{Name: "name", Kind: store.KindString},
		{Name: "email", Kind: store.KindString, Index: store.UniqueIndex},
		{Name: "age", Kind: store.KindInt, Index: store.NonUniqueIndex},
	}, s.Columns())
}

func TestSchemaFromYAML(t *testing.T) {
	src := `
name: person
fields:
  - {name: name, kind: string, required: true}
  - {name: born, kind: date}
`
	var s Schema
	require.NoError(t, yaml.Unmarshal([]byte(src), &s))
	require.NoError(t, s.Validate())
	assert.Equal(t, "person", s.Name)
	assert.Equal(t, store.KindString, s.Fields[0].Kind)
	assert.True(t, s.Fields[0].Required)
	assert.Equal(t, store.KindTime, s.Fields[1].Kind)
}
