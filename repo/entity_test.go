package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
	"github.com/guyvdb/drepo/store"
	"github.com/guyvdb/drepo/types"
)

func TestEntity_SetIsStrict(t *testing.T) {
	r := newLocal(t)
	e, err := r.Build(record.Attributes{"name": "Ann"})
	require.NoError(t, err)

	require.NoError(t, e.Set("age", "41"))
	assert.Equal(t, int64(41), e.Get("age"))

	err = e.Set("nickname", "A")
	assert.ErrorIs(t, err, fault.ErrUnknownAttribute)

	err = e.Set("age", "forty")
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
	assert.Equal(t, int64(41), e.Get("age"))
}

func TestEntity_SetAttributesAssignsAllOrNothing(t *testing.T) {
	r := newLocal(t)
	e, err := r.Build(record.Attributes{"name": "Ann", "age": 34})
	require.NoError(t, err)

	err = e.SetAttributes(record.Attributes{"name": "Zed", "nickname": "Z"})
	assert.ErrorIs(t, err, fault.ErrUnknownAttribute)
	assert.Equal(t, "Ann", e.Get("name"))

	err = e.SetAttributes(record.Attributes{"name": "Zed", "age": "old"})
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
	assert.Equal(t, "Ann", e.Get("name"))
}

func TestEntity_BuildRoundTripsAttributes(t *testing.T) {
	born := time.Date(1990, 7, 14, 0, 0, 0, 0, time.UTC)
	r := newLocal(t)
	attrs := record.Attributes{"name": "Ann", "age": int64(34), "city": "Paris", "born": born}

	e, err := r.Build(attrs)
	require.NoError(t, err)
	assert.Equal(t, attrs, e.Attributes())
	assert.False(t, e.Persisted())
	assert.Zero(t, e.Id())

	// the returned map is a copy
	e.Attributes()["name"] = "Bob"
	assert.Equal(t, "Ann", e.Get("name"))
}

func TestEntity_CreateStampsTimes(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	r, err := New(personSchema(), WithRegistry(types.NewRegistry()), WithStoreOptions(store.WithClock(func() time.Time { return now })))
	require.NoError(t, err)

	e, err := r.Create(record.Attributes{"name": "Ann"})
	require.NoError(t, err)
	assert.True(t, record.Equal(now, e.Get(record.CreatedAtField)))
	assert.True(t, record.Equal(now, e.Get(record.UpdatedAtField)))
}

func TestEntity_Save(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		e, err := r.Build(record.Attributes{"name": "Ann", "age": 34})
		require.NoError(t, err)

		ok, err := e.Save()
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, e.Persisted())
		assert.Equal(t, int64(1), e.Id())

		require.NoError(t, e.Set("age", 35))
		ok, err = e.Persist()
		require.NoError(t, err)
		require.True(t, ok)

		stored, err := r.Find(1)
		require.NoError(t, err)
		assert.Equal(t, int64(35), stored.Get("age"))

		n, err := r.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestEntity_SaveInvalid(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		e, err := r.Build(record.Attributes{"age": 34})
		require.NoError(t, err)

		ok, err := e.Save()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, e.Persisted())
		require.Len(t, e.Errors(), 1)
		assert.EqualError(t, e.Errors()[0], "name can't be blank")

		n, err := r.Count()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestEntity_UniqueIgnoresItself(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		e, err := r.Create(record.Attributes{"name": "Ann", "email": "ann@example.com"})
		require.NoError(t, err)
		require.True(t, e.Persisted())

		assert.True(t, e.Valid())
		ok, err := e.Save()
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestEntity_ConvertByKey(t *testing.T) {
	model := store.NewMemory("person")
	_, err := model.Create(record.Attributes{"name": "Ann", "email": "ann@example.com"})
	require.NoError(t, err)
	r := newDelegated(t, model)

	e, err := r.Build(record.Attributes{"name": "Ann Smith", "email": "ann@example.com"})
	require.NoError(t, err)
	require.NoError(t, e.Convert("email"))
	assert.Equal(t, int64(1), e.Id())
	assert.True(t, e.Persisted())

	stored, err := model.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "Ann Smith", stored.Get("name"))

	other, err := r.Build(record.Attributes{"name": "Bob", "email": "bob@example.com"})
	require.NoError(t, err)
	require.NoError(t, other.Convert("email"))
	assert.Equal(t, int64(2), other.Id())

	assert.ErrorIs(t, e.Convert("nickname"), fault.ErrUnknownAttribute)
}

func TestEntity_UpdateAttributesKeepsId(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)
		e, err := r.Find(2)
		require.NoError(t, err)

		ok, err := e.UpdateAttributes(record.Attributes{"id": 99, "city": "Rome"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(2), e.Id())
		assert.Equal(t, "Rome", e.Get("city"))

		stored, err := r.Find(2)
		require.NoError(t, err)
		assert.Equal(t, "Rome", stored.Get("city"))
		assert.Equal(t, "Bob", stored.Get("name"))

		ok, err = e.UpdateAttributes(record.Attributes{"name": ""})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NotEmpty(t, e.Errors())

		stored, err = r.Find(2)
		require.NoError(t, err)
		assert.Equal(t, "Bob", stored.Get("name"))
	})
}

func TestEntity_UpdateAttributesOfRemovedRecord(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)
		e, err := r.Find(3)
		require.NoError(t, err)
		require.NoError(t, r.DeleteAll())

		_, err = e.UpdateAttributes(record.Attributes{"city": "Rome"})
		var notFound *fault.RecordNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, []int64{3}, notFound.Ids)
	})
}

func TestEntity_UpdateAttributesRejectsUnknown(t *testing.T) {
	r := newLocal(t)
	seed(t, r)
	e, err := r.Find(1)
	require.NoError(t, err)

	_, err = e.UpdateAttributes(record.Attributes{"nickname": "A"})
	assert.ErrorIs(t, err, fault.ErrUnknownAttribute)
}

func TestEntity_ReloadAndDelete(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)
		e, err := r.Find(1)
		require.NoError(t, err)

		require.NoError(t, e.Set("name", "Changed"))
		require.NoError(t, e.Reload())
		assert.Equal(t, "Ann", e.Get("name"))

		require.NoError(t, e.Delete())
		assert.False(t, e.Persisted())
		ok, err := r.Exists(1)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, e.Reload(), fault.ErrRecordNotFound)
	})
}

func TestEntity_RepositoryBackReference(t *testing.T) {
	r := newLocal(t)
	e, err := r.Build(nil)
	require.NoError(t, err)
	assert.Same(t, r, e.Repository())
}

func TestEntity_ReloadWithoutId(t *testing.T) {
	r := newLocal(t)
	e, err := r.Build(record.Attributes{"name": "Ann"})
	require.NoError(t, err)
	assert.ErrorIs(t, e.Reload(), fault.ErrIdIsNil)
}

func TestEntity_SaveNewWithTakenIdGetsNewId(t *testing.T) {
	r := newLocal(t)
	ann, err := r.Create(record.Attributes{"name": "Ann"})
	require.NoError(t, err)
	require.Equal(t, int64(1), ann.Id())

	bob, err := r.Build(record.Attributes{"id": 1, "name": "Bob"})
	require.NoError(t, err)
	ok, err := bob.Save()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), bob.Id())

	stored, err := r.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", stored.Get("name"))

	// a free id is kept
	cy, err := r.Build(record.Attributes{"id": 7, "name": "Cy"})
	require.NoError(t, err)
	ok, err = cy.Persist()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), cy.Id())
}
