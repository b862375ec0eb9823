package repo

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
	"github.com/guyvdb/drepo/store"
	"github.com/guyvdb/drepo/types"
)

func personSchema() types.Schema {
	return types.Schema{Name: "person", Fields: []types.Field{
		{Name: "name", Kind: store.KindString, Required: true},
		{Name: "email", Kind: store.KindString, Unique: true},
		{Name: "age", Kind: store.KindInt, Indexed: true},
		{Name: "city", Kind: store.KindString},
		{Name: "status", Kind: store.KindString},
		{Name: "born", Kind: store.KindTime},
	}}
}

func newLocal(t *testing.T) *Repository {
	t.Helper()
	r, err := New(personSchema(), WithRegistry(types.NewRegistry()))
	require.NoError(t, err)
	require.True(t, r.IsLocal())
	return r
}

func newDelegated(t *testing.T, m store.Store) *Repository {
	t.Helper()
	r, err := New(personSchema(), WithRegistry(types.NewRegistry()), WithModel(m))
	require.NoError(t, err)
	require.False(t, r.IsLocal())
	return r
}

// modes builds the same repository local and delegated to every backend.
func modes() map[string]func(t *testing.T) *Repository {
	schema := personSchema()
	return map[string]func(t *testing.T) *Repository{
		"local": newLocal,
		"delegated/memory": func(t *testing.T) *Repository {
			return newDelegated(t, store.NewMemory("person"))
		},
		"delegated/bolt": func(t *testing.T) *Repository {
			db, err := store.OpenBolt(filepath.Join(t.TempDir(), "repo.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			m, err := db.Store(schema.Name, schema.Columns())
			require.NoError(t, err)
			return newDelegated(t, m)
		},
		"delegated/sqlite": func(t *testing.T) *Repository {
			db, err := store.OpenSQL(filepath.Join(t.TempDir(), "repo.sqlite"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			m, err := db.Store(schema.Name, schema.Columns())
			require.NoError(t, err)
			return newDelegated(t, m)
		},
	}
}

func forEachMode(t *testing.T, test func(t *testing.T, r *Repository)) {
	for name, build := range modes() {
		t.Run(name, func(t *testing.T) {
			test(t, build(t))
		})
	}
}

func seed(t *testing.T, r *Repository) {
	t.Helper()
	for _, attrs := range []record.Attributes{
		{"name": "Ann", "age": 34, "city": "New York", "status": "active"},
		{"name": "Bob", "age": 19, "status": "inactive"},
		{"name": "Cy", "age": 52, "city": "Paris", "status": "active"},
		{"name": "Dee", "age": 27, "city": "", "status": "inactive"},
	} {
		e, err := r.Create(attrs)
		require.NoError(t, err)
		require.True(t, e.Persisted(), "%v", e.Errors())
	}
}

func idsOf(entities []*Entity) []int64 {
	out := make([]int64, len(entities))
	for i, e := range entities {
		out[i] = e.Id()
	}
	return out
}

func TestRepository_WhereQuery(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want []int64
	}{
		{"equality", []any{"status = ?", "active"}, []int64{1, 3}},
		{"typed equality", []any{"age = ?", 34}, []int64{1}},
		{"conjunction", []any{"age > ? and city = ?", 21, "Paris"}, []int64{3}},
		{"disjunction", []any{"city = ? or name = ?", "New York", "Dee"}, []int64{1, 4}},
		{"between inclusive", []any{"age between ? and ?", 19, 34}, []int64{1, 2, 4}},
		{"is null", []any{"city is null"}, []int64{2, 4}},
		{"is not null", []any{"city is not null"}, []int64{1, 3}},
		{"no match", []any{"name = ?", "Zed"}, []int64{}},
	}
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)
		for _, tt := range tests {
			found, err := r.Where(tt.args...)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, idsOf(found), tt.name)
		}
	})
}

func TestRepository_WhereFilter(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)

		found, err := r.Where(record.Attributes{"status": "inactive"})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4}, idsOf(found))

		found, err = r.Where(map[string]any{"status": "active", "age": "52"})
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, idsOf(found))

		_, err = r.Where(record.Attributes{"nickname": "x"})
		assert.ErrorIs(t, err, fault.ErrUnknownAttribute)
	})
}

func TestRepository_WhereArguments(t *testing.T) {
	r := newLocal(t)

	_, err := r.Where()
	var argErr *fault.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "where", argErr.Op)

	_, err = r.Where(42)
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)

	_, err = r.Where("age >")
	assert.ErrorIs(t, err, fault.ErrMalformedQuery)

	// an empty string argument leaves no operand
	_, err = r.Where("name = ?", "")
	assert.ErrorIs(t, err, fault.ErrMalformedQuery)
}

func TestRepository_FindMissingNamesId(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)

		e, err := r.Find(3)
		require.NoError(t, err)
		assert.Equal(t, "Cy", e.Get("name"))
		assert.True(t, e.Persisted())

		_, err = r.Find(99)
		require.Error(t, err)
		assert.ErrorIs(t, err, fault.ErrRecordNotFound)
		assert.Contains(t, err.Error(), "ID=99")

		_, err = r.FindMany(1, 99)
		assert.EqualError(t, err, "couldn't find person with IDs=(1, 99)")
	})
}

// brokenModel fails every lookup with a transport error.
type brokenModel struct {
	store.Store
}

func (brokenModel) Find(id int64) (*record.Record, error) {
	return nil, errors.New("connection reset")
}

func TestRepository_FindNormalizesDelegatedErrors(t *testing.T) {
	r := newDelegated(t, brokenModel{store.NewMemory("person")})

	_, err := r.Find(7)
	var notFound *fault.RecordNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []int64{7}, notFound.Ids)
	assert.EqualError(t, err, "couldn't find person with ID=7: connection reset")
}

func TestRepository_FindNormalizesLocalStoreErrors(t *testing.T) {
	reg := types.NewRegistry()
	_, _, err := reg.Register(personSchema(), types.Binding{Model: brokenModel{store.NewMemory("person")}, Mode: types.Local})
	require.NoError(t, err)
	r, err := New(personSchema(), WithRegistry(reg))
	require.NoError(t, err)
	require.True(t, r.IsLocal())

	_, err = r.FindMany(4, 5)
	var notFound *fault.RecordNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []int64{4, 5}, notFound.Ids)
	assert.EqualError(t, err, "couldn't find person with IDs=(4, 5): connection reset")
}

func TestRepository_CreateWithTakenIdGetsNewId(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)

		e, err := r.Create(record.Attributes{"id": 1, "name": "Eve"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), e.Id())

		original, err := r.Find(1)
		require.NoError(t, err)
		assert.Equal(t, "Ann", original.Get("name"))

		free, err := r.Create(record.Attributes{"id": 20, "name": "Fay"})
		require.NoError(t, err)
		assert.Equal(t, int64(20), free.Id())
	})
}

// Two creates racing on a taken id both succeed with different ids.
func TestRepository_ConcurrentCreatesOnTakenId(t *testing.T) {
	r := newLocal(t)
	seed(t, r)
	_, err := r.Create(record.Attributes{"id": 5, "name": "Eve"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([]int64, 2)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := r.Create(record.Attributes{"id": 5, "name": "Racer"})
			assert.NoError(t, err)
			got[i] = e.Id()
		}()
	}
	wg.Wait()

	assert.NotEqual(t, got[0], got[1])
	assert.NotContains(t, got, int64(5))
	assert.ElementsMatch(t, []int64{6, 7}, got)
}

func TestRepository_CreateRejectsUnknownAttribute(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		_, err := r.Create(record.Attributes{"name": "Ann", "nickname": "A"})
		var unknown *fault.UnknownAttributeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "nickname", unknown.Attribute)

		n, err := r.Count()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRepository_CreateInvalidIsNotSaved(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		e, err := r.Create(record.Attributes{"email": "ann@example.com"})
		require.NoError(t, err)
		assert.False(t, e.Persisted())
		require.Len(t, e.Errors(), 1)
		assert.EqualError(t, e.Errors()[0], "name can't be blank")
		assert.ErrorIs(t, e.Errors()[0], fault.ErrValidationFailed)

		_, err = r.Create(record.Attributes{"name": "Ann", "email": "ann@example.com"})
		require.NoError(t, err)
		dup, err := r.Create(record.Attributes{"name": "Ann B", "email": "ann@example.com"})
		require.NoError(t, err)
		assert.False(t, dup.Persisted())
		require.Len(t, dup.Errors(), 1)
		assert.EqualError(t, dup.Errors()[0], "email has already been taken")

		n, err := r.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestRepository_FirstLast(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		first, err := r.First()
		require.NoError(t, err)
		assert.Nil(t, first)

		seed(t, r)
		first, err = r.First()
		require.NoError(t, err)
		assert.Equal(t, "Ann", first.Get("name"))

		last, err := r.Last()
		require.NoError(t, err)
		assert.Equal(t, "Dee", last.Get("name"))
	})
}

func TestRepository_FindOrCreate(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)

		found, err := r.FindOrCreate(record.Attributes{"name": "Cy"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), found.Id())

		created, err := r.FindOrCreate(record.Attributes{"name": "Zed", "age": 40})
		require.NoError(t, err)
		assert.Equal(t, int64(5), created.Id())
		assert.True(t, created.Persisted())

		n, err := r.Count()
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}

func TestRepository_DeleteAllAndExists(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)

		ok, err := r.Exists(2)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, r.DeleteAll())
		all, err := r.All()
		require.NoError(t, err)
		assert.Empty(t, all)

		ok, err = r.Exists(2)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRepository_Finders(t *testing.T) {
	forEachMode(t, func(t *testing.T, r *Repository) {
		seed(t, r)

		e, err := r.FindBy("name", "Cy")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, int64(3), e.Id())

		e, err = r.FindBy("age", "34")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "Ann", e.Get("name"))

		e, err = r.FindBy("name", "Zed")
		require.NoError(t, err)
		assert.Nil(t, e)

		all, err := r.FindAllBy("status", "active")
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, idsOf(all))

		_, err = r.FindBy("nickname", "x")
		assert.ErrorIs(t, err, fault.ErrUnknownAttribute)
		_, err = r.FindAllBy("nickname", "x")
		assert.ErrorIs(t, err, fault.ErrUnknownAttribute)
	})
}

func TestRepository_FindersCoverDeclaredFields(t *testing.T) {
	r := newLocal(t)
	assert.Equal(t, []string{"id", "created_at", "updated_at", "name", "email", "age", "city", "status", "born"}, r.Finders())
}

func TestRepository_BindingIsWriteOnce(t *testing.T) {
	reg := types.NewRegistry()
	first, err := New(personSchema(), WithRegistry(reg))
	require.NoError(t, err)
	_, err = first.Create(record.Attributes{"name": "Ann"})
	require.NoError(t, err)

	model := store.NewMemory("person")
	second, err := New(personSchema(), WithRegistry(reg), WithModel(model))
	require.NoError(t, err)

	assert.True(t, second.IsLocal())
	assert.Same(t, first.Type(), second.Type())

	n, err := second.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := model.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepository_DelegatedWrapIsStrict(t *testing.T) {
	model := store.NewMemory("person")
	_, err := model.Create(record.Attributes{"name": "Ann", "nickname": "A"})
	require.NoError(t, err)

	r := newDelegated(t, model)
	_, err = r.All()
	assert.ErrorIs(t, err, fault.ErrUnknownAttribute)
}

func TestRepository_DelegatedMatchesLocal(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	queries := [][]any{
		{"status = ?", "inactive"},
		{"status = ? and age = ?", "active", 52},
		{"age = ?", "034"},
	}

	for name, build := range modes() {
		if name == "local" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			r := build(t)
			seed(t, r)
			for _, q := range queries {
				want, err := local.Where(q...)
				require.NoError(t, err)
				got, err := r.Where(q...)
				require.NoError(t, err)
				assert.Equal(t, idsOf(want), idsOf(got), "%v", q)
			}
		})
	}
}
