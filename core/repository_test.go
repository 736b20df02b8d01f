package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRepository(driver *fakeDriver, descriptors ...MethodDescriptor) *Repository[testUser] {
	return NewRepository(userSchema(), NewProvider(driver), descriptors)
}

func TestInvokeListMethod(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{
		{"id": "u-1", "name": "alice", "email": "a@x.io"},
		{"id": "u-2", "name": "alice", "email": "a2@x.io"},
	}
	repo := userRepository(driver, MethodDescriptor{Name: "findByNameAndEmail", Returns: ReturnList})

	result, err := repo.Invoke(context.Background(), "findByNameAndEmail", "alice", "a@x.io")
	require.NoError(t, err)

	users, ok := result.([]testUser)
	require.True(t, ok)
	require.Len(t, users, 2)
	assert.Equal(t, "u-1", users[0].ID)

	require.Len(t, driver.pool.statements, 1)
	stmt := driver.pool.statements[0]
	assert.Equal(t, "FROM testUser e WHERE (e.name = :p0 AND e.email = :p1)", stmt.Text)
	assert.Equal(t, ShapeSelect, stmt.Shape)
	assert.Equal(t, []Param{
		{Name: "p0", Value: "alice"},
		{Name: "p1", Value: "a@x.io"},
	}, driver.pool.params[0])
}

func TestInvokeAppliesBinders(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByNameContaining", Returns: ReturnList})

	_, err := repo.Invoke(context.Background(), "findByNameContaining", "smi")
	require.NoError(t, err)

	assert.Equal(t, []Param{{Name: "p0", Value: "%smi%"}}, driver.pool.params[0])
}

func TestInvokeEntityShape(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"id": "u-1", "name": "alice"}}
	repo := userRepository(driver,
		MethodDescriptor{Name: "findByEmail", Returns: ReturnEntity},
	)

	result, err := repo.Invoke(context.Background(), "findByEmail", "a@x.io")
	require.NoError(t, err)

	user, ok := result.(*testUser)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Name)
}

func TestInvokeEntityShapeNotFound(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByEmail", Returns: ReturnEntity})

	_, err := repo.Invoke(context.Background(), "findByEmail", "gone@x.io")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvokeOptionalEntityShape(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByEmail", Returns: ReturnOptionalEntity})

	result, err := repo.Invoke(context.Background(), "findByEmail", "gone@x.io")
	require.NoError(t, err)
	assert.Nil(t, result.(*testUser))
}

func TestInvokePageShape(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rowsFn = func(stmt *Statement, params []Param) ([]Row, error) {
		if stmt.Shape == ShapeCount {
			return []Row{{"count": int64(5)}}, nil
		}
		return []Row{{"id": "u-3"}, {"id": "u-4"}}, nil
	}
	repo := userRepository(driver, MethodDescriptor{Name: "findByActiveTrue", Returns: ReturnPage})

	result, err := repo.Invoke(context.Background(), "findByActiveTrue", Pageable{Page: 1, Size: 2})
	require.NoError(t, err)

	page, ok := result.(Page[testUser])
	require.True(t, ok)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages())
	assert.Equal(t, 1, page.Number)
	require.Len(t, page.Content, 2)

	// primary statement carries the page window; the count statement
	// reuses the compiled count text
	require.Len(t, driver.pool.statements, 2)
	assert.Equal(t, 2, driver.pool.statements[0].Limit)
	assert.Equal(t, 2, driver.pool.statements[0].Offset)
	assert.Equal(t, ShapeCount, driver.pool.statements[1].Shape)
	assert.Equal(t, "SELECT COUNT(e) FROM testUser e WHERE e.active = TRUE", driver.pool.statements[1].Text)
}

func TestInvokePageRequiresPageable(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByActiveTrue", Returns: ReturnPage})

	_, err := repo.Invoke(context.Background(), "findByActiveTrue")
	assert.Error(t, err)
}

func TestInvokeSliceShape(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"id": "u-1"}, {"id": "u-2"}, {"id": "u-3"}}
	repo := userRepository(driver, MethodDescriptor{Name: "findByActiveTrue", Returns: ReturnSlice})

	result, err := repo.Invoke(context.Background(), "findByActiveTrue", Pageable{Page: 0, Size: 2})
	require.NoError(t, err)

	slice, ok := result.(Slice[testUser])
	require.True(t, ok)
	assert.True(t, slice.HasNext)
	assert.Len(t, slice.Content, 2)

	// one extra row is fetched instead of running a count query
	require.Len(t, driver.pool.statements, 1)
	assert.Equal(t, 3, driver.pool.statements[0].Limit)
}

func TestInvokeSliceWithoutNextPage(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"id": "u-1"}}
	repo := userRepository(driver, MethodDescriptor{Name: "findByActiveTrue", Returns: ReturnSlice})

	result, err := repo.Invoke(context.Background(), "findByActiveTrue", Pageable{Page: 0, Size: 2})
	require.NoError(t, err)

	slice := result.(Slice[testUser])
	assert.False(t, slice.HasNext)
	assert.Len(t, slice.Content, 1)
}

func TestInvokeBoolShape(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"count": int64(1)}}
	repo := userRepository(driver, MethodDescriptor{Name: "existsByEmail"})

	result, err := repo.Invoke(context.Background(), "existsByEmail", "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestInvokeCountShape(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"count": int64(7)}}
	repo := userRepository(driver, MethodDescriptor{Name: "countByActiveTrue"})

	result, err := repo.Invoke(context.Background(), "countByActiveTrue")
	require.NoError(t, err)
	assert.Equal(t, int64(7), result)
}

func TestInvokeModifyingRunsInWritableUnit(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.affected = 3
	repo := userRepository(driver, MethodDescriptor{Name: "deleteByActiveFalse"})

	result, err := repo.Invoke(context.Background(), "deleteByActiveFalse")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result)

	require.Len(t, driver.txs, 1)
	assert.True(t, driver.txs[0].committed)
	require.Len(t, driver.sessions, 1)
	assert.Equal(t, ShapeDelete, driver.sessions[0].statements[0].Shape)
}

func TestInvokeModifyingUnitReturnsNil(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "deleteByActiveFalse", Returns: ReturnUnit})

	result, err := repo.Invoke(context.Background(), "deleteByActiveFalse")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInvokeDynamicSortRewritesOrderBy(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByActiveTrueOrderByName", Returns: ReturnList})

	_, err := repo.Invoke(context.Background(), "findByActiveTrueOrderByName",
		SortBy(Order{Path: "age", Direction: Descending}))
	require.NoError(t, err)

	stmt := driver.pool.statements[0]
	assert.Equal(t, "FROM testUser e WHERE e.active = TRUE ORDER BY e.age DESC", stmt.Text)
	assert.Equal(t, SortBy(Order{Path: "age", Direction: Descending}), stmt.Sort)
}

func TestInvokeArgumentCountMismatch(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByNameAndEmail", Returns: ReturnList})

	_, err := repo.Invoke(context.Background(), "findByNameAndEmail", "alice")
	assert.ErrorIs(t, err, ErrArgumentCount)
}

func TestInvokeUnknownMethod(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	_, err := repo.Invoke(context.Background(), "findByName", "alice")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestInvokeCompileErrorIsPermanent(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{Name: "findByNickname", Returns: ReturnList})

	_, err := repo.Invoke(context.Background(), "findByNickname", "x")
	assert.ErrorIs(t, err, ErrUnknownProperty)

	_, err = repo.Invoke(context.Background(), "findByNickname", "x")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestInvokeAnnotatedNamedParameters(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{
		Name:    "searchActive",
		Returns: ReturnList,
		Query: &QueryOptions{
			Text:   "SELECT * FROM users WHERE active = :active AND age > :min",
			Native: true,
		},
	})

	_, err := repo.Invoke(context.Background(), "searchActive", true, 21)
	require.NoError(t, err)

	stmt := driver.pool.statements[0]
	assert.True(t, stmt.Annotated)
	assert.True(t, stmt.Native)
	assert.Equal(t, []Param{
		{Name: "active", Value: true},
		{Name: "min", Value: 21},
	}, driver.pool.params[0])
}

func TestInvokeAnnotatedPositionalParameters(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver, MethodDescriptor{
		Name:    "byNameAndAge",
		Returns: ReturnList,
		Query: &QueryOptions{
			Text:   "SELECT * FROM users WHERE name = ?1 AND age > ?2",
			Native: true,
		},
	})

	_, err := repo.Invoke(context.Background(), "byNameAndAge", "alice", 21)
	require.NoError(t, err)

	assert.Equal(t, []Param{
		{Name: "1", Value: "alice"},
		{Name: "2", Value: 21},
	}, driver.pool.params[0])
}

func TestSaveInsertsNewEntityAndStampsTimestamps(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	user := &testUser{Name: "alice"}
	require.NoError(t, repo.Save(context.Background(), user))

	require.Len(t, driver.sessions, 1)
	require.Len(t, driver.sessions[0].inserted, 1)
	assert.Same(t, user, driver.sessions[0].inserted[0])
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())
	assert.True(t, driver.txs[0].committed)
}

func TestSaveUpdatesExistingEntity(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	user := &testUser{ID: "u-1", Name: "alice"}
	require.NoError(t, repo.Save(context.Background(), user))

	session := driver.sessions[0]
	assert.Empty(t, session.inserted)
	require.Len(t, session.updated, 1)

	changes := session.updated[0]
	assert.NotContains(t, changes, "id")
	assert.NotContains(t, changes, "createdAt", "update must not touch the creation stamp")
	assert.Contains(t, changes, "updatedAt")
	assert.Equal(t, "alice", changes["name"])
	assert.Equal(t, []Param{{Name: "p0", Value: "u-1"}}, session.params[0])
	assert.False(t, user.UpdatedAt.IsZero())
	assert.True(t, user.CreatedAt.IsZero(), "update must not stamp the creation marker")
}

func TestSaveUpdatePreservesCreationStampOfDetachedEntity(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	// A detached entity arrives without its stored creation stamp; the
	// update must not overwrite the column with the zero value.
	user := &testUser{ID: "u-7", Name: "bob"}
	require.NoError(t, repo.Save(context.Background(), user))

	changes := driver.sessions[0].updated[0]
	assert.NotContains(t, changes, "createdAt")
}

func TestSaveRunsPersistHooks(t *testing.T) {
	driver := newFakeDriver()
	schema := userSchema()
	var calls []string
	schema.RegisterPrePersist(func(u *testUser) error {
		calls = append(calls, "pre")
		return nil
	})
	schema.RegisterPostPersist(func(u *testUser) error {
		calls = append(calls, "post")
		return nil
	})
	repo := NewRepository(schema, NewProvider(driver), nil)

	require.NoError(t, repo.Save(context.Background(), &testUser{Name: "alice"}))
	assert.Equal(t, []string{"pre", "post"}, calls)
}

func TestSaveAllSharesOneUnit(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	users := []*testUser{{Name: "a"}, {Name: "b"}}
	require.NoError(t, repo.SaveAll(context.Background(), users))

	require.Len(t, driver.txs, 1)
	assert.Len(t, driver.sessions[0].inserted, 2)
}

func TestFindByID(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"id": "u-1", "name": "alice"}}
	repo := userRepository(driver)

	user, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	stmt := driver.pool.statements[0]
	assert.Equal(t, "FROM testUser e WHERE e.id = :p0", stmt.Text)
	assert.Equal(t, 1, stmt.Limit)
}

func TestFindByIDNotFound(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindAllWithSort(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"id": "u-1"}, {"id": "u-2"}}
	repo := userRepository(driver)

	users, err := repo.FindAll(context.Background(), SortBy(Order{Path: "name"}))
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "FROM testUser e ORDER BY e.name ASC", driver.pool.statements[0].Text)
}

func TestCountAndExists(t *testing.T) {
	driver := newFakeDriver()
	driver.pool.rows = []Row{{"count": int64(2)}}
	repo := userRepository(driver)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	exists, err := repo.ExistsByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteByID(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	require.NoError(t, repo.DeleteByID(context.Background(), "u-1"))

	session := driver.sessions[0]
	assert.Equal(t, "DELETE FROM testUser e WHERE e.id = :p0", session.statements[0].Text)
	assert.True(t, driver.txs[0].committed)
}

func TestDeleteAll(t *testing.T) {
	driver := newFakeDriver()
	repo := userRepository(driver)

	require.NoError(t, repo.DeleteAll(context.Background()))
	assert.Equal(t, "DELETE FROM testUser e", driver.sessions[0].statements[0].Text)
}
