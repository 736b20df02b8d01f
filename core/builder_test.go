package core

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFor(t *testing.T, method string) (string, []Binder) {
	t.Helper()
	schema := userSchema()
	parsed, err := ParseMethodName(method, &schema.SchemaCore)
	require.NoError(t, err)
	text, binders, err := NewBuilder(schema.Entity).Build(parsed.Predicate, parsed.Sort)
	require.NoError(t, err)
	return text, binders
}

func TestBuildUnconditional(t *testing.T) {
	text, binders := buildFor(t, "findAll")
	assert.Equal(t, "FROM testUser e", text)
	assert.Empty(t, binders)
}

func TestBuildSingleClauseHasNoParentheses(t *testing.T) {
	text, binders := buildFor(t, "findByName")
	assert.Equal(t, "FROM testUser e WHERE e.name = :p0", text)
	assert.Equal(t, []Binder{BindDirect}, binders)
}

func TestBuildAndGroupIsParenthesized(t *testing.T) {
	text, _ := buildFor(t, "findByNameAndEmail")
	assert.Equal(t, "FROM testUser e WHERE (e.name = :p0 AND e.email = :p1)", text)
}

func TestBuildOrGroupsAreNotParenthesized(t *testing.T) {
	text, _ := buildFor(t, "findByNameAndEmailOrAge")
	assert.Equal(t, "FROM testUser e WHERE (e.name = :p0 AND e.email = :p1) OR e.age = :p2", text)
}

func TestBuildOrderByFromNameSuffix(t *testing.T) {
	text, _ := buildFor(t, "findByActiveTrueOrderByNameDescAge")
	assert.Equal(t, "FROM testUser e WHERE e.active = TRUE ORDER BY e.name DESC, e.age ASC", text)
}

func TestBuildBinderOrderFollowsSlots(t *testing.T) {
	text, binders := buildFor(t, "findByNameContainingAndAgeBetween")
	assert.Equal(t, "FROM testUser e WHERE (e.name LIKE :p0 AND e.age BETWEEN :p1 AND :p2)", text)
	assert.Equal(t, []Binder{BindContaining, BindDirect, BindDirect}, binders)
}

func TestBuildCountShape(t *testing.T) {
	schema := userSchema()
	parsed, err := ParseMethodName("countByActiveTrue", &schema.SchemaCore)
	require.NoError(t, err)
	text, _, err := NewBuilder(schema.Entity).BuildCount(parsed.Predicate)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(e) FROM testUser e WHERE e.active = TRUE", text)
}

func TestBuildExistsReusesCountText(t *testing.T) {
	schema := userSchema()
	parsed, err := ParseMethodName("existsByEmail", &schema.SchemaCore)
	require.NoError(t, err)
	builder := NewBuilder(schema.Entity)
	countText, _, err := builder.BuildCount(parsed.Predicate)
	require.NoError(t, err)
	existsText, _, err := builder.BuildExists(parsed.Predicate)
	require.NoError(t, err)
	assert.Equal(t, countText, existsText)
}

func TestBuildDeleteShape(t *testing.T) {
	schema := userSchema()
	parsed, err := ParseMethodName("deleteByActiveFalse", &schema.SchemaCore)
	require.NoError(t, err)
	text, _, err := NewBuilder(schema.Entity).BuildDelete(parsed.Predicate)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM testUser e WHERE e.active = FALSE", text)
}

func TestBuildParameterIndexResetsPerBuild(t *testing.T) {
	schema := userSchema()
	parsed, err := ParseMethodName("findByNameAndEmail", &schema.SchemaCore)
	require.NoError(t, err)
	builder := NewBuilder(schema.Entity)

	first, _, err := builder.Build(parsed.Predicate, Unsorted())
	require.NoError(t, err)
	second, _, err := builder.Build(parsed.Predicate, Unsorted())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildGoldenQueries(t *testing.T) {
	methods := []string{
		"findByName",
		"findByNameAndEmail",
		"findByNameOrEmail",
		"findByAgeBetween",
		"findByNameContainingAndActiveTrue",
		"findByAgeInOrderByAgeDesc",
		"countByEmailIsNotNull",
		"deleteByLoggedIn",
	}

	schema := userSchema()
	var out bytes.Buffer
	for _, method := range methods {
		parsed, err := ParseMethodName(method, &schema.SchemaCore)
		require.NoError(t, err)

		builder := NewBuilder(schema.Entity)
		var text string
		switch parsed.Verb {
		case VerbCount:
			text, _, err = builder.BuildCount(parsed.Predicate)
		case VerbDelete:
			text, _, err = builder.BuildDelete(parsed.Predicate)
		default:
			text, _, err = builder.Build(parsed.Predicate, parsed.Sort)
		}
		require.NoError(t, err)
		fmt.Fprintf(&out, "%s\n  %s\n", method, text)
	}

	g := goldie.New(t)
	g.Assert(t, "derived_queries", out.Bytes())
}
