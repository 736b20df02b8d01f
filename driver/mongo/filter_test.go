package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clroot/seance/core"
)

func singleClause(op core.Operator, path string) *core.Predicate {
	return &core.Predicate{Groups: []core.Group{{Clauses: []core.Clause{
		{Path: path, Operator: op, Slot: 0},
	}}}}
}

func filterFor(t *testing.T, predicate *core.Predicate, params ...core.Param) bson.M {
	t.Helper()
	filter, err := buildFilter(predicate, params)
	require.NoError(t, err)
	return filter
}

func TestBuildFilterEmptyPredicate(t *testing.T) {
	assert.Equal(t, bson.M{}, filterFor(t, nil))
	assert.Equal(t, bson.M{}, filterFor(t, &core.Predicate{}))
}

func TestBuildFilterEquality(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpEquals, "name"), core.Param{Name: "p0", Value: "alice"})
	assert.Equal(t, bson.M{"name": "alice"}, filter)
}

func TestBuildFilterComparisons(t *testing.T) {
	cases := []struct {
		op       core.Operator
		expected bson.M
	}{
		{core.OpNotEquals, bson.M{"age": bson.M{"$ne": 30}}},
		{core.OpLessThan, bson.M{"age": bson.M{"$lt": 30}}},
		{core.OpLessOrEqual, bson.M{"age": bson.M{"$lte": 30}}},
		{core.OpGreaterThan, bson.M{"age": bson.M{"$gt": 30}}},
		{core.OpGreaterOrEqual, bson.M{"age": bson.M{"$gte": 30}}},
		{core.OpBefore, bson.M{"age": bson.M{"$lt": 30}}},
		{core.OpAfter, bson.M{"age": bson.M{"$gt": 30}}},
	}
	for _, tc := range cases {
		t.Run(string(tc.op), func(t *testing.T) {
			filter := filterFor(t, singleClause(tc.op, "age"), core.Param{Name: "p0", Value: 30})
			assert.Equal(t, tc.expected, filter)
		})
	}
}

func TestBuildFilterBetween(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpBetween, "age"),
		core.Param{Name: "p0", Value: 18},
		core.Param{Name: "p1", Value: 65},
	)
	assert.Equal(t, bson.M{"age": bson.M{"$gte": 18, "$lte": 65}}, filter)
}

func TestBuildFilterIn(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpIn, "age"), core.Param{Name: "p0", Value: []int{18, 21}})
	assert.Equal(t, bson.M{"age": bson.M{"$in": bson.A{18, 21}}}, filter)

	filter = filterFor(t, singleClause(core.OpNotIn, "age"), core.Param{Name: "p0", Value: []int{18}})
	assert.Equal(t, bson.M{"age": bson.M{"$nin": bson.A{18}}}, filter)

	// scalar values are wrapped
	filter = filterFor(t, singleClause(core.OpIn, "age"), core.Param{Name: "p0", Value: 18})
	assert.Equal(t, bson.M{"age": bson.M{"$in": bson.A{18}}}, filter)
}

func TestBuildFilterLikePatterns(t *testing.T) {
	// the binder has already wrapped the argument in wildcards
	filter := filterFor(t, singleClause(core.OpContaining, "name"), core.Param{Name: "p0", Value: "%ali%"})
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: "^.*ali.*$"}}, filter)

	filter = filterFor(t, singleClause(core.OpStartingWith, "name"), core.Param{Name: "p0", Value: "ali%"})
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: "^ali.*$"}}, filter)

	filter = filterFor(t, singleClause(core.OpEndingWith, "name"), core.Param{Name: "p0", Value: "%ali"})
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: "^.*ali$"}}, filter)
}

func TestBuildFilterLikeQuotesRegexMetacharacters(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpLike, "name"), core.Param{Name: "p0", Value: "a.b_c%"})
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: `^a\.b.c.*$`}}, filter)
}

func TestBuildFilterNotLike(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpNotContaining, "name"), core.Param{Name: "p0", Value: "%ali%"})
	assert.Equal(t, bson.M{"name": bson.M{"$not": primitive.Regex{Pattern: "^.*ali.*$"}}}, filter)
}

func TestBuildFilterNullAndBooleanChecks(t *testing.T) {
	assert.Equal(t, bson.M{"email": bson.M{"$eq": nil}}, filterFor(t, singleClause(core.OpIsNull, "email")))
	assert.Equal(t, bson.M{"email": bson.M{"$ne": nil}}, filterFor(t, singleClause(core.OpIsNotNull, "email")))
	assert.Equal(t, bson.M{"active": true}, filterFor(t, singleClause(core.OpTrue, "active")))
	assert.Equal(t, bson.M{"active": false}, filterFor(t, singleClause(core.OpFalse, "active")))
}

func TestBuildFilterExistsUsesNativeOperator(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpExists, "email"))
	assert.Equal(t, bson.M{"email": bson.M{"$exists": true}}, filter)
}

func TestBuildFilterRegexPassesPatternThrough(t *testing.T) {
	filter := filterFor(t, singleClause(core.OpRegex, "name"), core.Param{Name: "p0", Value: "^a.*"})
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: "^a.*"}}, filter)
}

func TestBuildFilterAndGroup(t *testing.T) {
	predicate := &core.Predicate{Groups: []core.Group{{Clauses: []core.Clause{
		{Path: "name", Operator: core.OpEquals, Slot: 0},
		{Path: "age", Operator: core.OpGreaterThan, Slot: 1},
	}}}}

	filter := filterFor(t, predicate,
		core.Param{Name: "p0", Value: "alice"},
		core.Param{Name: "p1", Value: 21},
	)
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"name": "alice"},
		{"age": bson.M{"$gt": 21}},
	}}, filter)
}

func TestBuildFilterOrGroups(t *testing.T) {
	predicate := &core.Predicate{Groups: []core.Group{
		{Clauses: []core.Clause{
			{Path: "name", Operator: core.OpEquals, Slot: 0},
			{Path: "active", Operator: core.OpTrue, Slot: 1},
		}},
		{Clauses: []core.Clause{
			{Path: "age", Operator: core.OpLessThan, Slot: 1},
		}},
	}}

	filter := filterFor(t, predicate,
		core.Param{Name: "p0", Value: "alice"},
		core.Param{Name: "p1", Value: 18},
	)
	assert.Equal(t, bson.M{"$or": []bson.M{
		{"$and": []bson.M{
			{"name": "alice"},
			{"active": true},
		}},
		{"age": bson.M{"$lt": 18}},
	}}, filter)
}

func TestBuildFilterUnsupportedOperator(t *testing.T) {
	_, err := buildFilter(singleClause(core.OpNear, "location"), []core.Param{{Name: "p0", Value: "x"}})
	assert.ErrorIs(t, err, core.ErrUnsupportedOperator)
}
