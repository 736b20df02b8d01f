// This file translates predicate trees into bson filters for query
// execution against MongoDB.
package mongo

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clroot/seance/core"
)

// buildFilter translates a predicate tree into a bson filter. AND groups
// become $and documents, joined under $or; parameter values are looked
// up by clause slot.
func buildFilter(predicate *core.Predicate, params []core.Param) (bson.M, error) {
	if predicate.Empty() {
		return bson.M{}, nil
	}

	groups := make([]bson.M, 0, len(predicate.Groups))
	for _, group := range predicate.Groups {
		clauses := make([]bson.M, 0, len(group.Clauses))
		for _, clause := range group.Clauses {
			filter, err := clauseFilter(clause, params)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, filter)
		}
		if len(clauses) == 1 {
			groups = append(groups, clauses[0])
		} else {
			groups = append(groups, bson.M{"$and": clauses})
		}
	}
	if len(groups) == 1 {
		return groups[0], nil
	}
	return bson.M{"$or": groups}, nil
}

func clauseFilter(clause core.Clause, params []core.Param) (bson.M, error) {
	path := clause.Path
	value := func(slot int) any { return params[slot].Value }

	switch clause.Operator {
	case core.OpEquals:
		return bson.M{path: value(clause.Slot)}, nil
	case core.OpNotEquals:
		return bson.M{path: bson.M{"$ne": value(clause.Slot)}}, nil
	case core.OpLessThan, core.OpBefore:
		return bson.M{path: bson.M{"$lt": value(clause.Slot)}}, nil
	case core.OpLessOrEqual:
		return bson.M{path: bson.M{"$lte": value(clause.Slot)}}, nil
	case core.OpGreaterThan, core.OpAfter:
		return bson.M{path: bson.M{"$gt": value(clause.Slot)}}, nil
	case core.OpGreaterOrEqual:
		return bson.M{path: bson.M{"$gte": value(clause.Slot)}}, nil
	case core.OpBetween:
		return bson.M{path: bson.M{"$gte": value(clause.Slot), "$lte": value(clause.Slot + 1)}}, nil
	case core.OpIn:
		return bson.M{path: bson.M{"$in": sliceValues(value(clause.Slot))}}, nil
	case core.OpNotIn:
		return bson.M{path: bson.M{"$nin": sliceValues(value(clause.Slot))}}, nil
	case core.OpLike, core.OpStartingWith, core.OpEndingWith, core.OpContaining:
		return bson.M{path: likeRegex(value(clause.Slot))}, nil
	case core.OpNotLike, core.OpNotContaining:
		return bson.M{path: bson.M{"$not": likeRegex(value(clause.Slot))}}, nil
	case core.OpIsNull:
		return bson.M{path: bson.M{"$eq": nil}}, nil
	case core.OpIsNotNull:
		return bson.M{path: bson.M{"$ne": nil}}, nil
	case core.OpTrue:
		return bson.M{path: true}, nil
	case core.OpFalse:
		return bson.M{path: false}, nil
	case core.OpIsEmpty:
		return bson.M{path: bson.M{"$in": bson.A{nil, "", bson.A{}}}}, nil
	case core.OpIsNotEmpty:
		return bson.M{path: bson.M{"$nin": bson.A{nil, "", bson.A{}}}}, nil
	case core.OpExists:
		return bson.M{path: bson.M{"$exists": true}}, nil
	case core.OpRegex:
		return bson.M{path: primitive.Regex{Pattern: fmt.Sprintf("%v", value(clause.Slot))}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedOperator, clause.Operator)
	}
}

// likeRegex converts a bound LIKE pattern into an anchored regex: % maps
// to .* and _ to a single character, everything else is quoted.
func likeRegex(value any) primitive.Regex {
	const percent = "\x00p\x00"
	const underscore = "\x00u\x00"
	pattern := fmt.Sprintf("%v", value)
	pattern = strings.ReplaceAll(pattern, "%", percent)
	pattern = strings.ReplaceAll(pattern, "_", underscore)
	pattern = regexp.QuoteMeta(pattern)
	pattern = strings.ReplaceAll(pattern, percent, ".*")
	pattern = strings.ReplaceAll(pattern, underscore, ".")
	return primitive.Regex{Pattern: "^" + pattern + "$"}
}

// sliceValues normalizes the bound value of an IN clause to a bson
// array, wrapping scalars.
func sliceValues(value any) bson.A {
	v := reflect.ValueOf(value)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return bson.A{value}
	}
	array := make(bson.A, v.Len())
	for i := 0; i < v.Len(); i++ {
		array[i] = v.Index(i).Interface()
	}
	return array
}
