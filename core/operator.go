// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the closed set of predicate operators
// and the method-name keyword table that maps name suffixes to operators.
package core

// Operator represents the comparison operator attached to a single clause
// of a derived query.
//
// The set is closed: every operator the lowering registry understands is
// declared here. OpNear and OpWithin are recognized only so the lowering
// registry can reject them explicitly instead of misreading them as part
// of a property name.
type Operator string

const (
	OpEquals         Operator = "EQUALS"
	OpNotEquals      Operator = "NOT_EQUALS"
	OpLike           Operator = "LIKE"
	OpNotLike        Operator = "NOT_LIKE"
	OpStartingWith   Operator = "STARTING_WITH"
	OpEndingWith     Operator = "ENDING_WITH"
	OpContaining     Operator = "CONTAINING"
	OpNotContaining  Operator = "NOT_CONTAINING"
	OpLessThan       Operator = "LESS_THAN"
	OpLessOrEqual    Operator = "LESS_OR_EQUAL"
	OpGreaterThan    Operator = "GREATER_THAN"
	OpGreaterOrEqual Operator = "GREATER_OR_EQUAL"
	OpBefore         Operator = "BEFORE"
	OpAfter          Operator = "AFTER"
	OpBetween        Operator = "BETWEEN"
	OpIn             Operator = "IN"
	OpNotIn          Operator = "NOT_IN"
	OpIsNull         Operator = "IS_NULL"
	OpIsNotNull      Operator = "IS_NOT_NULL"
	OpTrue           Operator = "TRUE"
	OpFalse          Operator = "FALSE"
	OpIsEmpty        Operator = "IS_EMPTY"
	OpIsNotEmpty     Operator = "IS_NOT_EMPTY"
	OpRegex          Operator = "REGEX"
	OpExists         Operator = "EXISTS"
	OpNear           Operator = "NEAR"
	OpWithin         Operator = "WITHIN"
)

// Slots returns how many positional parameter slots the operator consumes
// when lowered: 2 for BETWEEN, 0 for the null/boolean/empty checks, and 1
// for everything else.
func (op Operator) Slots() int {
	switch op {
	case OpBetween:
		return 2
	case OpIsNull, OpIsNotNull, OpTrue, OpFalse, OpIsEmpty, OpIsNotEmpty, OpExists:
		return 0
	default:
		return 1
	}
}

// keyword associates a method-name suffix with the operator it selects.
type keyword struct {
	text     string
	operator Operator
}

// keywordTable is scanned in order when parsing one condition part of a
// method name. Longer keywords come before their prefixes (IsNotNull before
// NotNull before Null, GreaterThanEqual before GreaterThan) so the first
// suffix match is always the longest one. A part with no keyword suffix is
// a plain equality check.
var keywordTable = []keyword{
	{"IsNotNull", OpIsNotNull},
	{"NotNull", OpIsNotNull},
	{"IsNull", OpIsNull},
	{"Null", OpIsNull},
	{"IsNotEmpty", OpIsNotEmpty},
	{"NotEmpty", OpIsNotEmpty},
	{"IsEmpty", OpIsEmpty},
	{"Empty", OpIsEmpty},
	{"IsBetween", OpBetween},
	{"Between", OpBetween},
	{"IsNotContaining", OpNotContaining},
	{"NotContaining", OpNotContaining},
	{"NotContains", OpNotContaining},
	{"IsContaining", OpContaining},
	{"Containing", OpContaining},
	{"Contains", OpContaining},
	{"IsStartingWith", OpStartingWith},
	{"StartingWith", OpStartingWith},
	{"StartsWith", OpStartingWith},
	{"IsEndingWith", OpEndingWith},
	{"EndingWith", OpEndingWith},
	{"EndsWith", OpEndingWith},
	{"IsNotLike", OpNotLike},
	{"NotLike", OpNotLike},
	{"IsLike", OpLike},
	{"Like", OpLike},
	{"IsLessThanEqual", OpLessOrEqual},
	{"LessThanEqual", OpLessOrEqual},
	{"IsLessThan", OpLessThan},
	{"LessThan", OpLessThan},
	{"IsGreaterThanEqual", OpGreaterOrEqual},
	{"GreaterThanEqual", OpGreaterOrEqual},
	{"IsGreaterThan", OpGreaterThan},
	{"GreaterThan", OpGreaterThan},
	{"IsBefore", OpBefore},
	{"Before", OpBefore},
	{"IsAfter", OpAfter},
	{"After", OpAfter},
	{"IsNotIn", OpNotIn},
	{"NotIn", OpNotIn},
	{"IsIn", OpIn},
	{"In", OpIn},
	{"IsTrue", OpTrue},
	{"True", OpTrue},
	{"IsFalse", OpFalse},
	{"False", OpFalse},
	{"MatchesRegex", OpRegex},
	{"Matches", OpRegex},
	{"Regex", OpRegex},
	{"Exists", OpExists},
	{"IsNear", OpNear},
	{"Near", OpNear},
	{"IsWithin", OpWithin},
	{"Within", OpWithin},
	{"IsNot", OpNotEquals},
	{"Not", OpNotEquals},
	{"Equals", OpEquals},
	{"Is", OpEquals},
}
