package postgres

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/clroot/seance/core"
)

// ErrUnsupportedText is returned for annotated query text that is not
// native SQL: the engine's portable query language cannot be executed
// against PostgreSQL directly.
var ErrUnsupportedText = errors.New("postgres: annotated query text must be native SQL")

var (
	namedPlaceholder      = regexp.MustCompile(`(^|[^:A-Za-z0-9_]):([A-Za-z_][A-Za-z0-9_]*)`)
	positionalPlaceholder = regexp.MustCompile(`\?([0-9]+)`)
)

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// render turns a statement into PostgreSQL SQL plus its argument list.
// Structured statements are rendered from the predicate tree; native
// annotated text has its placeholders rewritten to $n.
func render(stmt *core.Statement, params []core.Param) (string, []any, error) {
	if stmt.Annotated {
		return renderAnnotated(stmt, params)
	}
	return renderStructured(stmt, params)
}

func renderAnnotated(stmt *core.Statement, params []core.Param) (string, []any, error) {
	if !stmt.Native {
		return "", nil, ErrUnsupportedText
	}

	// Named placeholders: each declared name maps to the position of its
	// parameter, so repeated references share one argument.
	if namedPlaceholder.MatchString(stmt.Text) {
		index := make(map[string]int, len(params))
		args := make([]any, len(params))
		for i, param := range params {
			index[param.Name] = i + 1
			args[i] = param.Value
		}
		var unknown string
		sql := namedPlaceholder.ReplaceAllStringFunc(stmt.Text, func(match string) string {
			sub := namedPlaceholder.FindStringSubmatch(match)
			n, ok := index[sub[2]]
			if !ok {
				unknown = sub[2]
				return match
			}
			return sub[1] + "$" + strconv.Itoa(n)
		})
		if unknown != "" {
			return "", nil, fmt.Errorf("postgres: no value bound for parameter :%s", unknown)
		}
		return sql, args, nil
	}

	// Positional placeholders carry 1-based decimal names.
	ordered := make([]core.Param, len(params))
	copy(ordered, params)
	sort.Slice(ordered, func(i, j int) bool {
		a, _ := strconv.Atoi(ordered[i].Name)
		b, _ := strconv.Atoi(ordered[j].Name)
		return a < b
	})
	args := make([]any, len(ordered))
	for i, param := range ordered {
		args[i] = param.Value
	}
	sql := positionalPlaceholder.ReplaceAllString(stmt.Text, "$$$1")
	return sql, args, nil
}

func renderStructured(stmt *core.Statement, params []core.Param) (string, []any, error) {
	table := quoteIdent(stmt.Entity.Collection)

	var sql string
	switch stmt.Shape {
	case core.ShapeCount, core.ShapeExists:
		sql = "SELECT COUNT(*) AS count FROM " + table
	case core.ShapeDelete:
		sql = "DELETE FROM " + table
	default:
		columns := make([]string, len(stmt.Entity.Fields))
		for i, field := range stmt.Entity.Fields {
			columns[i] = quoteIdent(field.Property)
		}
		selected := strings.Join(columns, ", ")
		if stmt.Distinct {
			selected = "DISTINCT " + selected
		}
		sql = "SELECT " + selected + " FROM " + table
	}

	var args []any
	if !stmt.Predicate.Empty() {
		where, whereArgs, err := renderPredicate(stmt.Predicate, params, 0)
		if err != nil {
			return "", nil, err
		}
		sql += " WHERE " + where
		args = whereArgs
	}

	if stmt.Shape == core.ShapeSelect {
		if stmt.Sort.Sorted() {
			parts := make([]string, len(stmt.Sort.Orders))
			for i, order := range stmt.Sort.Orders {
				parts[i] = quoteIdent(order.Path) + " " + order.Direction.String()
			}
			sql += " ORDER BY " + strings.Join(parts, ", ")
		}
		if stmt.Limit > 0 {
			sql += " LIMIT " + strconv.Itoa(stmt.Limit)
		}
		if stmt.Offset > 0 {
			sql += " OFFSET " + strconv.Itoa(stmt.Offset)
		}
	}
	return sql, args, nil
}

// renderPredicate walks the predicate tree and produces the WHERE body.
// Parameter values are consumed in slot order; argOffset shifts the $n
// numbering when the caller already holds earlier arguments (UPDATE ...
// SET takes the first positions).
func renderPredicate(predicate *core.Predicate, params []core.Param, argOffset int) (string, []any, error) {
	var args []any
	next := func(slot int) string {
		args = append(args, params[slot].Value)
		return "$" + strconv.Itoa(argOffset+len(args))
	}

	groupTexts := make([]string, 0, len(predicate.Groups))
	for _, group := range predicate.Groups {
		clauseTexts := make([]string, 0, len(group.Clauses))
		for _, clause := range group.Clauses {
			text, err := renderClause(clause, next, &args, argOffset)
			if err != nil {
				return "", nil, err
			}
			clauseTexts = append(clauseTexts, text)
		}
		text := strings.Join(clauseTexts, " AND ")
		if len(group.Clauses) > 1 {
			text = "(" + text + ")"
		}
		groupTexts = append(groupTexts, text)
	}
	return strings.Join(groupTexts, " OR "), args, nil
}

func renderClause(clause core.Clause, next func(int) string, args *[]any, argOffset int) (string, error) {
	column := quoteIdent(clause.Path)
	switch clause.Operator {
	case core.OpEquals:
		return column + " = " + next(clause.Slot), nil
	case core.OpNotEquals:
		return column + " <> " + next(clause.Slot), nil
	case core.OpLike, core.OpStartingWith, core.OpEndingWith, core.OpContaining:
		return column + " LIKE " + next(clause.Slot), nil
	case core.OpNotLike, core.OpNotContaining:
		return column + " NOT LIKE " + next(clause.Slot), nil
	case core.OpLessThan, core.OpBefore:
		return column + " < " + next(clause.Slot), nil
	case core.OpLessOrEqual:
		return column + " <= " + next(clause.Slot), nil
	case core.OpGreaterThan, core.OpAfter:
		return column + " > " + next(clause.Slot), nil
	case core.OpGreaterOrEqual:
		return column + " >= " + next(clause.Slot), nil
	case core.OpBetween:
		return column + " BETWEEN " + next(clause.Slot) + " AND " + next(clause.Slot+1), nil
	case core.OpIn, core.OpNotIn:
		placeholders, err := expandSlice(clause, next, args, argOffset)
		if err != nil {
			return "", err
		}
		if clause.Operator == core.OpNotIn {
			return column + " NOT IN (" + placeholders + ")", nil
		}
		return column + " IN (" + placeholders + ")", nil
	case core.OpIsNull:
		return column + " IS NULL", nil
	case core.OpIsNotNull, core.OpExists:
		return column + " IS NOT NULL", nil
	case core.OpTrue:
		return column + " = TRUE", nil
	case core.OpFalse:
		return column + " = FALSE", nil
	case core.OpIsEmpty:
		return "(" + column + " IS NULL OR " + column + " = '')", nil
	case core.OpIsNotEmpty:
		return "(" + column + " IS NOT NULL AND " + column + " <> '')", nil
	case core.OpRegex:
		return column + " ~ " + next(clause.Slot), nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedOperator, clause.Operator)
	}
}

// expandSlice replaces the single slot of an IN clause with one
// placeholder per element of the bound slice value.
func expandSlice(clause core.Clause, next func(int) string, args *[]any, argOffset int) (string, error) {
	// pop the single slot appended by next, then splay the elements
	placeholder := next(clause.Slot)
	value := (*args)[len(*args)-1]
	*args = (*args)[:len(*args)-1]

	v := reflect.ValueOf(value)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		*args = append(*args, value)
		return placeholder, nil
	}
	placeholders := make([]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		*args = append(*args, v.Index(i).Interface())
		placeholders[i] = "$" + strconv.Itoa(argOffset+len(*args))
	}
	return strings.Join(placeholders, ", "), nil
}
