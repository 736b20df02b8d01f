package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clroot/seance/core"
)

// querier is the subset of pgx shared by pools and transactions, so one
// session type serves both auto-commit and transactional units.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type session struct {
	q querier
}

var _ core.Session = (*session)(nil)

func (s *session) Query(ctx context.Context, stmt *core.Statement, params []core.Param) ([]core.Row, error) {
	sql, args, err := render(stmt, params)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	var results []core.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(core.Row, len(descriptions))
		for i, col := range descriptions {
			row[col.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func (s *session) Execute(ctx context.Context, stmt *core.Statement, params []core.Param) (int64, error) {
	sql, args, err := render(stmt, params)
	if err != nil {
		return 0, err
	}
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *session) Insert(ctx context.Context, schema *core.SchemaCore, doc any) error {
	values, properties := core.StructValues(schema, doc)
	columns := make([]string, len(properties))
	placeholders := make([]string, len(properties))
	for i, property := range properties {
		columns[i] = quoteIdent(property)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(schema.Collection),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
	_, err := s.q.Exec(ctx, sql, values...)
	return err
}

func (s *session) Update(ctx context.Context, schema *core.SchemaCore, predicate *core.Predicate, params []core.Param, changes core.Changes) error {
	// deterministic column order keeps generated SQL stable
	properties := make([]string, 0, len(changes))
	for property := range changes {
		properties = append(properties, property)
	}
	sort.Strings(properties)

	args := make([]any, 0, len(changes)+len(params))
	setParts := make([]string, 0, len(changes))
	for _, property := range properties {
		args = append(args, changes[property])
		setParts = append(setParts, fmt.Sprintf("%s = $%d", quoteIdent(property), len(args)))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s", quoteIdent(schema.Collection), strings.Join(setParts, ", "))
	if !predicate.Empty() {
		where, whereArgs, err := renderPredicate(predicate, params, len(args))
		if err != nil {
			return err
		}
		sql += " WHERE " + where
		args = append(args, whereArgs...)
	}
	_, err := s.q.Exec(ctx, sql, args...)
	return err
}
