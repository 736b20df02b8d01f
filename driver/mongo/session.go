package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clroot/seance/core"
)

// ErrUnsupportedText is returned for annotated query text: MongoDB has
// no server-side textual query language to execute it against.
var ErrUnsupportedText = errors.New("mongo: annotated query text is not executable")

type session struct {
	driver *Driver
	ms     mongo.Session // nil outside a transaction
}

var _ core.Session = (*session)(nil)

// bind attaches the transactional MongoDB session to the context so
// collection operations join the open transaction.
func (s *session) bind(ctx context.Context) context.Context {
	if s.ms != nil {
		return mongo.NewSessionContext(ctx, s.ms)
	}
	return ctx
}

func (s *session) Query(ctx context.Context, stmt *core.Statement, params []core.Param) ([]core.Row, error) {
	if stmt.Annotated {
		return nil, ErrUnsupportedText
	}
	ctx = s.bind(ctx)
	filter, err := buildFilter(stmt.Predicate, params)
	if err != nil {
		return nil, err
	}
	coll := s.driver.collection(stmt.Entity)

	if stmt.Shape == core.ShapeCount || stmt.Shape == core.ShapeExists {
		count, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, err
		}
		return []core.Row{{"count": count}}, nil
	}

	opts := mopt.Find()
	if stmt.Sort.Sorted() {
		sortDoc := bson.D{}
		for _, order := range stmt.Sort.Orders {
			direction := 1
			if order.Direction == core.Descending {
				direction = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: order.Path, Value: direction})
		}
		opts.SetSort(sortDoc)
	}
	if stmt.Limit > 0 {
		opts.SetLimit(int64(stmt.Limit))
	}
	if stmt.Offset > 0 {
		opts.SetSkip(int64(stmt.Offset))
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []core.Row
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		results = append(results, core.Row(doc))
	}
	return results, cursor.Err()
}

func (s *session) Execute(ctx context.Context, stmt *core.Statement, params []core.Param) (int64, error) {
	if stmt.Annotated {
		return 0, ErrUnsupportedText
	}
	ctx = s.bind(ctx)
	filter, err := buildFilter(stmt.Predicate, params)
	if err != nil {
		return 0, err
	}
	result, err := s.driver.collection(stmt.Entity).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *session) Insert(ctx context.Context, schema *core.SchemaCore, doc any) error {
	ctx = s.bind(ctx)
	values, properties := core.StructValues(schema, doc)
	document := bson.M{}
	for i, property := range properties {
		document[property] = values[i]
	}
	_, err := s.driver.collection(schema).InsertOne(ctx, document)
	return err
}

func (s *session) Update(ctx context.Context, schema *core.SchemaCore, predicate *core.Predicate, params []core.Param, changes core.Changes) error {
	ctx = s.bind(ctx)
	filter, err := buildFilter(predicate, params)
	if err != nil {
		return err
	}
	_, err = s.driver.collection(schema).UpdateMany(ctx, filter, bson.M{"$set": bson.M(changes)})
	return err
}
