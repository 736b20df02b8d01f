// Package mongo implements the persistence-engine boundary on top of
// MongoDB. Structured statements are translated into bson filters;
// annotated query text is rejected, MongoDB has no textual query
// language to hand it to.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clroot/seance/core"
)

// Driver is the MongoDB persistence engine.
type Driver struct {
	client   *mongo.Client
	database string
}

var _ core.Driver = (*Driver)(nil)

// Open connects a client using the given configuration.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	opts := mopt.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Driver{client: client, database: cfg.Database}, nil
}

// OpenFromEnv connects a client configured from SEANCE_MONGO_*
// environment variables.
func OpenFromEnv(ctx context.Context) (*Driver, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *Driver) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *Driver) collection(schema *core.SchemaCore) *mongo.Collection {
	return d.client.Database(d.database).Collection(schema.Collection)
}

// Session returns the auto-commit session backed by the client.
func (d *Driver) Session() core.Session {
	return &session{driver: d}
}

// Begin starts a MongoDB session with an open transaction and the
// engine session bound to it.
func (d *Driver) Begin(ctx context.Context) (core.Session, core.Transaction, error) {
	ms, err := d.client.StartSession()
	if err != nil {
		return nil, nil, err
	}
	if err := ms.StartTransaction(); err != nil {
		ms.EndSession(ctx)
		return nil, nil, err
	}
	return &session{driver: d, ms: ms}, &transaction{session: ms}, nil
}
