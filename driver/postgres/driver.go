// Package postgres implements the persistence-engine boundary on top of
// PostgreSQL, using pgx connection pools. Structured statements are
// rendered into PostgreSQL SQL with $n placeholders; native annotated
// text is executed after placeholder rewriting.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clroot/seance/core"
)

// Driver is the PostgreSQL persistence engine.
type Driver struct {
	pool *pgxpool.Pool
}

var _ core.Driver = (*Driver)(nil)

// Open connects a pool using the given configuration.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return &Driver{pool: pool}, nil
}

// OpenFromEnv connects a pool configured from SEANCE_POSTGRES_*
// environment variables.
func OpenFromEnv(ctx context.Context) (*Driver, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Driver) Close(ctx context.Context) error {
	d.pool.Close()
	return nil
}

// Session returns the auto-commit session backed by the pool.
func (d *Driver) Session() core.Session {
	return &session{q: d.pool}
}

// Begin opens a transaction and the session bound to it.
func (d *Driver) Begin(ctx context.Context) (core.Session, core.Transaction, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	return &session{q: tx}, &transaction{tx: tx}, nil
}
