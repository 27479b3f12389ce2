// Package catalog is the tag and attribute catalog for hosts: the relational
// schema, one repository per entity and the host query engine.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/metorial/tattr/internal/logger"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
	defaultConnLifetime = 5 * time.Minute
)

type Catalog struct {
	db      *sql.DB
	dialect dialect
	timeout time.Duration
}

type options struct {
	timeout      time.Duration
	maxOpenConns int
}

type Option func(*options)

// WithTimeout bounds every unit of work against the store.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// Open connects to the store identified by uri and verifies the connection.
// It does not create tables; call Bootstrap for that.
func Open(ctx context.Context, uri string, opts ...Option) (*Catalog, error) {
	o := options{timeout: defaultTimeout, maxOpenConns: defaultMaxOpenConns}
	for _, opt := range opts {
		opt(&o)
	}

	d, dsn, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d.singleConn {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(o.maxOpenConns)
		db.SetMaxIdleConns(min(defaultMaxIdleConns, o.maxOpenConns))
		db.SetConnMaxLifetime(defaultConnLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Errorf("Failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Debugf("Opened %s catalog", d.name)

	return &Catalog{db: db, dialect: d, timeout: o.timeout}, nil
}

// Bootstrap creates any missing tables and indexes. It is safe to run
// against an already initialized store.
func (c *Catalog) Bootstrap(ctx context.Context) error {
	return c.withTx(ctx, func(tx *txn) error {
		for _, stmt := range c.dialect.schema {
			if _, err := tx.exec(stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return nil
	})
}

func (c *Catalog) Hosts() *Hosts { return &Hosts{c: c} }

func (c *Catalog) Tags() *Tags { return &Tags{c: c} }

func (c *Catalog) Attributes() *Attributes { return &Attributes{c: c} }

func (c *Catalog) Driver() string { return c.dialect.name }

func (c *Catalog) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// withTx runs fn in one transaction, committing when fn returns nil and
// rolling back otherwise.
func (c *Catalog) withTx(ctx context.Context, fn func(tx *txn) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tx := &txn{ctx: ctx, tx: sqlTx, dialect: c.dialect}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			logger.Warnf("Rollback failed: %v", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txn struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect dialect
}

func (t *txn) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.dialect.rebind(query), args...)
}

func (t *txn) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, t.dialect.rebind(query), args...)
}

func (t *txn) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, t.dialect.rebind(query), args...)
}

func (t *txn) isUniqueViolation(err error) bool {
	return t.dialect.isUniqueViolation(err)
}

func (t *txn) column(query string, args ...any) ([]string, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
