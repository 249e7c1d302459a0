// Package postgres owns the database/sql plumbing for the document and
// signature stores. The lib/pq driver is registered here and nowhere else.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dupscan/dupscan/pkg/config"
	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

// Client is a pooled PostgreSQL connection. DB is exported because the
// stores build their own statements; the client only centralizes pooling
// and transaction handling.
type Client struct {
	DB *sql.DB
}

// New opens the pool and verifies connectivity before returning, so stores
// never start against an unreachable database.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}
