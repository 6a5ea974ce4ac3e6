// Package redis wraps go-redis with the project's key layout.
package redis

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper for go-redis
type DB struct {
	cli *redis.Client
}

// NewDB creates a new DB instance
func NewDB(opt *redis.Options) *DB {
	return &DB{
		cli: redis.NewClient(opt),
	}
}

// Client returns the underlying go-redis client.
func (db *DB) Client() *redis.Client {
	return db.cli
}

// Ping checks the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.cli.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "ping redis")
	}

	return nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	if err := db.cli.Close(); err != nil {
		return errors.Wrap(err, "close redis")
	}

	return nil
}
