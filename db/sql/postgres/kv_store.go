package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/adeilh/go-shopcache/cache"
)

// DefaultKVTable is used when NewKVStore receives an empty table name.
const DefaultKVTable = "shop_cache"

// ErrStorageFull is returned when the server refuses a write for lack of
// space. The cache manager treats it like any other write fault.
var ErrStorageFull = errors.New("postgres: storage full")

// KVStore persists cache entries in a single PostgreSQL table, giving the
// cache durable storage that survives process restarts.
type KVStore struct {
	db    *sql.DB
	table string
}

var (
	_ cache.Store        = (*KVStore)(nil)
	_ cache.BatchDeleter = (*KVStore)(nil)
)

// NewKVStore wraps an existing *sql.DB connection.
func NewKVStore(db *sql.DB, table string) *KVStore {
	if table == "" {
		table = DefaultKVTable
	}
	return &KVStore{db: db, table: pq.QuoteIdentifier(table)}
}

// Migrate creates the backing table when missing.
func (s *KVStore) Migrate(ctx context.Context, table string) error {
	if table == "" {
		table = DefaultKVTable
	}
	return ApplyMigrations(ctx, s.db, KVSchema(table))
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	var value string
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrNotFound
		}
		return nil, translateError(err)
	}
	return []byte(value), nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
                   ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, s.table)
	_, err := s.db.ExecContext(ctx, query, key, string(value))
	return translateError(err)
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	res, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return translateError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return cache.ErrNotFound
	}
	return nil
}

// DeleteMany removes all given keys in one statement.
func (s *KVStore) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, s.table)
	_, err := s.db.ExecContext(ctx, query, pq.Array(keys))
	return translateError(err)
}

func (s *KVStore) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "53100", "54000":
			return fmt.Errorf("%w: %s", ErrStorageFull, pqErr.Message)
		}
	}
	return err
}
