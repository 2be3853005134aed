package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/trainlog/internal/database"
	"github.com/rs/zerolog"
)

// SQLRepository stores records as JSON rows in the run_records table. It
// works against both SQLite and Postgres.
type SQLRepository struct {
	db     *sql.DB
	driver database.Driver
	log    zerolog.Logger
}

// NewSQLRepository creates a repository on a migrated "runs" database.
func NewSQLRepository(db *database.DB, log zerolog.Logger) *SQLRepository {
	return &SQLRepository{
		db:     db.Conn(),
		driver: db.Driver(),
		log:    log.With().Str("repo", "run_records").Logger(),
	}
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != database.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Put upserts the record for key.
func (r *SQLRepository) Put(ctx context.Context, key Key, record *Record) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	data, err := EncodeRecord(record)
	if err != nil {
		return err
	}

	query := r.rebind(`
		INSERT INTO run_records (run_key, algorithm, episodes, data, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_key) DO UPDATE SET
			algorithm = excluded.algorithm,
			episodes = excluded.episodes,
			data = excluded.data,
			saved_at = excluded.saved_at
	`)

	_, err = r.db.ExecContext(ctx, query, string(key), record.Algorithm, record.Len(), string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", key, err)
	}

	r.log.Debug().Str("key", string(key)).Int("episodes", record.Len()).Msg("Run record stored")
	return nil
}

// Get loads and validates the record for key.
func (r *SQLRepository) Get(ctx context.Context, key Key) (*Record, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	var data string
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT data FROM run_records WHERE run_key = ?`), string(key)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMissingRun, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", key, err)
	}

	record, err := DecodeRecord([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", key, err)
	}
	return record, nil
}

// List returns all stored keys in lexical order.
func (r *SQLRepository) List(ctx context.Context) ([]Key, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_key FROM run_records ORDER BY run_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	keys := []Key{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan run key: %w", err)
		}
		keys = append(keys, Key(key))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return keys, nil
}

// Delete removes the record for key.
func (r *SQLRepository) Delete(ctx context.Context, key Key) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM run_records WHERE run_key = ?`), string(key))
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrMissingRun, key)
	}
	return nil
}
