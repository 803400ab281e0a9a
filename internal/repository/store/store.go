// Package store implements the local repository backed by TimescaleDB.
// It serves the series collected from the source repositories, so
// queries against already-collected data never leave the host.
//
// Expected schema:
//
//	CREATE TABLE series_data (
//	    ts_id TEXT        NOT NULL,
//	    time  TIMESTAMPTZ NOT NULL,
//	    value DOUBLE PRECISION,
//	    UNIQUE (ts_id, time)
//	);
//	SELECT create_hypertable('series_data', 'time');
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sverreng/dtss/internal/repository"
	"github.com/sverreng/dtss/internal/series"
)

// Scheme is the identifier scheme the store repository owns.
const Scheme = "store"

// Config holds the database connection settings.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ConnString renders the config as a libpq connection string.
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Repository reads and writes collected series in TimescaleDB.
type Repository struct {
	db *sql.DB
}

// New opens the database and verifies connectivity.
func New(connStr string) (*Repository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Name() string { return Scheme }

// Read fetches all requested series in one round trip and fans the
// rows back out per identifier, preserving the order of ids. An
// identifier with no stored points yields an empty series, not an
// error.
func (r *Repository) Read(ctx context.Context, ids []string, period series.Period) ([]series.Series, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT ts_id, time, value
        FROM series_data
        WHERE ts_id = ANY($1) AND time >= $2 AND time < $3
        ORDER BY ts_id, time
    `, pq.Array(ids), period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("store read: %w", err)
	}
	defer rows.Close()

	byID := make(map[string][]series.Point, len(ids))
	for rows.Next() {
		var (
			id    string
			ts    time.Time
			value float64
		)
		if err := rows.Scan(&id, &ts, &value); err != nil {
			return nil, fmt.Errorf("store read: %w", err)
		}
		byID[id] = append(byID[id], series.Point{Time: ts, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store read: %w", err)
	}

	out := make([]series.Series, 0, len(ids))
	for _, id := range ids {
		out = append(out, series.Series{ID: id, Points: byID[id]})
	}
	return out, nil
}

// Find returns metadata for every stored series whose identifier has
// the query as a prefix, with its covered period and point count.
func (r *Repository) Find(ctx context.Context, query string) ([]series.Info, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT ts_id, MIN(time), MAX(time), COUNT(*)
        FROM series_data
        WHERE ts_id LIKE $1 || '%'
        GROUP BY ts_id
        ORDER BY ts_id
    `, query)
	if err != nil {
		return nil, fmt.Errorf("store find: %w", err)
	}
	defer rows.Close()

	var infos []series.Info
	for rows.Next() {
		var (
			info  series.Info
			first time.Time
			last  time.Time
		)
		if err := rows.Scan(&info.ID, &first, &last, &info.PointCount); err != nil {
			return nil, fmt.Errorf("store find: %w", err)
		}
		info.Name = info.ID
		info.Period = series.Period{Start: first, End: last.Add(time.Second)}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store find: %w", err)
	}
	return infos, nil
}

// BatchInsert upserts all points of the given series in a single
// transaction. Re-collected points overwrite their previous values.
func (r *Repository) BatchInsert(ctx context.Context, data []series.Series) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store insert: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO series_data (ts_id, time, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (ts_id, time) DO UPDATE SET value = EXCLUDED.value
    `)
	if err != nil {
		return fmt.Errorf("store insert: prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range data {
		for _, p := range s.Points {
			if _, err := stmt.ExecContext(ctx, s.ID, p.Time, p.Value); err != nil {
				return fmt.Errorf("store insert %q: %w", s.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store insert: commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Compile-time interface implementation check
var _ repository.Repository = (*Repository)(nil)
