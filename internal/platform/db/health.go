package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const pingTimeout = 5 * time.Second

// Health is what `clinic db ping` reports about the store.
type Health struct {
	ServerVersion string
	SearchPath    string
	Patients      int64

	TotalConns    int32
	IdleConns     int32
	AcquiredConns int32
	MaxConns      int32
}

// Check pings the server and reads its version, the search path the pool
// resolves tables through, and the patient count, which fails when the
// schema has not been migrated yet.
func Check(ctx context.Context, pool *pgxpool.Pool) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	h := &Health{}
	err := pool.QueryRow(ctx, `SELECT current_setting('server_version'), current_setting('search_path')`).
		Scan(&h.ServerVersion, &h.SearchPath)
	if err != nil {
		return nil, fmt.Errorf("read server settings: %w", err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&h.Patients); err != nil {
		return nil, fmt.Errorf("schema not migrated: %w", err)
	}

	stat := pool.Stat()
	h.TotalConns = stat.TotalConns()
	h.IdleConns = stat.IdleConns()
	h.AcquiredConns = stat.AcquiredConns()
	h.MaxConns = stat.MaxConns()
	return h, nil
}
