package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapsource/pkg/core"
)

// SQLChecker checks table existence through information_schema.tables.
type SQLChecker struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Placeholder formats the n-th (1-based) bind parameter
	Placeholder func(n int) string
}

// questionPlaceholder is the "?" bind style used by DuckDB.
func questionPlaceholder(int) string { return "?" }

// dollarPlaceholder is the "$n" bind style used by Postgres.
func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Exists reports whether ref is present in the connected database.
func (c *SQLChecker) Exists(ctx context.Context, ref core.TableRef) (bool, error) {
	if c.DB == nil {
		return false, fmt.Errorf("database connection not established")
	}
	ph := c.Placeholder
	if ph == nil {
		ph = questionPlaceholder
	}

	//nolint:gosec // Placeholders are fixed strings, values are bound
	query := fmt.Sprintf(`SELECT COUNT(*) FROM information_schema.tables
		WHERE table_catalog = %s AND table_schema = %s AND table_name = %s`,
		ph(1), ph(2), ph(3))

	var n int
	if err := c.DB.QueryRowContext(ctx, query, ref.Database, ref.Schema, ref.Name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", ref.Key(), err)
	}
	return n > 0, nil
}

// Close closes the database connection.
func (c *SQLChecker) Close() error {
	if c.DB != nil {
		if c.Logger != nil {
			c.Logger.Debug("closing warehouse connection")
		}
		return c.DB.Close()
	}
	return nil
}

// openSQL opens and pings a database/sql connection for a checker.
func openSQL(ctx context.Context, driver, dsn string, ph func(int) string, logger *slog.Logger) (*SQLChecker, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return &SQLChecker{DB: db, Logger: logger, Placeholder: ph}, nil
}
