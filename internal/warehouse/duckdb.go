package warehouse

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapsource/internal/config"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", newDuckDB)
}

// newDuckDB opens a DuckDB file (or ":memory:" when dsn is empty).
// The DuckDB catalog name is the database file's base name, so a local
// mirror of the warehouse should be attached under the source project name.
func newDuckDB(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (Checker, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	return openSQL(ctx, "duckdb", dsn, questionPlaceholder, logger)
}
