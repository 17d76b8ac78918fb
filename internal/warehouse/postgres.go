package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapsource/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func init() {
	Register("postgres", newPostgres)
}

func newPostgres(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (Checker, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres warehouse requires warehouse.dsn")
	}
	return openSQL(ctx, "pgx", cfg.DSN, dollarPlaceholder, logger)
}
