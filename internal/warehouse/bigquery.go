package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/leapstack-labs/leapsource/internal/config"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func init() {
	Register("bigquery", newBigQuery)
}

// BigQueryChecker looks tables up through the BigQuery metadata API.
// Database maps to the GCP project and Schema to the dataset.
type BigQueryChecker struct {
	client *bigquery.Client
	logger *slog.Logger

	// metadata fetches table metadata; swapped out in tests
	metadata func(ctx context.Context, ref core.TableRef) error
}

func newBigQuery(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (Checker, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("bigquery warehouse requires warehouse.project")
	}

	var opts []option.ClientOption
	if f := cfg.Options["credentials_file"]; f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	if ep := cfg.Options["endpoint"]; ep != "" {
		opts = append(opts, option.WithEndpoint(ep), option.WithoutAuthentication())
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return newBigQueryChecker(client, logger), nil
}

func newBigQueryChecker(client *bigquery.Client, logger *slog.Logger) *BigQueryChecker {
	c := &BigQueryChecker{client: client, logger: logger}
	c.metadata = func(ctx context.Context, ref core.TableRef) error {
		_, err := client.DatasetInProject(ref.Database, ref.Schema).Table(ref.Name).Metadata(ctx)
		return err
	}
	return c
}

// Exists reports whether ref's table exists. A 404 means missing, not an error.
func (c *BigQueryChecker) Exists(ctx context.Context, ref core.TableRef) (bool, error) {
	err := c.metadata(ctx, ref)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to get table metadata for %s: %w", ref.Key(), err)
}

// Close closes the BigQuery client.
func (c *BigQueryChecker) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
