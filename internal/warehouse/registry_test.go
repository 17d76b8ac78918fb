package warehouse

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/leapstack-labs/leapsource/internal/config"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func duckdbConfig() config.WarehouseConfig {
	return config.WarehouseConfig{Type: "duckdb"}
}

func TestUnknownCheckerError_Error(t *testing.T) {
	err := &UnknownCheckerError{Type: "snowflake", Available: []string{"bigquery", "duckdb"}}
	msg := err.Error()
	assert.Contains(t, msg, `unknown warehouse type "snowflake"`)
	assert.Contains(t, msg, "[bigquery duckdb]")
	assert.Contains(t, msg, "leapsource.yaml")
}

func TestSelfRegistration(t *testing.T) {
	for _, name := range []string{"bigquery", "duckdb", "postgres"} {
		assert.True(t, IsRegistered(name), name)
	}
	assert.False(t, IsRegistered("nonexistent"))

	names := ListCheckers()
	assert.Subset(t, names, []string{"bigquery", "duckdb", "postgres"})
	assert.IsNonDecreasing(t, names)
}

func TestRegister(t *testing.T) {
	called := false
	Register("test-checker", func(context.Context, config.WarehouseConfig, *slog.Logger) (Checker, error) {
		called = true
		return &SQLChecker{}, nil
	})

	c, err := NewChecker(context.Background(), config.WarehouseConfig{Type: "test-checker"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.True(t, called)
}

func TestNewChecker_Errors(t *testing.T) {
	_, err := NewChecker(context.Background(), config.WarehouseConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse type not specified")

	_, err = NewChecker(context.Background(), config.WarehouseConfig{Type: "nope"}, nil)
	var unknown *UnknownCheckerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Type)

	_, err = NewChecker(context.Background(), config.WarehouseConfig{Type: "postgres"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires warehouse.dsn")

	_, err = NewChecker(context.Background(), config.WarehouseConfig{Type: "bigquery"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires warehouse.project")
}

func TestBigQueryChecker_Exists(t *testing.T) {
	ref := core.TableRef{Database: "p", Schema: "d", Name: "Sales_Store"}

	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "found", err: nil, want: true},
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}, want: false},
		{name: "wrapped not found", err: errors.Join(errors.New("ctx"), &googleapi.Error{Code: http.StatusNotFound}), want: false},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, wantErr: true},
		{name: "other", err: assert.AnError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen core.TableRef
			c := &BigQueryChecker{metadata: func(_ context.Context, r core.TableRef) error {
				seen = r
				return tt.err
			}}

			got, err := c.Exists(context.Background(), ref)
			assert.Equal(t, ref, seen)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "p.d.Sales_Store")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.NoError(t, (&BigQueryChecker{}).Close())
}
