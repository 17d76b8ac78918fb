// Package config provides shared configuration for leapsource: config file
// discovery, defaults, warehouse settings and the layered declaration
// variables. It is decoupled from CLI concerns.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsource/pkg/core"
)

// WarehouseConfig holds the connection settings used by source verification.
type WarehouseConfig struct {
	Type string `koanf:"type"` // bigquery, duckdb, postgres

	// BigQuery
	Project  string `koanf:"project"`
	Location string `koanf:"location"`

	// database/sql backed warehouses
	DSN string `koanf:"dsn"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// ValidateVariant checks that name is a known declaration variant.
func ValidateVariant(name string) error {
	if core.Variant(name).IsValid() {
		return nil
	}
	known := make([]string, 0, len(core.Variants()))
	for _, v := range core.Variants() {
		known = append(known, string(v))
	}
	return fmt.Errorf("unknown variant %q (expected one of: %s)", name, strings.Join(known, ", "))
}
