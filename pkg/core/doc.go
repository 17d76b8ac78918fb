// Package core defines the shared language of the leapsource system.
//
// This package contains:
//   - Domain entities (TableRef, Assertions, Variant)
//   - Configuration types (ProjectConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
