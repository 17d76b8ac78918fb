// Package warehouse checks declared sources against a real warehouse.
//
// Verification is advisory: it reports which declared tables exist and never
// changes the catalog. Checkers are registered by warehouse type.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapsource/internal/config"
	"github.com/leapstack-labs/leapsource/pkg/core"
)

// Checker reports whether a table exists in a warehouse.
type Checker interface {
	Exists(ctx context.Context, ref core.TableRef) (bool, error)
	Close() error
}

// Factory creates a Checker from warehouse configuration.
type Factory func(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (Checker, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a checker factory to the registry.
// Called by checker implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a checker factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewChecker creates a checker for cfg.Type.
// The logger parameter is passed to the factory (nil uses discard logger).
func NewChecker(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (Checker, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("warehouse type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownCheckerError{
			Type:      cfg.Type,
			Available: ListCheckers(),
		}
	}
	return factory(ctx, cfg, logger)
}

// ListCheckers returns all registered checker names (sorted).
func ListCheckers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a checker type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownCheckerError is returned when an unknown warehouse type is requested.
type UnknownCheckerError struct {
	Type      string
	Available []string
}

func (e *UnknownCheckerError) Error() string {
	return fmt.Sprintf("unknown warehouse type %q\nAvailable warehouses: %v\nHint: Check your warehouse.type in leapsource.yaml", e.Type, e.Available)
}
