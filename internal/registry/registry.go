// Package registry provides the source catalog that declarations register into.
// It maps logical table names to their declared warehouse identity so that
// later definitions can reference a source without repeating project/dataset.
package registry

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapsource/pkg/core"
)

// Declaration is one registered source table.
type Declaration struct {
	Ref core.TableRef `json:"ref" yaml:"ref"`

	// File is the declaration file the table was declared in
	File string `json:"file" yaml:"file"`

	// Order is the zero-based registration position
	Order int `json:"order" yaml:"order"`
}

// SourceRegistry holds the declared sources for one compile pass.
type SourceRegistry struct {
	mu sync.RWMutex

	// byKey maps "database.schema.name" to declarations
	byKey map[string]*Declaration

	// byTable maps "schema.name" to keys
	byTable map[string]string

	// byName maps unqualified names to keys
	// Note: if the same name is declared under two schemas, the first registered wins
	byName map[string]string

	ordered    []*Declaration
	duplicates []Declaration

	logger *slog.Logger
}

// NewSourceRegistry creates a new empty registry.
// A nil logger discards output.
func NewSourceRegistry(logger *slog.Logger) *SourceRegistry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SourceRegistry{
		byKey:   make(map[string]*Declaration),
		byTable: make(map[string]string),
		byName:  make(map[string]string),
		logger:  logger,
	}
}

// Declare registers ref, declared in file.
// Redeclaring an identical triple is a silent duplicate: the first declaration
// is kept, the duplicate is recorded, and added is false.
func (r *SourceRegistry) Declare(ref core.TableRef, file string) (decl Declaration, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ref.Key()
	if existing, ok := r.byKey[key]; ok {
		r.duplicates = append(r.duplicates, Declaration{Ref: ref, File: file, Order: existing.Order})
		r.logger.Debug("duplicate source declaration",
			"source", key,
			"file", file,
			"first_file", existing.File)
		return *existing, false
	}

	d := &Declaration{Ref: ref, File: file, Order: len(r.ordered)}
	r.byKey[key] = d
	r.ordered = append(r.ordered, d)

	table := ref.Schema + "." + ref.Name
	if _, ok := r.byTable[table]; !ok {
		r.byTable[table] = key
	}
	if _, ok := r.byName[ref.Name]; !ok {
		r.byName[ref.Name] = key
	}

	r.logger.Debug("declared source", "source", key, "file", file)
	return *d, true
}

// Resolve looks up a declaration by full key, "schema.name", or bare name.
// A qualified name whose prefix is unknown falls back to its last component.
func (r *SourceRegistry) Resolve(name string) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1. Exact key
	if d, ok := r.byKey[name]; ok {
		return *d, true
	}

	// 2. schema.name
	if key, ok := r.byTable[name]; ok {
		return *r.byKey[key], true
	}

	// 3. Bare name
	if key, ok := r.byName[name]; ok {
		return *r.byKey[key], true
	}

	// 4. Qualified with an unknown prefix
	if parts := strings.Split(name, "."); len(parts) > 1 {
		if key, ok := r.byName[parts[len(parts)-1]]; ok {
			return *r.byKey[key], true
		}
	}

	return Declaration{}, false
}

// All returns every declaration in registration order.
func (r *SourceRegistry) All() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Declaration, len(r.ordered))
	for i, d := range r.ordered {
		result[i] = *d
	}
	return result
}

// Refs returns the declared table refs in registration order.
func (r *SourceRegistry) Refs() []core.TableRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]core.TableRef, len(r.ordered))
	for i, d := range r.ordered {
		refs[i] = d.Ref
	}
	return refs
}

// Count returns the number of distinct declared sources.
func (r *SourceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Duplicates returns the redundant declarations seen so far.
func (r *SourceRegistry) Duplicates() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Return a copy to prevent external modification
	result := make([]Declaration, len(r.duplicates))
	copy(result, r.duplicates)
	return result
}
