// Package declare builds source references and assertion descriptors.
//
// A Builder is bound to one explicit core.ProjectConfig, so every declaration
// it produces shares the same project/dataset pair without any global state.
// The literal quick-start mode and the configuration-driven deployment mode
// differ only in how that config is resolved (see config.ResolveVars).
package declare

import (
	"github.com/leapstack-labs/leapsource/internal/registry"
	"github.com/leapstack-labs/leapsource/pkg/core"
)

// Builder produces TableRefs for one project/dataset pair.
type Builder struct {
	cfg core.ProjectConfig
}

// NewBuilder returns a Builder bound to cfg.
func NewBuilder(cfg core.ProjectConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Config returns the project config the builder was created with.
func (b *Builder) Config() core.ProjectConfig {
	return b.cfg
}

// SourceRef returns the reference for tableName under the builder's project/dataset.
// Any string is accepted; names that do not exist only fail when used downstream.
func (b *Builder) SourceRef(tableName string) core.TableRef {
	return b.cfg.Ref(tableName)
}

// Declare registers ref in reg as declared in file. An empty database or
// schema is taken from the builder's project/dataset pair. It reports whether
// ref was new; a repeated triple keeps the first declaration.
func (b *Builder) Declare(reg *registry.SourceRegistry, ref core.TableRef, file string) (registry.Declaration, bool) {
	if ref.Database == "" {
		ref.Database = b.cfg.SourceProject
	}
	if ref.Schema == "" {
		ref.Schema = b.cfg.SourceDataset
	}
	return reg.Declare(ref, file)
}

// DimAssertions returns the standard dimension checks: keyColumn is unique,
// keyColumn and nameColumn are non-null.
func DimAssertions(keyColumn, nameColumn string) core.Assertions {
	return core.Assertions{
		UniqueKey: []string{keyColumn},
		NonNull:   []string{keyColumn, nameColumn},
	}
}
