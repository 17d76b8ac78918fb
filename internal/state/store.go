// Package state records compile history for leapsource using SQLite.
// Each compile stores the project variables used and the ordered list of
// declared sources, so successive compiles can be listed and diffed.
package state

import (
	"time"

	"github.com/leapstack-labs/leapsource/pkg/core"
)

// Compile is one recorded compile pass.
type Compile struct {
	ID             string             `json:"id"`
	Variant        string             `json:"variant"`
	Config         core.ProjectConfig `json:"config"`
	SourceCount    int                `json:"source_count"`
	DuplicateCount int                `json:"duplicate_count"`
	CreatedAt      time.Time          `json:"created_at"`
}

// CompileSource is one declared source within a compile.
type CompileSource struct {
	Position int           `json:"position"`
	Ref      core.TableRef `json:"ref"`
	File     string        `json:"file"`
}

// SourceDiff lists the sources that changed between two compiles.
type SourceDiff struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Added   []core.TableRef `json:"added"`
	Removed []core.TableRef `json:"removed"`
}

// IsEmpty reports whether the two compiles declared the same sources.
func (d *SourceDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
