// Package manifest renders the compiled source catalog to JSON or YAML so
// external tooling can consume the declared sources without evaluating
// declaration files itself.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/leapsource/internal/registry"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format string

// Supported manifest formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported manifest format %q (expected json or yaml)", s)
	}
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Source is one manifest entry.
type Source struct {
	Database string `json:"database" yaml:"database"`
	Schema   string `json:"schema" yaml:"schema"`
	Name     string `json:"name" yaml:"name"`
	SQL      string `json:"sql" yaml:"sql"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Manifest is the serialized form of one compile.
type Manifest struct {
	Version     int                `json:"version" yaml:"version"`
	CompileID   string             `json:"compile_id,omitempty" yaml:"compile_id,omitempty"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Variant     string             `json:"variant" yaml:"variant"`
	Vars        core.ProjectConfig `json:"vars" yaml:"vars"`
	Sources     []Source           `json:"sources" yaml:"sources"`
	Duplicates  []Source           `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

// CurrentVersion is the manifest schema version written by Build.
const CurrentVersion = 1

// Build assembles a manifest from a loaded registry.
func Build(variant string, vars core.ProjectConfig, reg *registry.SourceRegistry) *Manifest {
	m := &Manifest{
		Version:     CurrentVersion,
		GeneratedAt: time.Now().UTC(),
		Variant:     variant,
		Vars:        vars,
		Sources:     make([]Source, 0, reg.Count()),
	}
	for _, d := range reg.All() {
		m.Sources = append(m.Sources, toSource(d))
	}
	for _, d := range reg.Duplicates() {
		m.Duplicates = append(m.Duplicates, toSource(d))
	}
	return m
}

func toSource(d registry.Declaration) Source {
	return Source{
		Database: d.Ref.Database,
		Schema:   d.Ref.Schema,
		Name:     d.Ref.Name,
		SQL:      d.Ref.SQL(),
		File:     d.File,
	}
}

// Refs returns the manifest sources as TableRefs.
func (m *Manifest) Refs() []core.TableRef {
	refs := make([]core.TableRef, len(m.Sources))
	for i, s := range m.Sources {
		refs[i] = core.TableRef{Database: s.Database, Schema: s.Schema, Name: s.Name}
	}
	return refs
}

// Encode writes m to w in the given format.
func (m *Manifest) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return nil
	}
}

// WriteFile writes m to path, choosing the format from the extension.
func (m *Manifest) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // G304: path comes from the --out flag
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := m.Encode(f, FormatForPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a manifest in the given format.
func Decode(r io.Reader, f Format) (*Manifest, error) {
	var m Manifest
	switch f {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
	}
	return &m, nil
}

// ReadFile reads the manifest at path, choosing the format from the extension.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the --manifest flag
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f, FormatForPath(path))
}
