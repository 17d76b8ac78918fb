package starlark

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapsource/internal/declare"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// collectorKey is the thread-local key holding the active *Collector.
const collectorKey = "leapsource.collector"

// Collector accumulates the declare() calls made while executing one file.
type Collector struct {
	mu   sync.Mutex
	File string
	refs []core.TableRef
}

// NewCollector returns an empty collector for file.
func NewCollector(file string) *Collector {
	return &Collector{File: file}
}

// Refs returns the collected refs in call order.
func (c *Collector) Refs() []core.TableRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.TableRef, len(c.refs))
	copy(out, c.refs)
	return out
}

func (c *Collector) add(ref core.TableRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = append(c.refs, ref)
}

// AttachCollector makes c receive the declare() calls executed on thread.
func AttachCollector(thread *starlark.Thread, c *Collector) {
	thread.SetLocal(collectorKey, c)
}

func collectorFrom(thread *starlark.Thread) (*Collector, error) {
	c, ok := thread.Local(collectorKey).(*Collector)
	if !ok || c == nil {
		return nil, fmt.Errorf("declare() is only available while loading declaration files")
	}
	return c, nil
}

// Predeclared returns the builtin globals for declaration files:
//
//	declare(name = "T")                        register T under the project/dataset pair
//	declare(database = "p", schema = "d", name = "T")
//	declare({"database": "p", "schema": "d", "name": "T"})
//	source_ref("T")                            -> struct(database, schema, name)
//	dim_assertions("Key", "Name")              -> struct(unique_key, non_null)
//	vars                                       -> struct(source_project, source_dataset)
func Predeclared(b *declare.Builder) starlark.StringDict {
	return starlark.StringDict{
		"declare":        starlark.NewBuiltin("declare", declareBuiltin(b)),
		"source_ref":     starlark.NewBuiltin("source_ref", sourceRefBuiltin(b)),
		"dim_assertions": starlark.NewBuiltin("dim_assertions", dimAssertionsBuiltin),
		"vars":           VarsToStarlark(b.Config()),
	}
}

func declareBuiltin(b *declare.Builder) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		c, err := collectorFrom(thread)
		if err != nil {
			return nil, err
		}

		// Missing database/schema fall back to the shared pair
		ref := b.SourceRef("")

		switch {
		case len(args) == 1 && len(kwargs) == 0:
			if err := decodeRef(args[0], &ref); err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
		case len(args) == 0:
			var database, schema, name string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"name", &name,
				"database?", &database,
				"schema?", &schema,
			); err != nil {
				return nil, err
			}
			ref.Name = name
			if database != "" {
				ref.Database = database
			}
			if schema != "" {
				ref.Schema = schema
			}
		default:
			return nil, fmt.Errorf("%s: expected a single dict/struct or keyword arguments", fn.Name())
		}

		if missing := ref.MissingParts(); len(missing) > 0 {
			return nil, fmt.Errorf("%s: empty %s", fn.Name(), strings.Join(missing, ", "))
		}

		c.add(ref)
		return RefToStarlark(ref), nil
	}
}

// decodeRef overlays a dict or struct value onto ref.
// Unknown keys are rejected.
func decodeRef(v starlark.Value, ref *core.TableRef) error {
	goVal, err := ToGo(v)
	if err != nil {
		return err
	}
	m, ok := goVal.(map[string]any)
	if !ok {
		return fmt.Errorf("expected dict or struct, got %s", v.Type())
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      ref,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

func sourceRefBuiltin(b *declare.Builder) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "table_name", &name); err != nil {
			return nil, err
		}
		return RefToStarlark(b.SourceRef(name)), nil
	}
}

func dimAssertionsBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var keyColumn, nameColumn string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "key_column", &keyColumn, "name_column", &nameColumn); err != nil {
		return nil, err
	}
	return AssertionsToStarlark(declare.DimAssertions(keyColumn, nameColumn)), nil
}

// FileOptions returns the dialect options for declaration files.
// Top-level loops are allowed so a file can declare a list of tables.
func FileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		TopLevelControl: true,
		GlobalReassign:  true,
	}
}
