// Package starlark provides the Starlark execution context and builtins used
// to evaluate source declaration files.
package starlark

import (
	"fmt"

	"github.com/leapstack-labs/leapsource/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// RefToStarlark converts a TableRef to a Starlark struct with
// database, schema and name fields.
func RefToStarlark(ref core.TableRef) starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("source"), starlark.StringDict{
		"database": starlark.String(ref.Database),
		"schema":   starlark.String(ref.Schema),
		"name":     starlark.String(ref.Name),
	})
}

// AssertionsToStarlark converts Assertions to a Starlark struct with
// unique_key and non_null list fields.
func AssertionsToStarlark(a core.Assertions) starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("assertions"), starlark.StringDict{
		"unique_key": StringList(a.UniqueKey),
		"non_null":   StringList(a.NonNull),
	})
}

// VarsToStarlark exposes the project variables as the frozen "vars" struct.
func VarsToStarlark(cfg core.ProjectConfig) starlark.Value {
	s := starlarkstruct.FromStringDict(starlark.String("vars"), starlark.StringDict{
		core.VarSourceProject: starlark.String(cfg.SourceProject),
		core.VarSourceDataset: starlark.String(cfg.SourceDataset),
	})
	s.Freeze()
	return s
}

// StringList converts column names to a Starlark list of strings.
// The list is a copy; mutating it does not affect values.
func StringList(values []string) *starlark.List {
	elems := make([]starlark.Value, len(values))
	for i, v := range values {
		elems[i] = starlark.String(v)
	}
	return starlark.NewList(elems)
}

// ToGo converts a Starlark value back to a Go value.
// Structs convert to map[string]any like dicts do.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %T", item[0])
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case *starlarkstruct.Struct:
		sd := make(starlark.StringDict)
		val.ToStringDict(sd)
		result := make(map[string]any, len(sd))
		for k, fv := range sd {
			gv, err := ToGo(fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			result[k] = gv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	default:
		return val.String(), nil
	}
}
