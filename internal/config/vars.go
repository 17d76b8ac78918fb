package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapsource/pkg/core"
)

// DefaultVarEnvPrefix is the environment prefix read by Env when given "".
const DefaultVarEnvPrefix = "LEAPSOURCE_VAR_"

// VarSource supplies source_project / source_dataset to the declaration builder.
// Sources are layered by ResolveVars; later sources override earlier ones.
type VarSource struct {
	name     string
	provider koanf.Provider
}

// Name identifies the source in logs and errors.
func (s VarSource) Name() string {
	return s.name
}

// Literal returns a source backed by a fixed map (quick-start mode).
// Empty values are dropped so they do not mask earlier layers.
func Literal(vars map[string]string) VarSource {
	m := make(map[string]any, len(vars))
	for k, v := range vars {
		if v != "" {
			m[k] = v
		}
	}
	return VarSource{
		name:     "literal",
		provider: confmap.Provider(m, "."),
	}
}

// LiteralConfig is Literal for an already-typed ProjectConfig.
func LiteralConfig(c core.ProjectConfig) VarSource {
	return Literal(map[string]string{
		core.VarSourceProject: c.SourceProject,
		core.VarSourceDataset: c.SourceDataset,
	})
}

// Defaults returns the literal quick-start pair.
func Defaults() VarSource {
	s := LiteralConfig(DefaultVars())
	s.name = "defaults"
	return s
}

// Env returns a source backed by environment variables (deployment mode).
// LEAPSOURCE_VAR_SOURCE_PROJECT maps to source_project. Variables set to the
// empty string are skipped like empty literal values.
func Env(prefix string) VarSource {
	if prefix == "" {
		prefix = DefaultVarEnvPrefix
	}
	return VarSource{
		name: "env:" + prefix,
		provider: env.ProviderWithValue(prefix, ".", func(key, value string) (string, interface{}) {
			if value == "" {
				return "", nil
			}
			return strings.ToLower(strings.TrimPrefix(key, prefix)), value
		}),
	}
}

// ResolveVars layers the given sources and returns the resulting project config.
// With no sources it returns the zero config.
func ResolveVars(sources ...VarSource) (core.ProjectConfig, error) {
	k := koanf.New(".")
	for _, s := range sources {
		if s.provider == nil {
			continue
		}
		if err := k.Load(s.provider, nil); err != nil {
			return core.ProjectConfig{}, fmt.Errorf("failed to load vars from %s: %w", s.name, err)
		}
	}

	var cfg core.ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return core.ProjectConfig{}, fmt.Errorf("unable to decode vars: %w", err)
	}
	return cfg, nil
}
