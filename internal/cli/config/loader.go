package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	sharedcfg "github.com/leapstack-labs/leapsource/internal/config"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"github.com/spf13/pflag"
)

type (
	loggerKey struct{}
	configKey struct{}
)

// varFlags maps CLI flags to declaration variables. They are layered through
// sharedcfg.ResolveVars rather than koanf so env-backed vars keep their place.
var varFlags = map[string]string{
	"source-project": core.VarSourceProject,
	"source-dataset": core.VarSourceDataset,
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for leapsource.yaml
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Lookup("project-dir") != nil && flags.Changed("project-dir") {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" {
			if abs, err := filepath.Abs(projectDir); err == nil {
				return abs
			}
			return filepath.Clean(projectDir)
		}
	}

	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, _ := os.Getwd()
	if cwd != "" {
		if root := sharedcfg.FindProjectRoot(cwd); root != "" {
			return root
		}
		return cwd
	}
	return "."
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey maps LEAPSOURCE_* variables to config keys.
// LEAPSOURCE_WAREHOUSE_DSN -> warehouse.dsn, LEAPSOURCE_STATE_PATH -> state_path.
// LEAPSOURCE_VAR_* belongs to the vars env source and is skipped here.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	switch {
	case strings.HasPrefix(key, "var_"):
		return ""
	case strings.HasPrefix(key, "warehouse_"):
		return "warehouse." + strings.TrimPrefix(key, "warehouse_")
	default:
		return key
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Declaration vars layer as: literal defaults < config file < LEAPSOURCE_VAR_* < flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile, flags)

	// Paths given as flags are relative to CWD, not the project root.
	flagPaths := map[string]string{}
	if flags != nil {
		for _, name := range []string{"definitions-dir", "state"} {
			if flags.Lookup(name) == nil || !flags.Changed(name) {
				continue
			}
			if v, _ := flags.GetString(name); v != "" {
				flagPaths[name], _ = filepath.Abs(v)
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"variant":         DefaultVariant,
		"definitions_dir": DefaultDefinitionsDir,
		"state_path":      DefaultStateFile,
		"verbose":         false,
		"output":          DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Load environment variables (LEAPSOURCE_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			if _, isVar := varFlags[f.Name]; isVar {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "config", "project_dir":
				return "", nil
			case "state":
				return "state_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = cfgFile

	// 6. Resolve declaration vars
	vars, err := sharedcfg.ResolveVars(
		sharedcfg.Defaults(),
		sharedcfg.LiteralConfig(cfg.Vars),
		sharedcfg.Env(sharedcfg.DefaultVarEnvPrefix),
		sharedcfg.Literal(flagVars(flags)),
	)
	if err != nil {
		return nil, err
	}
	cfg.Vars = vars

	// 7. Resolve paths against the project root
	if p := flagPaths["definitions-dir"]; p != "" {
		cfg.DefinitionsDir = p
	} else {
		cfg.DefinitionsDir = resolvePathRelativeTo(cfg.DefinitionsDir, projectRoot)
	}
	if p := flagPaths["state"]; p != "" {
		cfg.StatePath = p
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	if cfg.Warehouse != nil {
		sharedcfg.ApplyWarehouseDefaults(cfg.Warehouse, cfg.Vars)
		expandWarehouseEnvVars(cfg.Warehouse)
		if cfg.Warehouse.Type == "duckdb" && cfg.Warehouse.DSN != "" && cfg.Warehouse.DSN != ":memory:" {
			cfg.Warehouse.DSN = resolvePathRelativeTo(cfg.Warehouse.DSN, projectRoot)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func flagVars(flags *pflag.FlagSet) map[string]string {
	out := map[string]string{}
	if flags == nil {
		return out
	}
	for name, key := range varFlags {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		if v, _ := flags.GetString(name); v != "" {
			out[key] = v
		}
	}
	return out
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context.
// Returns nil if none was stored.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // leave unresolved references as written
	})
}

// expandWarehouseEnvVars expands environment variables in connection fields.
func expandWarehouseEnvVars(w *WarehouseConfig) {
	if w == nil {
		return
	}
	w.DSN = expandEnvVars(w.DSN)
	w.Project = expandEnvVars(w.Project)
	for k, v := range w.Options {
		w.Options[k] = expandEnvVars(v)
	}
}
