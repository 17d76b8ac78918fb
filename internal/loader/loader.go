// Package loader evaluates source declaration files into a SourceRegistry.
//
// Declaration files are Starlark scripts that call declare(). The built-in
// variants ship embedded; a project may add its own files in a definitions
// directory. Files are evaluated concurrently but registered in a fixed order
// (built-in files first, then project files, each sorted by path), so the
// resulting catalog is deterministic.
package loader

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsource/internal/declare"
	"github.com/leapstack-labs/leapsource/internal/registry"
	starctx "github.com/leapstack-labs/leapsource/internal/starlark"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"go.starlark.net/starlark"
	"golang.org/x/sync/errgroup"
)

// FileExt is the extension of declaration files.
const FileExt = ".star"

//go:embed builtin
var builtinFS embed.FS

// DefaultConcurrency bounds how many files are evaluated at once.
const DefaultConcurrency = 4

// Options controls a Load call.
type Options struct {
	// Variant selects the built-in declaration set
	Variant core.Variant

	// Dir is an optional directory of project declaration files
	Dir string

	// Concurrency bounds parallel file evaluation (0 uses DefaultConcurrency)
	Concurrency int
}

// Result is the outcome of a Load call.
type Result struct {
	Registry *registry.SourceRegistry

	// Files lists every evaluated file in registration order
	Files []string
}

// Loader evaluates declaration files against one Builder.
type Loader struct {
	builder *declare.Builder
	logger  *slog.Logger
	pool    *starctx.ThreadPool
}

// New creates a Loader. A nil logger discards output.
func New(b *declare.Builder, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		builder: b,
		logger:  logger,
		pool:    starctx.NewThreadPool(DefaultConcurrency),
	}
}

// source is one declaration file to evaluate.
type source struct {
	name    string // display name used in errors and the registry
	content []byte
}

// Load evaluates the selected variant and project files and returns the catalog.
func (l *Loader) Load(ctx context.Context, opts Options) (*Result, error) {
	variant := opts.Variant
	if variant == "" {
		variant = core.VariantFull
	}
	if !variant.IsValid() {
		return nil, fmt.Errorf("unknown variant %q", variant)
	}

	sources, err := builtinSources(variant)
	if err != nil {
		return nil, err
	}

	if opts.Dir != "" {
		projectSources, err := dirSources(opts.Dir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, projectSources...)
	}

	l.logger.Debug("loading declarations",
		"variant", string(variant),
		"dir", opts.Dir,
		"files", len(sources))

	collected, err := l.evalAll(ctx, sources, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	reg := registry.NewSourceRegistry(l.logger)
	files := make([]string, 0, len(sources))
	for i, src := range sources {
		for _, ref := range collected[i] {
			l.builder.Declare(reg, ref, src.name)
		}
		files = append(files, src.name)
	}

	if dups := reg.Duplicates(); len(dups) > 0 {
		l.logger.Debug("duplicate declarations ignored", "count", len(dups))
	}
	l.logger.Info("declarations loaded", "sources", reg.Count(), "files", len(files))

	return &Result{Registry: reg, Files: files}, nil
}

// evalAll executes every source concurrently and returns the refs each declared,
// indexed like sources.
func (l *Loader) evalAll(ctx context.Context, sources []source, concurrency int) ([][]core.TableRef, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	predeclared := starctx.Predeclared(l.builder)
	predeclared.Freeze()

	results := make([][]core.TableRef, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			refs, err := l.evalFile(gctx, src, predeclared)
			if err != nil {
				return err
			}
			results[i] = refs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Loader) evalFile(ctx context.Context, src source, predeclared starlark.StringDict) ([]core.TableRef, error) {
	thread := l.pool.Get(src.name)
	defer l.pool.Put(thread)

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel("load canceled")
	})
	defer stop()

	c := starctx.NewCollector(src.name)
	starctx.AttachCollector(thread, c)

	if _, err := starlark.ExecFileOptions(starctx.FileOptions(), thread, src.name, src.content, predeclared); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &LoadError{
			File:    src.name,
			Message: evalMessage(err),
			Err:     err,
		}
	}

	refs := c.Refs()
	l.logger.Debug("evaluated declaration file", "file", src.name, "declared", len(refs))
	return refs, nil
}

// evalMessage prefers the Starlark backtrace when one is available.
func evalMessage(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Backtrace()
	}
	return err.Error()
}

// builtinSources returns the embedded files for variant, sorted by path.
func builtinSources(variant core.Variant) ([]source, error) {
	if variant == core.VariantNone {
		return nil, nil
	}

	root := path.Join("builtin", string(variant))
	var sources []source
	err := fs.WalkDir(builtinFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != FileExt {
			return nil
		}
		content, err := builtinFS.ReadFile(p)
		if err != nil {
			return err
		}
		sources = append(sources, source{name: p, content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in declarations for %s: %w", variant, err)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].name < sources[j].name })
	return sources, nil
}

// dirSources reads every declaration file under dir, sorted by path.
// A missing directory is not an error.
func dirSources(dir string) ([]source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access definitions directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("definitions path is not a directory: %s", dir)
	}

	var sources []source
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != FileExt {
			return nil
		}

		content, err := os.ReadFile(p) //nolint:gosec // G304: path comes from WalkDir within the definitions directory
		if err != nil {
			return &LoadError{File: p, Message: fmt.Sprintf("failed to read file: %v", err), Err: err}
		}
		sources = append(sources, source{name: p, content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].name < sources[j].name })
	return sources, nil
}

// LoadError represents an error loading a declaration file.
type LoadError struct {
	File    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
