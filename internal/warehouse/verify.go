package warehouse

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapsource/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent existence checks.
const DefaultConcurrency = 8

// Result is the verification outcome for one source.
type Result struct {
	Ref    core.TableRef `json:"ref"`
	Exists bool          `json:"exists"`
	Err    error         `json:"-"`
}

// Message returns the check error message, or "".
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary counts verification outcomes.
type Summary struct {
	Total   int `json:"total"`
	Found   int `json:"found"`
	Missing int `json:"missing"`
	Errored int `json:"errored"`
}

// OK reports whether every source was found.
func (s Summary) OK() bool {
	return s.Missing == 0 && s.Errored == 0
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Errored++
		case r.Exists:
			s.Found++
		default:
			s.Missing++
		}
	}
	return s
}

// Verify checks every ref with c, at most concurrency at a time.
// Per-source failures are reported in the results; the returned error is only
// set when ctx is canceled.
func Verify(ctx context.Context, c Checker, refs []core.TableRef, concurrency int, logger *slog.Logger) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]Result, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			exists, err := c.Exists(gctx, ref)
			results[i] = Result{Ref: ref, Exists: exists, Err: err}
			if err != nil {
				logger.Warn("source check failed", "source", ref.Key(), "error", err)
			} else if !exists {
				logger.Debug("source missing", "source", ref.Key())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
