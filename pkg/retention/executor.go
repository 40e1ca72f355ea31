package retention

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/registry"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/retry"
)

const (
	// RegistryBatchLimit is the BatchDeleteVersions ceiling for per-package
	// registry batches.
	RegistryBatchLimit = 50
	// BulkBatchLimit is the ceiling for the bulk apt-index path.
	BulkBatchLimit = 10000
)

// DeleteOptions control one deletion run.
type DeleteOptions struct {
	// BatchSize is the number of targets submitted per request. It must not
	// exceed Limit; exceeding the downstream API's ceiling is a caller
	// error, never silently truncated.
	BatchSize  int
	Limit      int
	DryRun     bool
	SkipDelete bool
}

// BatchOutcome is the terminal result of a single submitted batch.
type BatchOutcome struct {
	Scope string
	Size  int
	Err   error
}

// Summary aggregates per-batch outcomes of a deletion run.
type Summary struct {
	Attempted int
	Deleted   int
	Failed    int
	Outcomes  []BatchOutcome
}

// Executor partitions expired targets into batches and submits each batch
// for deletion through the registry client.
type Executor struct {
	client registry.Client
	log    zlog.Logger
}

func NewExecutor(client registry.Client, log zlog.Logger) *Executor {
	return &Executor{client: client, log: log}
}

// Delete runs the plan. Batches are independent: one batch's terminal
// failure doesn't cancel the others, and the run fails only after every
// batch has been attempted.
func (e *Executor) Delete(ctx context.Context, plan *Plan, opts DeleteOptions) (*Summary, error) {
	if opts.SkipDelete {
		e.log.Info().Msg("the skip-delete flag is enabled, skipping the delete versions step")

		return &Summary{}, nil
	}

	if opts.Limit > 0 && opts.BatchSize > opts.Limit {
		return nil, fmt.Errorf("%w: %d > %d", zerr.ErrBatchTooLarge, opts.BatchSize, opts.Limit)
	}

	if opts.DryRun {
		e.log.Info().Msg("the dry-run mode is enabled, doing a no-op run")
	}

	summary := &Summary{}

	for _, scope := range plan.Scopes() {
		batches, err := Batched(plan.TargetsByScope[scope], opts.BatchSize)
		if err != nil {
			return nil, err
		}

		for _, batch := range batches {
			summary.Attempted++

			e.log.Info().Str("scope", scope).Bool("dry-run", opts.DryRun).
				Str("count", humanize.Comma(int64(len(batch)))).
				Msg("deleting expired package versions")

			outcome := BatchOutcome{Scope: scope, Size: len(batch)}

			if err := e.deleteBatch(ctx, scope, batch, opts.DryRun); err != nil {
				e.log.Error().Err(err).Str("scope", scope).Msg("batch deletion failed")

				outcome.Err = err
				summary.Failed++
			} else if !opts.DryRun {
				summary.Deleted += len(batch)
			}

			summary.Outcomes = append(summary.Outcomes, outcome)
		}
	}

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%w: %d of %d batches failed",
			zerr.ErrBatchFailed, summary.Failed, summary.Attempted)
	}

	return summary, nil
}

// deleteBatch submits one batch and waits for the server-side operation to
// reach a terminal state.
func (e *Executor) deleteBatch(ctx context.Context, scope string, names []string, dryRun bool) error {
	return retry.Do(ctx, e.log, "batch delete versions", func() error {
		op, err := e.client.BatchDeleteVersions(ctx, scope, names, dryRun)
		if err != nil {
			return err
		}

		return op.Wait(ctx)
	})
}

// Batched partitions items into ordered groups of at most size n. The last
// batch may be shorter. n must be at least one.
func Batched(items []string, n int) ([][]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least one", zerr.ErrBadConfig)
	}

	batches := make([][]string, 0, (len(items)+n-1)/n)

	for start := 0; start < len(items); start += n {
		end := start + n
		if end > len(items) {
			end = len(items)
		}

		batches = append(batches, items[start:end])
	}

	return batches, nil
}
