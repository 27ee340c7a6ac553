package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/surveytriage/internal/dataset"
	"github.com/nao1215/surveytriage/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the default number of files processed at once.
const DefaultBatchConcurrency = 4

// Loader reads an input into a dataset.
type Loader func(input string) (*model.Dataset, error)

// BatchProcessor runs the clean pipeline over several inputs concurrently.
//
// Design decision: every input gets its own Pipeline and Job from the
// factory, so steps never share mutable state across inputs. Inputs must
// therefore not share an output path either; callers check that before
// starting a batch.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each input.
	pipelineFactory func(input string) *Pipeline

	loader      Loader
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of inputs processed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLoader replaces dataset.ReadFile as the input loader.
func WithLoader(l Loader) BatchOption {
	return func(b *BatchProcessor) {
		if l != nil {
			b.loader = l
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(input string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		loader:          dataset.ReadFile,
		concurrency:     DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch processes inputs concurrently and returns one job per input,
// in input order. A failing input is recorded in its job summary and does
// not stop the others. The error is non-nil only when ctx was cancelled;
// inputs that were never started then have a nil job.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []string) ([]*Job, error) {
	jobs := make([]*Job, len(inputs))
	err := bp.ProcessBatchWithCallback(ctx, inputs, func(job *Job, index int) {
		jobs[index] = job
	})
	return jobs, err
}

// ProcessBatchWithCallback processes inputs and calls callback for each
// finished job from the worker goroutine. callback must be safe for
// concurrent use when it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	inputs []string,
	callback func(job *Job, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_inputs", len(inputs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			job := bp.process(ctx, input, i, len(inputs))
			callback(job, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_inputs", len(inputs),
		"elapsed", time.Since(startTime),
	)
	return err
}

func (bp *BatchProcessor) process(ctx context.Context, input string, index, total int) *Job {
	bp.logger.Info("processing input",
		"input", input,
		"index", index+1,
		"total", total,
	)

	ds, err := bp.loader(input)
	if err != nil {
		job := NewJob(input, nil)
		job.Summary.Error = err.Error()
		job.Summary.FinishedAt = time.Now()
		bp.logger.Warn("failed to load input", "input", input, "error", err)
		return job
	}

	job := NewJob(input, ds)
	if err := bp.pipelineFactory(input).Execute(ctx, job); err != nil {
		bp.logger.Warn("run failed", "input", input, "error", err)
		return job
	}
	bp.logger.Info("run completed",
		"input", input,
		"run_id", job.Summary.ID,
	)
	return job
}
