package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Step is one stage of the clean pipeline. Steps run in order on the same
// Job, each seeing the dataset as the previous step left it.
//
// Design decision: errors are split by scope. A problem confined to one row
// or one page path (a failed lookup, an unparseable cell) is absorbed by the
// step and shows up in the job's records or summary counters; the row stays
// in the output. Only a problem that invalidates the whole input (a missing
// URL column, an unwritable output file) is returned, because every later
// step would produce a wrong file from it.
type Step interface {
	// Do executes the step. Row-level problems are absorbed by the step;
	// a returned error means the job cannot continue.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging and the run summary.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing later steps after one fails.
// The failure is still recorded in the run summary.
//
// Design decision: the default is to stop. A clean run that lost its lookup
// step must not go on to write a half-enriched file that looks complete.
// Continuing suits pipelines whose later steps do not read what the failed
// step would have produced.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and stamps the summary's finish time.
//
// Design decision: cancellation is checked before each step, not inside the
// loop body. Steps that block (lookups, database writes) take ctx and stop
// on their own; the check here keeps a cancelled job from starting the next
// step, so a signal during lookup never produces a cleaned file.
//
// It returns the first step error unless continueOnError is set. Either way
// the error text is kept in job.Summary.Error.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	defer func() {
		if job.Summary.FinishedAt.IsZero() {
			job.Summary.FinishedAt = time.Now()
		}
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			job.Summary.Error = err.Error()
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"input", job.Input,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"input", job.Input,
				"error", err,
			)
			job.Summary.Error = err.Error()
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"input", job.Input,
			)
		}

		job.Summary.Steps = append(job.Summary.Steps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
