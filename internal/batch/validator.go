package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/code11/internal/barcode"
)

// ErrAmbiguousInput is returned when a job carries both patterns and labels.
var ErrAmbiguousInput = errors.New("batch: job has both patterns and labels")

// Job is one barcode to validate, given either as bar/space patterns or as labels.
type Job struct {
	Patterns []string        `json:"patterns,omitempty"`
	Labels   []string        `json:"labels,omitempty"`
	Options  barcode.Options `json:"options"`
}

// Result is the outcome for one job. Err is set when the input could not be
// decoded; an undecodable barcode is never reported as valid.
type Result struct {
	Index     int
	Valid     bool
	CheckChar string
	HasCheck  bool
	Display   string
	Length    int
	Err       error
}

// Config controls the worker pool.
type Config struct {
	Workers  int              // 0 = runtime.NumCPU()
	Progress ProgressCallback // optional
}

// DefaultConfig returns one worker per CPU and no progress reporting.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Validator validates many independent barcodes concurrently. Each barcode is
// built and validated by exactly one worker.
type Validator struct {
	registry *barcode.Registry
	config   Config
}

// New creates a validator resolving decoders through reg.
func New(reg *barcode.Registry, config Config) *Validator {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	return &Validator{registry: reg, config: config}
}

// Evaluate builds and validates a single job with dec.
func Evaluate(dec barcode.Decoder, job Job) Result {
	var (
		bc  barcode.Barcode
		err error
	)
	switch {
	case len(job.Patterns) > 0 && len(job.Labels) > 0:
		return Result{Err: ErrAmbiguousInput}
	case len(job.Patterns) > 0:
		bc, err = dec.FromPatterns(job.Patterns, job.Options)
	default:
		bc, err = dec.FromLabels(job.Labels, job.Options)
	}
	if err != nil {
		return Result{Err: err}
	}

	res := Result{Length: len(job.Patterns) + len(job.Labels)}
	display, err := bc.DisplayString()
	if err != nil {
		res.Err = err
		return res
	}
	res.Display = display
	if res.Valid, err = bc.Validate(); err != nil {
		res.Err = err
		return res
	}
	if cc, ok := bc.(barcode.CheckCharacterer); ok {
		res.CheckChar, res.HasCheck = cc.CheckChar()
	}
	return res
}

type job struct {
	index int
	job   Job
}

// Run validates jobs and returns results in input order. Per-job failures
// are reported in Result.Err; the returned error is non-nil only when the
// format has no decoder or ctx is cancelled.
func (v *Validator) Run(ctx context.Context, format barcode.Format, jobs []Job) ([]Result, error) {
	return v.RunWithProgress(ctx, format, jobs, v.config.Progress)
}

// RunWithProgress is Run reporting to progress instead of the configured
// callback. A nil progress reports nothing.
func (v *Validator) RunWithProgress(ctx context.Context, format barcode.Format, jobs []Job, progress ProgressCallback) ([]Result, error) {
	dec, err := v.registry.Lookup(format)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []Result{}, nil
	}

	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(jobs))
	defer progress.OnComplete()

	if len(jobs) == 1 || v.config.Workers == 1 {
		return v.runSequential(ctx, dec, jobs, progress)
	}

	workers := min(v.config.Workers, len(jobs))
	in := make(chan job, len(jobs))
	out := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go worker(ctx, dec, in, out, &wg)
	}

	go func() {
		defer close(in)
		for i, j := range jobs {
			select {
			case in <- job{index: i, job: j}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]Result, len(jobs))
	done := 0
	for r := range out {
		results[r.Index] = r
		done++
		if r.Err != nil {
			progress.OnError(r.Index, r.Err)
		}
		progress.OnProgress(done, len(jobs))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if done != len(jobs) {
		return nil, fmt.Errorf("batch: %d of %d jobs completed", done, len(jobs))
	}

	slog.Debug("Batch validation completed", "jobs", len(jobs), "workers", workers, "format", format.String())
	return results, nil
}

func (v *Validator) runSequential(ctx context.Context, dec barcode.Decoder, jobs []Job, progress ProgressCallback) ([]Result, error) {
	results := make([]Result, len(jobs))
	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := Evaluate(dec, j)
		r.Index = i
		results[i] = r
		if r.Err != nil {
			progress.OnError(i, r.Err)
		}
		progress.OnProgress(i+1, len(jobs))
	}
	return results, nil
}

func worker(ctx context.Context, dec barcode.Decoder, in <-chan job, out chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case j, ok := <-in:
			if !ok {
				return
			}
			r := Evaluate(dec, j.job)
			r.Index = j.index
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
