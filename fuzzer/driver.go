// Package fuzzer is a standalone corpus-soak driver for the sanitization
// harness. It is mutation-only: coverage-guided fuzzing belongs to the test
// runner's fuzz engine, while this driver exists for long unattended runs
// with durable crasher persistence.
package fuzzer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"scrub/core"
	"scrub/harness"
	"scrub/metrics"
)

// progressInterval is how often the driver logs running totals.
const progressInterval = 10 * time.Second

// Options configures a Driver run.
type Options struct {
	// Seed seeds the mutator; 0 derives one from the clock.
	Seed int64
	// MaxExecs stops the run after this many executions; 0 means unbounded.
	MaxExecs uint64
	// Duration stops the run after this much wall time; 0 means unbounded.
	Duration time.Duration
	// ExecRate caps executions per second; 0 means unpaced.
	ExecRate int
	// MaxInputBytes caps mutated input size.
	MaxInputBytes int
}

// Stats summarizes a run.
type Stats struct {
	Seed        int64
	Execs       uint64
	OK          uint64
	Rejected    uint64
	Crashes     uint64
	NewCrashers uint64
	Elapsed     time.Duration
}

// Driver owns the fuzzing loop: pick a corpus entry, mutate it, execute the
// harness, classify, persist crashers. Single-threaded; the harness is
// called synchronously once per generated input.
type Driver struct {
	harness *harness.Harness
	corpus  *Corpus
	store   *CrashStore
	mutator *Mutator
	rnd     *rand.Rand
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
	opts    Options
}

// NewDriver wires a driver. The crash store may be nil, in which case
// crashers are only logged.
func NewDriver(h *harness.Harness, corpus *Corpus, store *CrashStore, opts Options, logger *zap.SugaredLogger) *Driver {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts.Seed = seed

	var limiter *rate.Limiter
	if opts.ExecRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ExecRate), opts.ExecRate)
	}

	return &Driver{
		harness: h,
		corpus:  corpus,
		store:   store,
		mutator: NewMutator(seed, opts.MaxInputBytes),
		rnd:     rand.New(rand.NewSource(seed)),
		limiter: limiter,
		logger:  logger,
		opts:    opts,
	}
}

// Run executes the fuzzing loop until the context is canceled or a
// configured budget is exhausted. Every input is single-shot: the loop
// supplies the next input regardless of the previous outcome.
func (d *Driver) Run(ctx context.Context) (*Stats, error) {
	if d.opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Duration)
		defer cancel()
	}

	d.logger.Infow("Fuzzing started",
		"seed", d.opts.Seed,
		"corpus_entries", d.corpus.Len(),
		"max_execs", d.opts.MaxExecs,
		"duration", d.opts.Duration)

	stats := &Stats{Seed: d.opts.Seed}
	start := time.Now()
	lastProgress := start

	for {
		select {
		case <-ctx.Done():
			stats.Elapsed = time.Since(start)
			return stats, nil
		default:
		}
		if d.opts.MaxExecs > 0 && stats.Execs >= d.opts.MaxExecs {
			stats.Elapsed = time.Since(start)
			return stats, nil
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				stats.Elapsed = time.Since(start)
				return stats, nil
			}
		}

		data := d.mutator.Mutate(d.corpus.Pick(d.rnd), d.corpus.Pick(d.rnd))

		execStart := time.Now()
		rep := d.harness.ExecBytes(data)
		metrics.ExecDuration.Observe(time.Since(execStart).Seconds())
		metrics.ExecsTotal.WithLabelValues(rep.Outcome.String()).Inc()

		stats.Execs++
		switch rep.Outcome {
		case core.OutcomeOK:
			stats.OK++
		case core.OutcomeRejected:
			stats.Rejected++
		case core.OutcomeCrash:
			stats.Crashes++
			if d.store != nil {
				recorded, err := d.store.Add(rep, data)
				if err != nil {
					d.logger.Errorw("Failed to persist crasher", "error", err)
				} else if recorded {
					stats.NewCrashers++
				}
			} else {
				d.logger.Errorw("Crash (no store configured)",
					"reason", rep.Reason,
					"error", rep.Err,
					"input", rep.Diagnostic)
			}
		}

		if time.Since(lastProgress) >= progressInterval {
			lastProgress = time.Now()
			elapsed := time.Since(start)
			d.logger.Infow("Fuzzing progress",
				"execs", stats.Execs,
				"execs_per_sec", fmt.Sprintf("%.0f", float64(stats.Execs)/elapsed.Seconds()),
				"ok", stats.OK,
				"rejected", stats.Rejected,
				"crashes", stats.Crashes,
				"new_crashers", stats.NewCrashers)
		}
	}
}
