// Package aggregate runs one independent task per key on a bounded worker pool
// and collects tagged successes and failures.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_aggregate_tasks_total",
		Help: "Total aggregate tasks by outcome and failure reason",
	}, []string{"outcome", "reason"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canvas_aggregate_run_duration_seconds",
		Help:    "Wall time of aggregate runs",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

// Config holds worker pool configuration.
type Config struct {
	// MaxWorkers is the number of concurrent tasks.
	MaxWorkers int
}

// DefaultConfig returns a small pool suitable for a single Canvas token.
func DefaultConfig() Config {
	return Config{MaxWorkers: 5}
}

// Reason classifies why a task failed.
type Reason string

const (
	// ReasonPermissionDenied marks a 403 on the task's resource.
	ReasonPermissionDenied Reason = "permission_denied"

	// ReasonNotFound marks a 404 on the task's resource.
	ReasonNotFound Reason = "not_found"

	// ReasonCancelled marks a task skipped or aborted by context cancellation.
	ReasonCancelled Reason = "cancelled"

	// ReasonError covers everything else.
	ReasonError Reason = "error"
)

// Classify maps a task error to a Reason.
func Classify(err error) Reason {
	switch {
	case client.IsPermissionDenied(err):
		return ReasonPermissionDenied
	case client.IsNotFound(err):
		return ReasonNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonError
	}
}

// Task produces a value for one key.
type Task[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Result is the tagged value a worker sends to the collector.
type Result[K comparable, V any] struct {
	Key   K
	Value V
	Err   error
}

// Failure records a key whose task returned an error.
type Failure[K comparable] struct {
	Key    K
	Reason Reason
	Err    error
}

// Error implements the error interface.
func (f Failure[K]) Error() string {
	return fmt.Sprintf("%v: %s: %v", f.Key, f.Reason, f.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (f Failure[K]) Unwrap() error {
	return f.Err
}

// Outcome holds everything a run produced. Order is completion order.
type Outcome[K comparable, V any] struct {
	RunID     string
	Successes []Result[K, V]
	Failures  []Failure[K]
	Duration  time.Duration
}

// Values returns the successful values.
func (o Outcome[K, V]) Values() []V {
	out := make([]V, len(o.Successes))
	for i, r := range o.Successes {
		out[i] = r.Value
	}
	return out
}

// FailedKeys returns the keys of failed tasks.
func (o Outcome[K, V]) FailedKeys() []K {
	out := make([]K, len(o.Failures))
	for i, f := range o.Failures {
		out[i] = f.Key
	}
	return out
}

// Run executes task once per key with at most cfg.MaxWorkers in flight. A
// failing task never stops its siblings. Once ctx is done, keys not yet
// started are recorded as cancelled failures without running.
func Run[K comparable, V any](ctx context.Context, keys []K, cfg Config, task Task[K, V]) Outcome[K, V] {
	start := time.Now()
	runID := uuid.NewString()
	logger := log.With().Str("component", "canvas-aggregate").Str("run_id", runID).Logger()

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = DefaultConfig().MaxWorkers
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	outcome := Outcome[K, V]{RunID: runID}
	if len(keys) == 0 {
		return outcome
	}

	logger.Debug().Int("keys", len(keys)).Int("workers", workers).Msg("Starting aggregate run")

	queue := make(chan K, len(keys))
	for _, k := range keys {
		queue <- k
	}
	close(queue)

	results := make(chan Result[K, V], workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, task, queue, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single collector: only this goroutine touches the outcome slices.
	for res := range results {
		if res.Err != nil {
			reason := Classify(res.Err)
			outcome.Failures = append(outcome.Failures, Failure[K]{Key: res.Key, Reason: reason, Err: res.Err})
			tasksTotal.WithLabelValues("failure", string(reason)).Inc()
			logger.Warn().
				Err(res.Err).
				Interface("key", res.Key).
				Str("reason", string(reason)).
				Msg("Task failed - skipping")
			continue
		}
		outcome.Successes = append(outcome.Successes, res)
		tasksTotal.WithLabelValues("success", "").Inc()
	}

	outcome.Duration = time.Since(start)
	runDuration.Observe(outcome.Duration.Seconds())

	logger.Info().
		Int("succeeded", len(outcome.Successes)).
		Int("failed", len(outcome.Failures)).
		Dur("duration", outcome.Duration).
		Msg("Aggregate run complete")

	return outcome
}

// worker processes keys from the queue until it is drained.
func worker[K comparable, V any](ctx context.Context, task Task[K, V], queue <-chan K, results chan<- Result[K, V], wg *sync.WaitGroup) {
	defer wg.Done()

	for key := range queue {
		if err := ctx.Err(); err != nil {
			results <- Result[K, V]{Key: key, Err: err}
			continue
		}
		value, err := call(ctx, task, key)
		results <- Result[K, V]{Key: key, Value: value, Err: err}
	}
}

// call runs task, converting a panic into an error so one bad key cannot
// take down the pool.
func call[K comparable, V any](ctx context.Context, task Task[K, V], key K) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx, key)
}
