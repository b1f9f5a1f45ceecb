package canvas

import (
	"context"
	"fmt"

	"github.com/Sternrassler/canvas-lms-client/pkg/aggregate"
	"github.com/Sternrassler/canvas-lms-client/pkg/table"
	"github.com/Sternrassler/canvas-lms-client/pkg/views"
)

// MultiResult is the outcome of a multi-course fetch.
type MultiResult struct {
	// Table is the diagonal union of every course that succeeded. Row order
	// across courses is not guaranteed.
	Table *table.Table

	// Failures lists the courses that were skipped and why.
	Failures []aggregate.Failure[int64]

	// RunID identifies the run in logs and snapshots.
	RunID string
}

// FailedCourseIDs returns the ids of skipped courses.
func (r MultiResult) FailedCourseIDs() []int64 {
	ids := make([]int64, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.Key
	}
	return ids
}

// AllAssignmentsOptions controls AllAssignments.
type AllAssignmentsOptions struct {
	// MaxWorkers defaults to 5.
	MaxWorkers int
	// SkipWeights disables the assignment group join.
	SkipWeights bool
}

// AllPeersOptions controls AllPeers.
type AllPeersOptions struct {
	// MaxWorkers defaults to 2.
	MaxWorkers int
	Mode       PeerMode
}

// AllAssignments fetches assignments for every course concurrently. A failing
// course is recorded in Failures and never aborts the others.
func (c *Client) AllAssignments(ctx context.Context, courseIDs []int64, opts AllAssignmentsOptions) (*MultiResult, error) {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = aggregate.DefaultConfig().MaxWorkers
	}

	out := aggregate.Run(ctx, courseIDs, aggregate.Config{MaxWorkers: workers},
		func(ctx context.Context, courseID int64) (*table.Table, error) {
			return c.Assignments(ctx, courseID, AssignmentOptions{Weights: !opts.SkipWeights})
		})

	result := &MultiResult{
		Table:    table.New(AssignmentColumns...),
		Failures: out.Failures,
		RunID:    out.RunID,
	}
	if len(out.Successes) > 0 {
		result.Table = table.Concat(out.Values()...)
	}

	c.logger.Info().
		Str("run_id", out.RunID).
		Int("courses", len(courseIDs)).
		Int("failed", len(out.Failures)).
		Int("rows", result.Table.Len()).
		Msg("Assignments aggregated")

	return result, nil
}

// AllPeers fetches peers for every course concurrently and removes duplicates
// according to opts.Mode.
func (c *Client) AllPeers(ctx context.Context, courseIDs []int64, opts AllPeersOptions) (*MultiResult, error) {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = 2
	}

	out := aggregate.Run(ctx, courseIDs, aggregate.Config{MaxWorkers: workers}, c.Peers)

	result := &MultiResult{
		Table:    table.New(PeerColumns...),
		Failures: out.Failures,
		RunID:    out.RunID,
	}
	if len(out.Successes) > 0 {
		combined, err := table.Concat(out.Values()...).UniqueBy(opts.Mode.dedupKeys()...)
		if err != nil {
			return nil, fmt.Errorf("dedup peers: %w", err)
		}
		result.Table = combined
	}

	c.logger.Info().
		Str("run_id", out.RunID).
		Str("mode", opts.Mode.String()).
		Int("courses", len(courseIDs)).
		Int("failed", len(out.Failures)).
		Int("rows", result.Table.Len()).
		Msg("Peers aggregated")

	return result, nil
}

// UpcomingAssignments fetches assignments for every course and keeps those
// due between today and today+Days in the session timezone.
func (c *Client) UpcomingAssignments(ctx context.Context, courseIDs []int64, opts views.UpcomingOptions) (*MultiResult, error) {
	all, err := c.AllAssignments(ctx, courseIDs, AllAssignmentsOptions{})
	if err != nil {
		return nil, err
	}
	upcoming, err := views.UpcomingAssignments(all.Table, c.session.Now(), c.session.Location(), opts)
	if err != nil {
		return nil, fmt.Errorf("upcoming assignments: %w", err)
	}
	all.Table = upcoming
	return all, nil
}
