package views

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/table"
)

// ErrNegativeDays is returned when UpcomingOptions.Days is below zero.
var ErrNegativeDays = errors.New("days must not be negative")

// UpcomingOptions controls UpcomingAssignments.
type UpcomingOptions struct {
	// Days is how far past today the window reaches. Zero means today only.
	Days int
	// ExcludeSubmitted drops assignments with a submitted_at value.
	ExcludeSubmitted bool
}

// DefaultUpcomingOptions returns a one-week window without submitted work.
func DefaultUpcomingOptions() UpcomingOptions {
	return UpcomingOptions{Days: 7, ExcludeSubmitted: true}
}

// Window returns the inclusive due window: midnight of now's date in loc
// through 23:59:59 of that date plus days.
func Window(now time.Time, loc *time.Location, days int) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	last := start.AddDate(0, 0, days)
	end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, loc)
	return start, end
}

// UpcomingAssignments keeps assignments whose due_at falls inside Window.
// Rows with a null due_at are dropped.
func UpcomingAssignments(assignments *table.Table, now time.Time, loc *time.Location, opts UpcomingOptions) (*table.Table, error) {
	if opts.Days < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeDays, opts.Days)
	}
	for _, col := range []string{"due_at", "submitted_at"} {
		if !assignments.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", table.ErrUnknownColumn, col)
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	start, end := Window(now, loc, opts.Days)
	return assignments.Filter(func(r table.Row) bool {
		due, ok := r["due_at"].(time.Time)
		if !ok || due.Before(start) || due.After(end) {
			return false
		}
		return !opts.ExcludeSubmitted || table.IsNull(r["submitted_at"])
	}), nil
}
