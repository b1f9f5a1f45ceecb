// Package canvas fetches Canvas courses, assignments and enrollments and
// normalizes them into fixed-schema tables.
package canvas

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/Sternrassler/canvas-lms-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var normalizationWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "canvas_normalization_warnings_total",
	Help: "Total non-fatal normalization warnings by kind",
}, []string{"kind"})

// TimestampLayout is the UTC timestamp format Canvas uses for assignment and
// term datetimes.
const TimestampLayout = "2006-01-02T15:04:05Z"

// DateColumns hold calendar dates, stored as midnight UTC.
var DateColumns = []string{"term_start_at", "term_end_at", "user_date"}

// Warning kinds.
const (
	WarningMissingSubmissions = "missing_submissions"
	WarningUnparseableTime    = "unparseable_time"
)

// Warning reports degraded output: the operation succeeded but some values
// were filled with nulls.
type Warning struct {
	Kind     string
	CourseID int64
	Message  string
}

func (w Warning) String() string {
	if w.CourseID != 0 {
		return fmt.Sprintf("course %d: %s", w.CourseID, w.Message)
	}
	return w.Message
}

// Client runs resource operations against one Session.
type Client struct {
	session *client.Session
	fetcher *pagination.Fetcher
	logger  zerolog.Logger
}

// New creates a resource client with the default pagination config.
func New(session *client.Session) *Client {
	return NewWithConfig(session, pagination.DefaultConfig())
}

// NewWithConfig creates a resource client with a custom pagination config.
func NewWithConfig(session *client.Session, cfg pagination.Config) *Client {
	return &Client{
		session: session,
		fetcher: pagination.NewFetcher(session, cfg),
		logger:  log.With().Str("component", "canvas-resources").Logger(),
	}
}

// Session returns the underlying session.
func (c *Client) Session() *client.Session {
	return c.session
}

func (c *Client) emit(warnings []Warning) {
	for _, w := range warnings {
		normalizationWarnings.WithLabelValues(w.Kind).Inc()
		c.logger.Warn().
			Str("kind", w.Kind).
			Int64("course_id", w.CourseID).
			Msg(w.Message)
	}
}

// courseErrors maps listing failures scoped to one course.
func courseErrors(courseID int64) pagination.ErrorMapper {
	return func(status int, body string) error {
		return client.ResourceError(status, body, "course", courseID)
	}
}

// parseDate reads a Canvas timestamp and keeps only its calendar date, as
// midnight UTC. The date is taken in the timestamp's own offset.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// dateValue converts an optional timestamp into a date cell, recording a
// warning when the text cannot be parsed.
func dateValue(n nullString, courseID int64, field string, warnings *[]Warning) any {
	if !n.ok {
		return nil
	}
	d, ok := parseDate(n.v)
	if !ok {
		*warnings = append(*warnings, Warning{
			Kind:     WarningUnparseableTime,
			CourseID: courseID,
			Message:  fmt.Sprintf("%s %q is not a recognised timestamp; using null", field, n.v),
		})
		return nil
	}
	return d
}

// Today returns the current calendar date in loc, as midnight UTC, matching
// the representation of date columns.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
