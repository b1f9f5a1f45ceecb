package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/pagination"
	"github.com/Sternrassler/canvas-lms-client/pkg/table"
)

// CourseColumns is the fixed course schema.
var CourseColumns = []string{
	"course_id",
	"course_name",
	"course_code",
	"term_id",
	"term_name",
	"term_start_at",
	"term_end_at",
	"enrollment_type",
}

// Course is the typed form of a course row.
type Course struct {
	CourseID       int64      `table:"course_id"`
	CourseName     *string    `table:"course_name"`
	CourseCode     *string    `table:"course_code"`
	TermID         *int64     `table:"term_id"`
	TermName       *string    `table:"term_name"`
	TermStartAt    *time.Time `table:"term_start_at"`
	TermEndAt      *time.Time `table:"term_end_at"`
	EnrollmentType *string    `table:"enrollment_type"`
}

type rawCourse struct {
	ID          nullInt    `json:"id"`
	Name        nullString `json:"name"`
	CourseCode  nullString `json:"course_code"`
	Term        *rawTerm   `json:"term"`
	Enrollments []struct {
		Type nullString `json:"type"`
	} `json:"enrollments"`
}

type rawTerm struct {
	ID      nullInt    `json:"id"`
	Name    nullString `json:"name"`
	StartAt nullString `json:"start_at"`
	EndAt   nullString `json:"end_at"`
}

// CourseOptions controls the course listing.
type CourseOptions struct {
	// CurrentOnly keeps courses whose term contains today's date.
	CurrentOnly bool
}

// NormalizeCourses maps raw course objects onto CourseColumns.
func NormalizeCourses(items []json.RawMessage) (*table.Table, []Warning, error) {
	var warnings []Warning
	rows := make([]table.Row, 0, len(items))

	for i, item := range items {
		var c rawCourse
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, warnings, fmt.Errorf("decode course %d: %w", i, err)
		}
		courseID, _ := c.ID.value().(int64)

		row := table.Row{
			"course_id":       c.ID.value(),
			"course_name":     c.Name.value(),
			"course_code":     c.CourseCode.value(),
			"term_id":         nil,
			"term_name":       nil,
			"term_start_at":   nil,
			"term_end_at":     nil,
			"enrollment_type": nil,
		}
		if c.Term != nil {
			row["term_id"] = c.Term.ID.value()
			row["term_name"] = c.Term.Name.value()
			row["term_start_at"] = dateValue(c.Term.StartAt, courseID, "term_start_at", &warnings)
			row["term_end_at"] = dateValue(c.Term.EndAt, courseID, "term_end_at", &warnings)
		}
		if len(c.Enrollments) > 0 {
			row["enrollment_type"] = c.Enrollments[0].Type.value()
		}
		rows = append(rows, row)
	}

	return table.FromRows(CourseColumns, rows), warnings, nil
}

// FilterCurrentCourses keeps courses whose term includes today. Courses with
// a null start or end date are dropped.
func FilterCurrentCourses(courses *table.Table, today time.Time) *table.Table {
	return courses.Filter(func(r table.Row) bool {
		start, ok1 := r["term_start_at"].(time.Time)
		end, ok2 := r["term_end_at"].(time.Time)
		return ok1 && ok2 && !start.After(today) && !end.Before(today)
	})
}

// Courses lists every course the caller is enrolled in.
func (c *Client) Courses(ctx context.Context, opts CourseOptions) (*table.Table, error) {
	items, err := c.fetcher.FetchAll(ctx, pagination.Request{
		Resource: "courses",
		URL:      c.session.URL("courses"),
		Query:    url.Values{"include[]": {"term"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	courses, warnings, err := NormalizeCourses(items)
	c.emit(warnings)
	if err != nil {
		return nil, err
	}

	if opts.CurrentOnly {
		courses = FilterCurrentCourses(courses, Today(c.session.Now(), c.session.Location()))
	}

	c.logger.Debug().Int("courses", courses.Len()).Bool("current_only", opts.CurrentOnly).Msg("Courses listed")

	return courses, nil
}

// CourseIDs extracts the non-null course_id values of a course table.
func CourseIDs(courses *table.Table) []int64 {
	var ids []int64
	for _, r := range courses.Rows() {
		if id, ok := r["course_id"].(int64); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
