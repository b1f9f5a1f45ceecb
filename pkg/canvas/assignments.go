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

// AssignmentColumns is the fixed assignment schema, without group columns.
var AssignmentColumns = []string{
	"workflow_state",
	"course_id",
	"assignment_id",
	"assignment_name",
	"position",
	"points_possible",
	"grading_type",
	"created_at",
	"due_at",
	"omit_from_final_grade",
	"assignment_group_id",
	"score",
	"grade",
	"submission_type",
	"submitted_at",
	"excused",
	"attempt",
	"late",
	"missing",
}

// SubmissionColumns are the fields hoisted from the submission sub-object.
var SubmissionColumns = []string{
	"score", "grade", "submission_type", "submitted_at", "excused", "attempt", "late", "missing",
}

// AssignmentGroupColumns is the assignment group schema used for the weights join.
var AssignmentGroupColumns = []string{
	"assignment_group_id",
	"assignment_group_name",
	"assignment_group_weight",
	"assignment_group_position",
}

// DatetimeColumns are converted to the session timezone.
var DatetimeColumns = []string{"created_at", "due_at", "submitted_at"}

// Assignment is the typed form of an assignment row.
type Assignment struct {
	WorkflowState           *string    `table:"workflow_state"`
	CourseID                *int64     `table:"course_id"`
	AssignmentID            int64      `table:"assignment_id"`
	AssignmentName          *string    `table:"assignment_name"`
	Position                *int64     `table:"position"`
	PointsPossible          *float64   `table:"points_possible"`
	GradingType             *string    `table:"grading_type"`
	CreatedAt               *time.Time `table:"created_at"`
	DueAt                   *time.Time `table:"due_at"`
	OmitFromFinalGrade      *bool      `table:"omit_from_final_grade"`
	AssignmentGroupID       *int64     `table:"assignment_group_id"`
	Score                   *float64   `table:"score"`
	Grade                   *string    `table:"grade"`
	SubmissionType          *string    `table:"submission_type"`
	SubmittedAt             *time.Time `table:"submitted_at"`
	Excused                 *bool      `table:"excused"`
	Attempt                 *int64     `table:"attempt"`
	Late                    *bool      `table:"late"`
	Missing                 *bool      `table:"missing"`
	AssignmentGroupName     *string    `table:"assignment_group_name"`
	AssignmentGroupWeight   *float64   `table:"assignment_group_weight"`
	AssignmentGroupPosition *int64     `table:"assignment_group_position"`
}

type rawAssignment struct {
	WorkflowState      nullString     `json:"workflow_state"`
	CourseID           nullInt        `json:"course_id"`
	ID                 nullInt        `json:"id"`
	Name               nullString     `json:"name"`
	Position           nullInt        `json:"position"`
	PointsPossible     nullFloat      `json:"points_possible"`
	GradingType        nullString     `json:"grading_type"`
	CreatedAt          nullString     `json:"created_at"`
	DueAt              nullString     `json:"due_at"`
	OmitFromFinalGrade nullBool       `json:"omit_from_final_grade"`
	AssignmentGroupID  nullInt        `json:"assignment_group_id"`
	Submission         *rawSubmission `json:"submission"`
}

// rawSubmission is present only when the listing was requested with
// include[]=submission and the API returned one for the assignment.
type rawSubmission struct {
	Score          nullFloat  `json:"score"`
	Grade          nullString `json:"grade"`
	SubmissionType nullString `json:"submission_type"`
	SubmittedAt    nullString `json:"submitted_at"`
	Excused        nullBool   `json:"excused"`
	Attempt        nullInt    `json:"attempt"`
	Late           nullBool   `json:"late"`
	Missing        nullBool   `json:"missing"`
}

type rawAssignmentGroup struct {
	ID          nullInt    `json:"id"`
	Name        nullString `json:"name"`
	GroupWeight nullFloat  `json:"group_weight"`
	Position    nullInt    `json:"position"`
}

// AssignmentOptions controls a single-course assignment fetch.
type AssignmentOptions struct {
	// Weights joins assignment group name, weight and position.
	Weights bool
}

// NormalizeAssignments maps raw assignment objects onto AssignmentColumns.
// Datetimes stay as text; see ConvertAssignmentTimes. When no element carries
// a submission, every submission column is null and a warning is returned.
func NormalizeAssignments(courseID int64, items []json.RawMessage) (*table.Table, []Warning, error) {
	var warnings []Warning
	rows := make([]table.Row, 0, len(items))
	withSubmission := 0

	for i, item := range items {
		var a rawAssignment
		if err := json.Unmarshal(item, &a); err != nil {
			return nil, warnings, fmt.Errorf("decode assignment %d of course %d: %w", i, courseID, err)
		}

		row := table.Row{
			"workflow_state":        a.WorkflowState.value(),
			"course_id":             a.CourseID.value(),
			"assignment_id":         a.ID.value(),
			"assignment_name":       a.Name.value(),
			"position":              a.Position.value(),
			"points_possible":       a.PointsPossible.value(),
			"grading_type":          a.GradingType.value(),
			"created_at":            a.CreatedAt.value(),
			"due_at":                a.DueAt.value(),
			"omit_from_final_grade": a.OmitFromFinalGrade.value(),
			"assignment_group_id":   a.AssignmentGroupID.value(),
		}
		for _, col := range SubmissionColumns {
			row[col] = nil
		}

		if s := a.Submission; s != nil {
			withSubmission++
			row["score"] = s.Score.value()
			row["grade"] = s.Grade.value()
			row["submission_type"] = s.SubmissionType.value()
			row["submitted_at"] = s.SubmittedAt.value()
			row["excused"] = s.Excused.value()
			row["attempt"] = s.Attempt.value()
			row["late"] = s.Late.value()
			row["missing"] = s.Missing.value()
		}
		rows = append(rows, row)
	}

	if len(items) > 0 && withSubmission == 0 {
		warnings = append(warnings, Warning{
			Kind:     WarningMissingSubmissions,
			CourseID: courseID,
			Message:  "no submission data; all submission fields will be null",
		})
	}

	return table.FromRows(AssignmentColumns, rows), warnings, nil
}

// NormalizeAssignmentGroups maps raw assignment group objects onto AssignmentGroupColumns.
func NormalizeAssignmentGroups(items []json.RawMessage) (*table.Table, error) {
	rows := make([]table.Row, 0, len(items))
	for i, item := range items {
		var g rawAssignmentGroup
		if err := json.Unmarshal(item, &g); err != nil {
			return nil, fmt.Errorf("decode assignment group %d: %w", i, err)
		}
		rows = append(rows, table.Row{
			"assignment_group_id":       g.ID.value(),
			"assignment_group_name":     g.Name.value(),
			"assignment_group_weight":   g.GroupWeight.value(),
			"assignment_group_position": g.Position.value(),
		})
	}
	return table.FromRows(AssignmentGroupColumns, rows), nil
}

// ConvertAssignmentTimes parses the datetime columns as UTC and converts them
// to loc. Columns that already hold times are left alone.
func ConvertAssignmentTimes(assignments *table.Table, courseID int64, loc *time.Location) (*table.Table, []Warning, error) {
	out, unparsed, err := assignments.ParseDatetimes(TimestampLayout, loc, DatetimeColumns...)
	if err != nil {
		return nil, nil, fmt.Errorf("convert datetimes: %w", err)
	}
	var warnings []Warning
	if unparsed > 0 {
		warnings = append(warnings, Warning{
			Kind:     WarningUnparseableTime,
			CourseID: courseID,
			Message:  fmt.Sprintf("%d datetime values could not be parsed; using null", unparsed),
		})
	}
	return out, warnings, nil
}

// AssignmentGroups lists a course's assignment groups.
func (c *Client) AssignmentGroups(ctx context.Context, courseID int64) (*table.Table, error) {
	items, err := c.fetcher.FetchAll(ctx, pagination.Request{
		Resource: "assignment_groups",
		URL:      c.session.CourseURL(courseID, "assignment_groups"),
		MapError: courseErrors(courseID),
	})
	if err != nil {
		return nil, fmt.Errorf("list assignment groups of course %d: %w", courseID, err)
	}
	return NormalizeAssignmentGroups(items)
}

// Assignments lists a course's assignments with the caller's submission data.
func (c *Client) Assignments(ctx context.Context, courseID int64, opts AssignmentOptions) (*table.Table, error) {
	items, err := c.fetcher.FetchAll(ctx, pagination.Request{
		Resource: "assignments",
		URL:      c.session.CourseURL(courseID, "assignments"),
		Query:    url.Values{"include[]": {"submission"}},
		MapError: courseErrors(courseID),
	})
	if err != nil {
		return nil, fmt.Errorf("list assignments of course %d: %w", courseID, err)
	}

	if len(items) == 0 {
		return table.New(AssignmentColumns...), nil
	}

	assignments, warnings, err := NormalizeAssignments(courseID, items)
	c.emit(warnings)
	if err != nil {
		return nil, err
	}

	if opts.Weights {
		groups, err := c.AssignmentGroups(ctx, courseID)
		if err != nil {
			return nil, err
		}
		assignments, err = assignments.LeftJoin(groups, "assignment_group_id")
		if err != nil {
			return nil, fmt.Errorf("join assignment groups: %w", err)
		}
	}

	assignments, warnings, err = ConvertAssignmentTimes(assignments, courseID, c.session.Location())
	c.emit(warnings)
	if err != nil {
		return nil, err
	}

	return assignments, nil
}
