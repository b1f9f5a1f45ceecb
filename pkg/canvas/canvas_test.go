package canvas

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"

	"github.com/Sternrassler/canvas-lms-client/internal/testutil"
	"github.com/Sternrassler/canvas-lms-client/pkg/aggregate"
	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/Sternrassler/canvas-lms-client/pkg/views"
)

func newClient(t *testing.T, mock *testutil.MockCanvas) *Client {
	t.Helper()

	cfg := client.DefaultConfig("token", mock.URL())
	cfg.VerifyConnection = false
	cfg.HTTPClient = mock.Client()

	s, err := client.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return New(s)
}

type obj = map[string]any

func assignment(id, courseID int64, group any, submission obj) obj {
	a := obj{"id": id, "course_id": courseID, "name": "A", "assignment_group_id": group}
	if submission != nil {
		a["submission"] = submission
	}
	return a
}

func user(id int64, name string, types ...string) obj {
	enrollments := make([]obj, len(types))
	for i, typ := range types {
		enrollments[i] = obj{"type": typ}
	}
	return obj{"id": id, "name": name, "created_at": "2020-01-01T00:00:00Z", "enrollments": enrollments}
}

func TestCourses(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages("/api/v1/courses",
		[]obj{{"id": 1, "name": "One"}, {"id": 2, "name": "Two"}},
		[]obj{{"id": 3, "name": "Three"}},
	)

	courses, err := newClient(t, mock).Courses(context.Background(), CourseOptions{})
	if err != nil {
		t.Fatalf("Courses() error = %v", err)
	}
	if ids := CourseIDs(courses); len(ids) != 3 || ids[2] != 3 {
		t.Errorf("course ids = %v", ids)
	}

	queries := mock.Queries("/api/v1/courses")
	if len(queries) != 2 {
		t.Fatalf("got %d requests, want 2", len(queries))
	}
	if queries[0].Get("include[]") != "term" || queries[0].Get("per_page") != "100" {
		t.Errorf("first query = %v", queries[0])
	}
}

func TestCourses_ErrorIsGeneric(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetStatus("/api/v1/courses", http.StatusForbidden, `{"message":"nope"}`)

	_, err := newClient(t, mock).Courses(context.Background(), CourseOptions{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("error = %v, want *client.APIError with 403", err)
	}
}

func TestAssignments_JoinsWeights(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages(testutil.CoursePath(5, "assignments"), []obj{
		assignment(1, 5, 100, obj{"score": 8, "submitted_at": "2024-01-01T00:00:00Z"}),
		assignment(2, 5, 200, nil),
		assignment(3, 5, nil, nil),
	})
	mock.SetPages(testutil.CoursePath(5, "assignment_groups"), []obj{
		{"id": 100, "name": "Homework", "group_weight": 40, "position": 1},
	})

	tbl, err := newClient(t, mock).Assignments(context.Background(), 5, AssignmentOptions{Weights: true})
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("got %d rows, want 3", tbl.Len())
	}
	if got := tbl.Value(0, "assignment_group_name"); got != "Homework" {
		t.Errorf("group name = %v, want Homework", got)
	}
	if got := tbl.Value(0, "assignment_group_weight"); got != 40.0 {
		t.Errorf("group weight = %v, want 40", got)
	}
	for _, i := range []int{1, 2} {
		if got := tbl.Value(i, "assignment_group_name"); got != nil {
			t.Errorf("row %d group name = %v, want null", i, got)
		}
	}

	if q := mock.Queries(testutil.CoursePath(5, "assignments")); q[0].Get("include[]") != "submission" {
		t.Errorf("assignment query = %v", q[0])
	}
}

func TestAssignments_EmptyCourse(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages(testutil.CoursePath(5, "assignments"), []obj{})

	tbl, err := newClient(t, mock).Assignments(context.Background(), 5, AssignmentOptions{Weights: true})
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}
	if tbl.Len() != 0 || !tbl.HasColumn("due_at") {
		t.Errorf("empty course table = %v columns, %d rows", tbl.Columns(), tbl.Len())
	}
	if n := len(mock.Queries(testutil.CoursePath(5, "assignment_groups"))); n != 0 {
		t.Errorf("assignment groups fetched %d times for an empty course", n)
	}
}

func TestPeers_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"forbidden", http.StatusForbidden, client.IsPermissionDenied},
		{"not found", http.StatusNotFound, client.IsNotFound},
		{"server error", http.StatusInternalServerError, func(err error) bool {
			var apiErr *client.APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusInternalServerError
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCanvas()
			defer mock.Close()
			mock.SetStatus(testutil.CoursePath(9, "users"), tt.status, `{"message":"x"}`)

			_, err := newClient(t, mock).Peers(context.Background(), 9)
			if err == nil || !tt.check(err) {
				t.Errorf("error = %v", err)
			}

			var perm *client.PermissionError
			if errors.As(err, &perm) && perm.ID != 9 {
				t.Errorf("permission error names course %d, want 9", perm.ID)
			}
		})
	}
}

func TestAllAssignments_DiagonalConcat(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages(testutil.CoursePath(1, "assignments"),
		[]obj{assignment(11, 1, 100, nil), assignment(12, 1, 100, nil)},
		[]obj{assignment(13, 1, 100, nil)},
	)
	mock.SetPages(testutil.CoursePath(1, "assignment_groups"), []obj{{"id": 100, "name": "Labs"}})
	mock.SetPages(testutil.CoursePath(2, "assignments"), []obj{assignment(21, 2, 300, nil)})
	mock.SetPages(testutil.CoursePath(2, "assignment_groups"), []obj{})

	res, err := newClient(t, mock).AllAssignments(context.Background(), []int64{1, 2}, AllAssignmentsOptions{})
	if err != nil {
		t.Fatalf("AllAssignments() error = %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("failures = %v", res.Failures)
	}
	if res.Table.Len() != 4 {
		t.Errorf("got %d rows, want 4", res.Table.Len())
	}
	if !res.Table.HasColumn("assignment_group_name") {
		t.Error("group columns missing from union")
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
}

func TestAllPeers_PartialFailure(t *testing.T) {
	tests := []struct {
		name      string
		forbidden []int64
	}{
		{"none fail", nil},
		{"one fails", []int64{2}},
		{"all fail", []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCanvas()
			defer mock.Close()
			for _, id := range []int64{1, 2, 3} {
				mock.SetPages(testutil.CoursePath(id, "users"), []obj{user(id*10, "peer", "StudentEnrollment")})
			}
			for _, id := range tt.forbidden {
				mock.SetStatus(testutil.CoursePath(id, "users"), http.StatusForbidden, "{}")
			}

			res, err := newClient(t, mock).AllPeers(context.Background(), []int64{1, 2, 3}, AllPeersOptions{})
			if err != nil {
				t.Fatalf("AllPeers() error = %v", err)
			}

			failed := res.FailedCourseIDs()
			sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
			if len(failed) != len(tt.forbidden) {
				t.Fatalf("failed = %v, want %v", failed, tt.forbidden)
			}
			for i := range failed {
				if failed[i] != tt.forbidden[i] {
					t.Errorf("failed = %v, want %v", failed, tt.forbidden)
				}
			}
			for _, f := range res.Failures {
				if f.Reason != aggregate.ReasonPermissionDenied {
					t.Errorf("reason = %q, want permission_denied", f.Reason)
				}
			}
			if got, want := res.Table.Len(), 3-len(tt.forbidden); got != want {
				t.Errorf("got %d rows, want %d", got, want)
			}
			if len(res.Table.Columns()) != len(PeerColumns) {
				t.Errorf("columns = %v", res.Table.Columns())
			}
		})
	}
}

func TestAllPeers_Modes(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages(testutil.CoursePath(1, "users"), []obj{user(7, "Ada", "StudentEnrollment"), user(8, "Bo", "StudentEnrollment")})
	mock.SetPages(testutil.CoursePath(2, "users"), []obj{user(7, "Ada", "TaEnrollment")})

	c := newClient(t, mock)
	tests := []struct {
		mode PeerMode
		want int
	}{
		{UniquePerCourse, 3},
		{UniqueGlobal, 2},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			res, err := c.AllPeers(context.Background(), []int64{1, 2}, AllPeersOptions{Mode: tt.mode})
			if err != nil {
				t.Fatalf("AllPeers() error = %v", err)
			}
			if res.Table.Len() != tt.want {
				t.Errorf("got %d rows, want %d", res.Table.Len(), tt.want)
			}
		})
	}
}

func TestUpcomingAssignments_Client(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages(testutil.CoursePath(1, "assignments"), []obj{
		{"id": 1, "course_id": 1, "due_at": "2000-01-01T00:00:00Z"},
		{"id": 2, "course_id": 1, "due_at": nil},
	})
	mock.SetPages(testutil.CoursePath(1, "assignment_groups"), []obj{})

	res, err := newClient(t, mock).UpcomingAssignments(context.Background(), []int64{1}, views.DefaultUpcomingOptions())
	if err != nil {
		t.Fatalf("UpcomingAssignments() error = %v", err)
	}
	if res.Table.Len() != 0 {
		t.Errorf("got %d rows, want 0 for past and undated assignments", res.Table.Len())
	}
}
