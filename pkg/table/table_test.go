package table

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestConcat_Diagonal(t *testing.T) {
	a := FromRows([]string{"course_id", "assignment_id"}, []Row{
		{"course_id": int64(1), "assignment_id": int64(10)},
		{"course_id": int64(1), "assignment_id": int64(11)},
	})
	b := FromRows([]string{"course_id", "assignment_id", "assignment_group_weight"}, []Row{
		{"course_id": int64(2), "assignment_id": int64(20), "assignment_group_weight": 40.0},
	})

	got := Concat(a, nil, b)

	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	wantCols := []string{"course_id", "assignment_id", "assignment_group_weight"}
	if !reflect.DeepEqual(got.Columns(), wantCols) {
		t.Errorf("Columns() = %v, want %v", got.Columns(), wantCols)
	}
	weights, err := got.Column("assignment_group_weight")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if weights[0] != nil || weights[1] != nil || weights[2] != 40.0 {
		t.Errorf("weights = %v, want [nil nil 40]", weights)
	}
}

func TestConcat_Empty(t *testing.T) {
	got := Concat()
	if got.Len() != 0 || len(got.Columns()) != 0 {
		t.Errorf("Concat() = %d rows, %v columns", got.Len(), got.Columns())
	}
}

func TestUniqueBy_KeepsFirst(t *testing.T) {
	tbl := FromRows([]string{"course_id", "user_id", "user_type"}, []Row{
		{"course_id": int64(1), "user_id": int64(7), "user_type": "StudentEnrollment"},
		{"course_id": int64(1), "user_id": int64(7), "user_type": "TaEnrollment"},
		{"course_id": int64(2), "user_id": int64(7), "user_type": "StudentEnrollment"},
		{"course_id": int64(2), "user_id": int64(8), "user_type": "StudentEnrollment"},
	})

	perCourse, err := tbl.UniqueBy("course_id", "user_id")
	if err != nil {
		t.Fatalf("UniqueBy() error = %v", err)
	}
	if perCourse.Len() != 3 {
		t.Errorf("per course Len() = %d, want 3", perCourse.Len())
	}
	if perCourse.Value(0, "user_type") != "StudentEnrollment" {
		t.Errorf("first occurrence not kept: %v", perCourse.Row(0))
	}

	global, err := tbl.UniqueBy("user_id")
	if err != nil {
		t.Fatalf("UniqueBy() error = %v", err)
	}
	if global.Len() != 2 {
		t.Errorf("global Len() = %d, want 2", global.Len())
	}

	if _, err := tbl.UniqueBy("nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestLeftJoin(t *testing.T) {
	assignments := FromRows([]string{"assignment_id", "assignment_group_id", "position"}, []Row{
		{"assignment_id": int64(1), "assignment_group_id": int64(100), "position": int64(1)},
		{"assignment_id": int64(2), "assignment_group_id": int64(999), "position": int64(2)},
		{"assignment_id": int64(3), "assignment_group_id": nil, "position": int64(3)},
	})
	groups := FromRows([]string{"assignment_group_id", "assignment_group_name", "position"}, []Row{
		{"assignment_group_id": int64(100), "assignment_group_name": "Exams", "position": int64(4)},
		{"assignment_group_id": nil, "assignment_group_name": "Orphans", "position": int64(5)},
	})

	got, err := assignments.LeftJoin(groups, "assignment_group_id")
	if err != nil {
		t.Fatalf("LeftJoin() error = %v", err)
	}

	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	wantCols := []string{"assignment_id", "assignment_group_id", "position", "assignment_group_name", "position_right"}
	if !reflect.DeepEqual(got.Columns(), wantCols) {
		t.Errorf("Columns() = %v, want %v", got.Columns(), wantCols)
	}
	if got.Value(0, "assignment_group_name") != "Exams" || got.Value(0, "position_right") != int64(4) {
		t.Errorf("row 0 = %v", got.Row(0))
	}
	if got.Value(1, "assignment_group_name") != nil {
		t.Errorf("unmatched row should be null, got %v", got.Row(1))
	}
	if got.Value(2, "assignment_group_name") != nil {
		t.Errorf("null key should not match, got %v", got.Row(2))
	}
	if assignments.HasColumn("assignment_group_name") {
		t.Error("LeftJoin mutated its receiver")
	}
}

func TestParseDatetimes_Idempotent(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tbl := FromRows([]string{"due_at", "created_at"}, []Row{
		{"due_at": "2025-01-15T06:59:59Z", "created_at": nil},
		{"due_at": "not a date", "created_at": "2025-01-01T00:00:00Z"},
	})

	once, unparsed, err := tbl.ParseDatetimes("2006-01-02T15:04:05Z", denver, "due_at", "created_at")
	if err != nil {
		t.Fatalf("ParseDatetimes() error = %v", err)
	}
	if unparsed != 1 {
		t.Errorf("unparsed = %d, want 1", unparsed)
	}

	due, ok := once.Value(0, "due_at").(time.Time)
	if !ok {
		t.Fatalf("due_at = %T, want time.Time", once.Value(0, "due_at"))
	}
	if due.Location() != denver || due.Hour() != 23 || due.Day() != 14 {
		t.Errorf("due_at = %v, want 2025-01-14 23:59:59 MST", due)
	}
	if once.Value(1, "due_at") != nil {
		t.Errorf("unparseable value should be null, got %v", once.Value(1, "due_at"))
	}

	twice, unparsed, err := once.ParseDatetimes("2006-01-02T15:04:05Z", time.UTC, "due_at", "created_at")
	if err != nil {
		t.Fatalf("second ParseDatetimes() error = %v", err)
	}
	if unparsed != 0 {
		t.Errorf("second pass unparsed = %d, want 0", unparsed)
	}
	if !reflect.DeepEqual(twice.Rows(), once.Rows()) {
		t.Errorf("second pass changed values: %v vs %v", twice.Rows(), once.Rows())
	}
	if _, ok := tbl.Value(0, "due_at").(string); !ok {
		t.Error("ParseDatetimes mutated its receiver")
	}

	if _, _, err := tbl.ParseDatetimes(time.RFC3339, time.UTC, "submitted_at"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestSortStableHeadFilter(t *testing.T) {
	tbl := FromRows([]string{"name", "n"}, []Row{
		{"name": "a", "n": 1},
		{"name": "b", "n": 3},
		{"name": "c", "n": 1},
		{"name": "d", "n": 3},
	})

	sorted := tbl.SortStable(func(a, b Row) bool { return a["n"].(int) > b["n"].(int) })
	var names []string
	for _, r := range sorted.Rows() {
		names = append(names, r["name"].(string))
	}
	if !reflect.DeepEqual(names, []string{"b", "d", "a", "c"}) {
		t.Errorf("sorted names = %v", names)
	}

	if got := sorted.Head(2).Len(); got != 2 {
		t.Errorf("Head(2).Len() = %d", got)
	}
	if got := sorted.Head(10).Len(); got != 4 {
		t.Errorf("Head(10).Len() = %d", got)
	}
	if got := tbl.Filter(func(r Row) bool { return r["n"] == 1 }).Len(); got != 2 {
		t.Errorf("Filter().Len() = %d", got)
	}
}

func TestSelectAndWithColumn(t *testing.T) {
	tbl := FromRows([]string{"a", "b"}, []Row{{"a": 1, "b": 2}, {"a": 3}})

	sel, err := tbl.Select("b", "a")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !reflect.DeepEqual(sel.Columns(), []string{"b", "a"}) {
		t.Errorf("Columns() = %v", sel.Columns())
	}
	if sel.Value(1, "b") != nil {
		t.Errorf("missing value should stay null, got %v", sel.Value(1, "b"))
	}

	with := tbl.WithColumn("score", nil)
	if !with.HasColumn("score") || tbl.HasColumn("score") {
		t.Error("WithColumn should add to the copy only")
	}
}

func TestFromRows_ExtraKeys(t *testing.T) {
	tbl := FromRows([]string{"a"}, []Row{{"a": 1, "z": 2, "m": 3}})
	if !reflect.DeepEqual(tbl.Columns(), []string{"a", "m", "z"}) {
		t.Errorf("Columns() = %v", tbl.Columns())
	}
}

type decodedRow struct {
	ID    int64      `table:"id"`
	Name  *string    `table:"name"`
	Score *float64   `table:"score"`
	Due   *time.Time `table:"due_at"`
}

func TestDecode(t *testing.T) {
	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tbl := FromRows([]string{"id", "name", "score", "due_at"}, []Row{
		{"id": int64(1), "name": "Quiz", "score": 9.5, "due_at": due},
		{"id": int64(2), "name": nil, "score": nil, "due_at": "2025-03-02T00:00:00Z"},
	})

	var rows []decodedRow
	if err := tbl.Decode(&rows); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("decoded %d rows, want 2", len(rows))
	}
	if rows[0].Name == nil || *rows[0].Name != "Quiz" || rows[0].Score == nil || *rows[0].Score != 9.5 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].Due == nil || !rows[0].Due.Equal(due) {
		t.Errorf("row 0 due = %v", rows[0].Due)
	}
	if rows[1].Name != nil || rows[1].Score != nil {
		t.Errorf("nulls should decode to nil pointers: %+v", rows[1])
	}
	if rows[1].Due == nil || rows[1].Due.Day() != 2 {
		t.Errorf("text datetime should decode via hook, got %v", rows[1].Due)
	}
}
