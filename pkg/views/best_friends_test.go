package views

import (
	"errors"
	"testing"

	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/Sternrassler/canvas-lms-client/pkg/table"
)

func peerTable(rows ...table.Row) *table.Table {
	return table.FromRows([]string{"course_id", "user_id", "user_name", "user_date", "user_type"}, rows)
}

func peer(course, user int64, name, typ string) table.Row {
	return table.Row{"course_id": course, "user_id": user, "user_name": name, "user_type": typ}
}

func TestBestFriends_Ordering(t *testing.T) {
	peers := peerTable(
		peer(1, 1, "A", StudentEnrollment),
		peer(2, 1, "A", StudentEnrollment),
		peer(1, 2, "B", StudentEnrollment),
	)

	got, err := BestFriends(peers, client.Identity{}, BestFriendsOptions{TopN: 2})
	if err != nil {
		t.Fatalf("BestFriends() error = %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("got %d rows, want 2", got.Len())
	}

	want := []struct {
		name  string
		count int64
	}{{"A", 2}, {"B", 1}}
	for i, w := range want {
		if got.Value(i, "user_name") != w.name || got.Value(i, "shared_courses") != w.count {
			t.Errorf("row %d = %v, want (%s, %d)", i, got.Row(i), w.name, w.count)
		}
	}

	cols := got.Columns()
	if len(cols) != 3 || cols[0] != "user_id" || cols[2] != "shared_courses" {
		t.Errorf("columns = %v", cols)
	}
}

func TestBestFriends_Filters(t *testing.T) {
	peers := peerTable(
		peer(1, 99, "Me", StudentEnrollment),
		peer(2, 99, "Me", StudentEnrollment),
		peer(1, 5, "Prof", "TeacherEnrollment"),
		peer(2, 5, "Prof", "TeacherEnrollment"),
		peer(3, 5, "Prof", "TeacherEnrollment"),
		peer(1, 6, "Sam", StudentEnrollment),
	)

	tests := []struct {
		name   string
		caller client.Identity
		opts   BestFriendsOptions
		want   []string
	}{
		{
			name:   "exclude caller by id",
			caller: client.Identity{ID: 99, Name: "Someone Else"},
			opts:   DefaultBestFriendsOptions(),
			want:   []string{"Prof", "Sam"},
		},
		{
			name:   "exclude caller by name",
			caller: client.Identity{Name: "Me"},
			opts:   DefaultBestFriendsOptions(),
			want:   []string{"Prof", "Sam"},
		},
		{
			name:   "students only",
			caller: client.Identity{ID: 99},
			opts:   BestFriendsOptions{TopN: 10, StudentsOnly: true},
			want:   []string{"Sam"},
		},
		{
			name:   "top one",
			caller: client.Identity{ID: 99},
			opts:   BestFriendsOptions{TopN: 1},
			want:   []string{"Prof"},
		},
		{
			name:   "unknown caller keeps everyone",
			caller: client.Identity{},
			opts:   BestFriendsOptions{},
			want:   []string{"Prof", "Me", "Sam"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BestFriends(peers, tt.caller, tt.opts)
			if err != nil {
				t.Fatalf("BestFriends() error = %v", err)
			}
			names, _ := got.Column("user_name")
			if len(names) != len(tt.want) {
				t.Fatalf("names = %v, want %v", names, tt.want)
			}
			for i, n := range tt.want {
				if names[i] != n {
					t.Errorf("names[%d] = %v, want %s", i, names[i], n)
				}
			}
		})
	}
}

func TestBestFriends_MissingColumn(t *testing.T) {
	_, err := BestFriends(table.New("user_id", "user_name"), client.Identity{}, DefaultBestFriendsOptions())
	if !errors.Is(err, table.ErrUnknownColumn) {
		t.Errorf("error = %v, want ErrUnknownColumn", err)
	}
}
