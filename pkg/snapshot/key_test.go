package snapshot

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "resource only",
			key:  Key{Resource: "courses"},
			want: "canvas:snapshot:courses",
		},
		{
			name: "with caller",
			key:  Key{Resource: "courses", CallerID: 42},
			want: "canvas:snapshot:courses:caller=42",
		},
		{
			name: "course ids are sorted and deduplicated",
			key:  Key{Resource: "peers", CallerID: 42, CourseIDs: []int64{202, 101, 202}},
			want: "canvas:snapshot:peers:caller=42:courses=101,202",
		},
		{
			name: "pinned to a run",
			key:  Key{Resource: "assignments", CourseIDs: []int64{7}, RunID: "abc"},
			want: "canvas:snapshot:assignments:courses=7:run=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_StringDoesNotReorderInput(t *testing.T) {
	ids := []int64{3, 1, 2}
	_ = Key{Resource: "peers", CourseIDs: ids}.String()
	if ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Errorf("String() mutated CourseIDs: %v", ids)
	}
}
