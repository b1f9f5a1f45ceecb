package snapshot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key identifies a published snapshot.
type Key struct {
	// Resource is the table kind, e.g. "assignments" or "peers".
	Resource string

	// CallerID is the Canvas user the data was fetched as (0 if unknown).
	CallerID int64

	// CourseIDs are the courses covered. Order does not matter.
	CourseIDs []int64

	// RunID pins the key to one aggregate run. Empty means the latest run.
	RunID string
}

// String generates a deterministic key string.
// Format: canvas:snapshot:resource:caller=ID:courses=ID,ID:run=RUN
//
// Example:
//
//	canvas:snapshot:peers:caller=42:courses=101,202
func (k Key) String() string {
	parts := []string{"canvas", "snapshot"}

	if r := strings.Trim(k.Resource, ":"); r != "" {
		parts = append(parts, r)
	}

	if k.CallerID > 0 {
		parts = append(parts, fmt.Sprintf("caller=%d", k.CallerID))
	}

	if len(k.CourseIDs) > 0 {
		ids := append([]int64(nil), k.CourseIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		s := make([]string, 0, len(ids))
		for i, id := range ids {
			if i > 0 && id == ids[i-1] {
				continue
			}
			s = append(s, strconv.FormatInt(id, 10))
		}
		parts = append(parts, "courses="+strings.Join(s, ","))
	}

	if k.RunID != "" {
		parts = append(parts, "run="+k.RunID)
	}

	return strings.Join(parts, ":")
}
