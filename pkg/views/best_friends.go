package views

import (
	"fmt"

	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/Sternrassler/canvas-lms-client/pkg/table"
)

// StudentEnrollment is the enrollment type kept by StudentsOnly.
const StudentEnrollment = "StudentEnrollment"

// BestFriendsColumns is the output schema of BestFriends.
var BestFriendsColumns = []string{"user_id", "user_name", "shared_courses"}

// BestFriendsOptions controls BestFriends.
type BestFriendsOptions struct {
	// TopN limits the result. Zero or negative returns every peer.
	TopN int
	// StudentsOnly drops teacher, TA and other non-student enrollments.
	StudentsOnly bool
}

// DefaultBestFriendsOptions returns the top ten peers of any enrollment type.
func DefaultBestFriendsOptions() BestFriendsOptions {
	return BestFriendsOptions{TopN: 10}
}

// BestFriends counts how many peer rows each user has, which for a per-course
// peer table is the number of courses shared with the caller. The caller is
// excluded by id, or by name when the identity has no id. Ties keep the order
// in which users first appear.
func BestFriends(peers *table.Table, caller client.Identity, opts BestFriendsOptions) (*table.Table, error) {
	for _, col := range []string{"user_id", "user_name", "user_type"} {
		if !peers.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", table.ErrUnknownColumn, col)
		}
	}

	filtered := peers.Filter(func(r table.Row) bool {
		if isCaller(r, caller) {
			return false
		}
		if opts.StudentsOnly {
			t, _ := r["user_type"].(string)
			return t == StudentEnrollment
		}
		return true
	})

	type group struct {
		row   table.Row
		count int64
	}
	var order []*group
	groups := make(map[string]*group)
	for _, r := range filtered.Rows() {
		k := fmt.Sprintf("%T=%v\x1f%T=%v", r["user_id"], r["user_id"], r["user_name"], r["user_name"])
		g, ok := groups[k]
		if !ok {
			g = &group{row: table.Row{"user_id": r["user_id"], "user_name": r["user_name"]}}
			groups[k] = g
			order = append(order, g)
		}
		g.count++
	}

	rows := make([]table.Row, len(order))
	for i, g := range order {
		g.row["shared_courses"] = g.count
		rows[i] = g.row
	}

	out := table.FromRows(BestFriendsColumns, rows).SortStable(func(a, b table.Row) bool {
		return a["shared_courses"].(int64) > b["shared_courses"].(int64)
	})
	if opts.TopN > 0 {
		out = out.Head(opts.TopN)
	}
	return out, nil
}

func isCaller(r table.Row, caller client.Identity) bool {
	if caller.ID != 0 {
		id, ok := r["user_id"].(int64)
		return ok && id == caller.ID
	}
	if caller.Name != "" {
		name, ok := r["user_name"].(string)
		return ok && name == caller.Name
	}
	return false
}
