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

// PeerColumns is the fixed peer schema.
var PeerColumns = []string{"course_id", "user_id", "user_name", "user_date", "user_type"}

// Peer is the typed form of a peer row.
type Peer struct {
	CourseID int64      `table:"course_id"`
	UserID   *int64     `table:"user_id"`
	UserName *string    `table:"user_name"`
	UserDate *time.Time `table:"user_date"`
	UserType *string    `table:"user_type"`
}

type rawUser struct {
	ID          nullInt    `json:"id"`
	Name        nullString `json:"name"`
	CreatedAt   nullString `json:"created_at"`
	Enrollments []struct {
		Type nullString `json:"type"`
	} `json:"enrollments"`
}

// PeerMode selects how AllPeers removes duplicates across courses.
type PeerMode int

const (
	// UniquePerCourse keeps one row per (course_id, user_id).
	UniquePerCourse PeerMode = iota
	// UniqueGlobal keeps one row per user_id.
	UniqueGlobal
)

func (m PeerMode) String() string {
	if m == UniqueGlobal {
		return "global"
	}
	return "per_course"
}

// dedupKeys returns the columns a mode is unique on.
func (m PeerMode) dedupKeys() []string {
	if m == UniqueGlobal {
		return []string{"user_id"}
	}
	return []string{"course_id", "user_id"}
}

// NormalizePeers explodes each user into one row per enrollment and keeps
// the first row per user_id. Users without enrollments produce no rows.
func NormalizePeers(courseID int64, items []json.RawMessage) (*table.Table, []Warning, error) {
	var warnings []Warning
	var rows []table.Row

	for i, item := range items {
		var u rawUser
		if err := json.Unmarshal(item, &u); err != nil {
			return nil, warnings, fmt.Errorf("decode user %d of course %d: %w", i, courseID, err)
		}
		if len(u.Enrollments) == 0 {
			continue
		}
		date := dateValue(u.CreatedAt, courseID, "user_date", &warnings)
		for _, e := range u.Enrollments {
			rows = append(rows, table.Row{
				"course_id": courseID,
				"user_id":   u.ID.value(),
				"user_name": u.Name.value(),
				"user_date": date,
				"user_type": e.Type.value(),
			})
		}
	}

	peers, err := table.FromRows(PeerColumns, rows).UniqueBy("user_id")
	if err != nil {
		return nil, warnings, err
	}
	return peers, warnings, nil
}

// Peers lists every user enrolled in a course. A 403 yields a
// *client.PermissionError and a 404 a *client.NotFoundError.
func (c *Client) Peers(ctx context.Context, courseID int64) (*table.Table, error) {
	items, err := c.fetcher.FetchAll(ctx, pagination.Request{
		Resource: "users",
		URL:      c.session.CourseURL(courseID, "users"),
		Query:    url.Values{"include[]": {"enrollments"}},
		MapError: courseErrors(courseID),
	})
	if err != nil {
		return nil, fmt.Errorf("list users of course %d: %w", courseID, err)
	}

	peers, warnings, err := NormalizePeers(courseID, items)
	c.emit(warnings)
	if err != nil {
		return nil, err
	}
	return peers, nil
}
