package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/table"
)

// Entry is a stored snapshot.
type Entry struct {
	Key        string           `json:"key"`
	Resource   string           `json:"resource"`
	RunID      string           `json:"run_id,omitempty"`
	Columns    []string         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	CapturedAt time.Time        `json:"captured_at"`
	Expires    time.Time        `json:"expires"`
}

// NewEntry captures a table. Times are stored as RFC 3339 text.
func NewEntry(key Key, t *table.Table, ttl time.Duration) *Entry {
	now := time.Now()
	rows := make([]map[string]any, t.Len())
	for i, r := range t.Rows() {
		rows[i] = r
	}
	return &Entry{
		Key:        key.String(),
		Resource:   key.Resource,
		RunID:      key.RunID,
		Columns:    t.Columns(),
		Rows:       rows,
		CapturedAt: now,
		Expires:    now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Table rebuilds the stored table. Numbers come back as json.Number and
// times as text; Table.Decode converts both into typed records.
func (e *Entry) Table() *table.Table {
	rows := make([]table.Row, len(e.Rows))
	for i, r := range e.Rows {
		rows[i] = r
	}
	return table.FromRows(e.Columns, rows)
}

func decodeEntry(data []byte) (*Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var e Entry
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &e, nil
}
