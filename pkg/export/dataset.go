// Package export renders tables as CSV or XLSX documents.
package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/table"
)

// DateLayout formats date columns.
const DateLayout = "2006-01-02"

// Dataset defines tabular export content.
type Dataset struct {
	// Title names the worksheet in XLSX output.
	Title   string
	Headers []string
	Rows    []map[string]string
}

// FromTable converts a table into a Dataset. Columns listed in dateColumns
// are written as dates; other times use RFC 3339. Nulls become empty cells.
func FromTable(title string, t *table.Table, dateColumns ...string) Dataset {
	dates := make(map[string]bool, len(dateColumns))
	for _, c := range dateColumns {
		dates[c] = true
	}

	data := Dataset{Title: title, Headers: t.Columns()}
	for _, r := range t.Rows() {
		row := make(map[string]string, len(data.Headers))
		for _, h := range data.Headers {
			row[h] = FormatCell(r[h], dates[h])
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// FormatCell renders a single table value.
func FormatCell(v any, asDate bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if asDate {
			return x.Format(DateLayout)
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// records returns the dataset rows in header order.
func (d Dataset) records() [][]string {
	out := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		record := make([]string, len(d.Headers))
		for j, header := range d.Headers {
			record[j] = row[header]
		}
		out[i] = record
	}
	return out
}
