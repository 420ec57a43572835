package reconcile

import (
	"sort"
	"strings"

	"github.com/kestrelview/kestrel/internal/event"
)

const (
	maxPreviewRows    = 5
	maxPreviewColumns = 8
	// internalColumnPrefix marks backend-internal columns excluded from previews.
	internalColumnPrefix = "_"
)

// Snapshot is a bounded preview of one source call's result, kept small so a
// large backend payload cannot balloon client memory or render time.
type Snapshot struct {
	Source        string
	Columns       []string
	Rows          []map[string]any
	TotalRows     int
	RowsTruncated bool
	Mode          string
	Freshness     string
}

// BuildSnapshot extracts a preview from a source_call_done event: at most
// maxPreviewColumns distinct non-internal columns (the event's explicit list
// wins, otherwise inferred from the first row) and at most maxPreviewRows
// rows, copied so the snapshot never aliases the event payload.
func BuildSnapshot(ev event.Event) (Snapshot, bool) {
	if ev.Kind != event.KindSourceCallDone {
		return Snapshot{}, false
	}

	columns := selectColumns(ev)

	rowLimit := len(ev.Rows)
	truncated := ev.RowsTruncated
	if rowLimit > maxPreviewRows {
		rowLimit = maxPreviewRows
		truncated = true
	}

	rows := make([]map[string]any, 0, rowLimit)
	for _, row := range ev.Rows[:rowLimit] {
		preview := make(map[string]any, len(columns))
		for _, col := range columns {
			if v, ok := row[col]; ok {
				preview[col] = v
			}
		}
		rows = append(rows, preview)
	}

	total := ev.RowCount
	if total == 0 {
		total = len(ev.Rows)
	}

	return Snapshot{
		Source:        ev.Source,
		Columns:       columns,
		Rows:          rows,
		TotalRows:     total,
		RowsTruncated: truncated,
		Mode:          ev.Mode,
		Freshness:     ev.Freshness,
	}, true
}

// selectColumns picks the preview columns: the event's explicit list when
// present, otherwise the keys of the first row, internal columns excluded and
// capped at maxPreviewColumns.
func selectColumns(ev event.Event) []string {
	candidates := ev.Columns
	if len(candidates) == 0 && len(ev.Rows) > 0 {
		for key := range ev.Rows[0] {
			candidates = append(candidates, key)
		}
		sort.Strings(candidates)
	}

	columns := make([]string, 0, maxPreviewColumns)
	seen := make(map[string]bool, len(candidates))
	for _, col := range candidates {
		if strings.HasPrefix(col, internalColumnPrefix) || seen[col] {
			continue
		}
		seen[col] = true
		columns = append(columns, col)
		if len(columns) == maxPreviewColumns {
			break
		}
	}
	return columns
}
