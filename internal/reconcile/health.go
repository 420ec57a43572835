// Package reconcile folds normalized stream events into the derived,
// monotonically-improving state the console renders: per-source health, the
// reasoning timeline, bounded result snapshots, and operational alerts. Every
// fold is total and pure; the caller owns the single authoritative copy.
package reconcile

import (
	"time"

	"github.com/kestrelview/kestrel/internal/event"
)

// Status is the query lifecycle state of one source.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusQuerying Status = "querying"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
)

// Mode reports whether a source is serving live data or a fallback replica.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeFallback Mode = "fallback"
	ModeUnknown  Mode = "unknown"
)

// SourceHealth is the tracked state of one backing source, keyed by its
// canonical id. Records are created lazily on first mention.
type SourceHealth struct {
	Source    string
	Status    Status
	RowCount  int
	Mode      Mode
	Freshness string
	UpdatedAt time.Time
}

// ApplyHealth folds one event into the source health records. Event kinds
// outside the transition table return the input slice unchanged, not a
// reconstruction, so callers can cheaply detect no-ops.
func ApplyHealth(records []SourceHealth, ev event.Event) []SourceHealth {
	switch ev.Kind {
	case event.KindRetrievalPlan:
		if len(ev.PlanSources) == 0 {
			return records
		}
		next := cloneHealth(records)
		for _, source := range ev.PlanSources {
			i := healthIndex(next, source)
			if i < 0 {
				next = append(next, SourceHealth{
					Source:    source,
					Status:    StatusQuerying,
					Mode:      ModeUnknown,
					UpdatedAt: ev.Time,
				})
				continue
			}
			// A re-plan must not revert a completed source to running.
			if next[i].Status == StatusReady {
				continue
			}
			next[i].Status = StatusQuerying
			next[i].UpdatedAt = ev.Time
		}
		return next

	case event.KindSourceCallStart:
		next, i := upsertHealth(records, ev.Source, StatusQuerying, ev.Time)
		next[i].Status = StatusQuerying
		applyModeFreshness(&next[i], ev)
		next[i].UpdatedAt = ev.Time
		return next

	case event.KindSourceCallDone:
		next, i := upsertHealth(records, ev.Source, StatusReady, ev.Time)
		next[i].Status = StatusReady
		next[i].RowCount = ev.RowCount
		applyModeFreshness(&next[i], ev)
		next[i].UpdatedAt = ev.Time
		return next

	case event.KindToolResult:
		if len(ev.Results) == 0 {
			return records
		}
		// All sources in the batch are applied together.
		next := cloneHealth(records)
		for source, count := range ev.Results {
			i := healthIndex(next, source)
			if i < 0 {
				next = append(next, SourceHealth{Source: source, Mode: ModeUnknown})
				i = len(next) - 1
			}
			next[i].Status = StatusReady
			next[i].RowCount = count
			next[i].UpdatedAt = ev.Time
		}
		return next

	case event.KindFallbackModeChanged:
		if ev.Source == "" {
			return records
		}
		next := cloneHealth(records)
		i := healthIndex(next, ev.Source)
		if i < 0 {
			next = append(next, SourceHealth{Source: ev.Source, Status: StatusIdle, Mode: ModeUnknown})
			i = len(next) - 1
		}
		if mode := parseMode(ev.Mode); mode != "" {
			next[i].Mode = mode
		}
		next[i].UpdatedAt = ev.Time
		return next

	default:
		return records
	}
}

func cloneHealth(records []SourceHealth) []SourceHealth {
	next := make([]SourceHealth, len(records))
	copy(next, records)
	return next
}

func healthIndex(records []SourceHealth, source string) int {
	for i := range records {
		if records[i].Source == source {
			return i
		}
	}
	return -1
}

// upsertHealth clones the records and ensures a record exists for source,
// creating one with the given initial status and unknown mode if needed.
func upsertHealth(records []SourceHealth, source string, initial Status, at time.Time) ([]SourceHealth, int) {
	next := cloneHealth(records)
	i := healthIndex(next, source)
	if i < 0 {
		next = append(next, SourceHealth{
			Source:    source,
			Status:    initial,
			Mode:      ModeUnknown,
			UpdatedAt: at,
		})
		i = len(next) - 1
	}
	return next, i
}

func applyModeFreshness(rec *SourceHealth, ev event.Event) {
	if mode := parseMode(ev.Mode); mode != "" {
		rec.Mode = mode
	}
	if ev.Freshness != "" {
		rec.Freshness = ev.Freshness
	}
}

// parseMode returns the canonical mode, or "" when the raw value is absent.
func parseMode(raw string) Mode {
	switch raw {
	case "":
		return ""
	case string(ModeLive):
		return ModeLive
	case string(ModeFallback):
		return ModeFallback
	default:
		return ModeUnknown
	}
}
