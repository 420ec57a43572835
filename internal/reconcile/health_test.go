package reconcile

import (
	"reflect"
	"testing"
	"time"

	"github.com/kestrelview/kestrel/internal/event"
)

var t0 = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

func TestApplyHealthNoOpReturnsSameSlice(t *testing.T) {
	records := []SourceHealth{{Source: "KQL", Status: StatusReady, RowCount: 3}}

	for _, kind := range []event.Kind{
		event.KindAgentUpdate, event.KindText, event.KindCitations,
		event.KindAgentDone, event.KindProgress, event.KindScenarioLoaded,
	} {
		got := ApplyHealth(records, event.Event{Kind: kind, Time: t0})
		if &got[0] != &records[0] {
			t.Errorf("%s: expected the identical slice back, got a reconstruction", kind)
		}
	}
}

func TestApplyHealthSourceCallLifecycle(t *testing.T) {
	var records []SourceHealth

	records = ApplyHealth(records, event.Event{Kind: event.KindSourceCallStart, Source: "KQL", Time: t0, Mode: "live", Freshness: "2m"})
	if len(records) != 1 || records[0].Status != StatusQuerying || records[0].Mode != ModeLive {
		t.Fatalf("after start: %+v", records)
	}

	records = ApplyHealth(records, event.Event{Kind: event.KindSourceCallDone, Source: "KQL", Time: t0.Add(time.Second), RowCount: 7})
	rec := records[0]
	if rec.Status != StatusReady || rec.RowCount != 7 {
		t.Fatalf("after done: %+v", rec)
	}
	if rec.Mode != ModeLive || rec.Freshness != "2m" {
		t.Errorf("mode/freshness lost on done: %+v", rec)
	}
}

func TestApplyHealthRowCountReplacedNotAccumulated(t *testing.T) {
	records := []SourceHealth{{Source: "SQL", Status: StatusReady, RowCount: 40}}
	records = ApplyHealth(records, event.Event{Kind: event.KindSourceCallDone, Source: "SQL", RowCount: 7, Time: t0})
	if records[0].RowCount != 7 {
		t.Errorf("row count = %d, want 7 (replaced, not accumulated)", records[0].RowCount)
	}
}

func TestApplyHealthPlanDoesNotDemoteReadySource(t *testing.T) {
	records := []SourceHealth{
		{Source: "KQL", Status: StatusReady, RowCount: 42},
		{Source: "SQL", Status: StatusIdle},
	}
	plan := event.Event{Kind: event.KindRetrievalPlan, PlanSources: []string{"KQL", "SQL", "GRAPH"}, Time: t0}

	got := ApplyHealth(records, plan)

	if got[0].Status != StatusReady || got[0].RowCount != 42 {
		t.Errorf("ready source demoted by re-plan: %+v", got[0])
	}
	if got[1].Status != StatusQuerying {
		t.Errorf("idle planned source not set querying: %+v", got[1])
	}
	if i := healthIndex(got, "GRAPH"); i < 0 || got[i].Status != StatusQuerying || got[i].Mode != ModeUnknown {
		t.Errorf("new planned source not created querying: %+v", got)
	}
}

func TestApplyHealthExplicitStartDemotesReadySource(t *testing.T) {
	records := []SourceHealth{{Source: "KQL", Status: StatusReady, RowCount: 42}}
	got := ApplyHealth(records, event.Event{Kind: event.KindSourceCallStart, Source: "KQL", Time: t0})
	if got[0].Status != StatusQuerying {
		t.Errorf("explicit start must demote ready back to querying: %+v", got[0])
	}
}

func TestApplyHealthBulkToolResult(t *testing.T) {
	records := []SourceHealth{{Source: "GRAPH", Status: StatusQuerying}}
	ev := event.Event{Kind: event.KindToolResult, Results: map[string]int{"GRAPH": 12, "VECTOR_REG": 3}, Time: t0}

	got := ApplyHealth(records, ev)

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for source, count := range map[string]int{"GRAPH": 12, "VECTOR_REG": 3} {
		i := healthIndex(got, source)
		if i < 0 {
			t.Fatalf("missing record for %s", source)
		}
		if got[i].Status != StatusReady || got[i].RowCount != count {
			t.Errorf("%s: %+v, want ready with %d rows", source, got[i], count)
		}
	}
}

func TestApplyHealthFallbackModeOnlyTouchesMode(t *testing.T) {
	records := []SourceHealth{{Source: "SQL", Status: StatusReady, RowCount: 7, Mode: ModeLive, UpdatedAt: t0}}
	ev := event.Event{Kind: event.KindFallbackModeChanged, Source: "SQL", Mode: "fallback", Time: t0.Add(time.Minute)}

	got := ApplyHealth(records, ev)

	want := records[0]
	want.Mode = ModeFallback
	want.UpdatedAt = t0.Add(time.Minute)
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
}

func TestApplyHealthDoesNotMutateInput(t *testing.T) {
	records := []SourceHealth{{Source: "KQL", Status: StatusQuerying}}
	ApplyHealth(records, event.Event{Kind: event.KindSourceCallDone, Source: "KQL", RowCount: 9, Time: t0})
	if records[0].Status != StatusQuerying || records[0].RowCount != 0 {
		t.Errorf("input slice mutated: %+v", records[0])
	}
}
