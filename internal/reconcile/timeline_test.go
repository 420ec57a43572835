package reconcile

import (
	"reflect"
	"testing"
	"time"

	"github.com/kestrelview/kestrel/internal/event"
)

func stages(timeline []StageRecord) []Stage {
	out := make([]Stage, len(timeline))
	for i, rec := range timeline {
		out[i] = rec.Stage
	}
	return out
}

func TestMergeTimelineKeepsStageOrder(t *testing.T) {
	// Records arrive out of pipeline order; the timeline must still render
	// in the fixed stage order.
	var timeline []StageRecord
	for _, stage := range []Stage{StageDrafting, StagePIIScan, StageEvidenceRetrieval, StageUnderstanding} {
		timeline = MergeTimeline(timeline, StageRecord{Stage: stage, Time: t0})
	}

	want := []Stage{StagePIIScan, StageUnderstanding, StageEvidenceRetrieval, StageDrafting}
	if got := stages(timeline); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestMergeTimelineFieldUnion(t *testing.T) {
	timeline := MergeTimeline(nil, StageRecord{
		Stage:      StageIntentMapped,
		Time:       t0,
		Intent:     "Incident triage",
		Confidence: "High",
	})

	// An unset field in the new record must not clobber the old value.
	timeline = MergeTimeline(timeline, StageRecord{Stage: StageIntentMapped, Time: t0.Add(time.Second), Route: "kql-first"})

	if len(timeline) != 1 {
		t.Fatalf("expected one record per stage, got %d", len(timeline))
	}
	rec := timeline[0]
	if rec.Intent != "Incident triage" || rec.Confidence != "High" || rec.Route != "kql-first" {
		t.Errorf("merged record = %+v", rec)
	}
	if !rec.Time.Equal(t0.Add(time.Second)) {
		t.Errorf("time not advanced: %v", rec.Time)
	}
}

func TestMergeTimelineVerificationCarriesFailOpen(t *testing.T) {
	timeline := MergeTimeline(nil, StageRecord{Stage: StageEvidenceCheck, Verification: VerificationPartial, FailOpen: true})
	timeline = MergeTimeline(timeline, StageRecord{Stage: StageEvidenceCheck, Verification: VerificationVerified, FailOpen: false})

	if rec := timeline[0]; rec.Verification != VerificationVerified || rec.FailOpen {
		t.Errorf("verification override must reset fail-open: %+v", rec)
	}
}

func TestApplyTimelineRetrievalPlan(t *testing.T) {
	ev := event.Event{
		Kind:        event.KindRetrievalPlan,
		Time:        t0,
		PlanSources: []string{"GRAPH", "SQL"},
	}

	timeline := ApplyTimeline(nil, ev)

	want := []Stage{StageIntentMapped, StageEvidenceRetrieval}
	if got := stages(timeline); !reflect.DeepEqual(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}

	intent := timeline[0]
	if intent.Intent != "General retrieval" || intent.Confidence != "Medium" {
		t.Errorf("missing plan fields must default: %+v", intent)
	}

	retrieval := timeline[1]
	if !reflect.DeepEqual(retrieval.Sources, []string{"GRAPH", "SQL"}) {
		t.Errorf("sources = %v", retrieval.Sources)
	}
	if retrieval.CallCount != 0 {
		t.Errorf("plan alone must not count calls: %d", retrieval.CallCount)
	}
}

func TestApplyTimelineSourceCallsAccumulate(t *testing.T) {
	timeline := ApplyTimeline(nil, event.Event{Kind: event.KindRetrievalPlan, Time: t0, PlanSources: []string{"KQL"}})
	timeline = ApplyTimeline(timeline, event.Event{Kind: event.KindSourceCallStart, Source: "KQL", Time: t0})
	timeline = ApplyTimeline(timeline, event.Event{Kind: event.KindSourceCallStart, Source: "GRAPH", Time: t0})
	timeline = ApplyTimeline(timeline, event.Event{Kind: event.KindSourceCallDone, Source: "GRAPH", Time: t0})

	rec := stageRecord(timeline, StageEvidenceRetrieval)
	if !reflect.DeepEqual(rec.Sources, []string{"GRAPH", "KQL"}) {
		t.Errorf("sources = %v, want sorted union", rec.Sources)
	}
	if rec.CallCount != 2 {
		t.Errorf("call count = %d, want 2 (done must not increment)", rec.CallCount)
	}
}

func TestApplyTimelineToolResultBackfillsCount(t *testing.T) {
	ev := event.Event{Kind: event.KindToolResult, Time: t0, Results: map[string]int{"GRAPH": 12, "VECTOR_REG": 3}}

	timeline := ApplyTimeline(nil, ev)
	rec := stageRecord(timeline, StageEvidenceRetrieval)
	if rec.CallCount != 2 {
		t.Errorf("call count = %d, want backfilled 2", rec.CallCount)
	}
	if !reflect.DeepEqual(rec.Sources, []string{"GRAPH", "VECTOR_REG"}) {
		t.Errorf("sources = %v", rec.Sources)
	}

	// With prior explicit starts the counter is already authoritative.
	timeline = ApplyTimeline(nil, event.Event{Kind: event.KindSourceCallStart, Source: "GRAPH", Time: t0})
	timeline = ApplyTimeline(timeline, ev)
	if got := stageRecord(timeline, StageEvidenceRetrieval).CallCount; got != 1 {
		t.Errorf("call count = %d, want 1 (no backfill over explicit starts)", got)
	}
}

func TestApplyTimelineDrafting(t *testing.T) {
	if got := ApplyTimeline(nil, event.Event{Kind: event.KindAgentUpdate, Time: t0}); len(got) != 0 {
		t.Errorf("empty text must not imply drafting: %v", got)
	}
	timeline := ApplyTimeline(nil, event.Event{Kind: event.KindAgentUpdate, Text: "The incident", Time: t0})
	if got := stages(timeline); !reflect.DeepEqual(got, []Stage{StageDrafting}) {
		t.Errorf("stages = %v", got)
	}
}

func TestApplyTimelineCompletion(t *testing.T) {
	tests := []struct {
		name         string
		ev           event.Event
		verification string
		failOpen     bool
	}{
		{"done verified", event.Event{Kind: event.KindAgentDone, Verified: true, Time: t0}, VerificationVerified, false},
		{"done unverified", event.Event{Kind: event.KindDone, Time: t0}, VerificationPartial, true},
		{"agent error", event.Event{Kind: event.KindAgentError, Time: t0}, VerificationPartial, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := stageRecord(ApplyTimeline(nil, tt.ev), StageEvidenceCheck)
			if rec.Verification != tt.verification || rec.FailOpen != tt.failOpen {
				t.Errorf("got %+v, want {%s failOpen=%v}", rec, tt.verification, tt.failOpen)
			}
		})
	}
}

func TestApplyTimelinePermutationInvariant(t *testing.T) {
	// The rendered stage order never depends on event arrival order.
	events := []event.Event{
		{Kind: event.KindAgentUpdate, Text: "draft", Time: t0},
		{Kind: event.KindRetrievalPlan, PlanSources: []string{"SQL"}, Time: t0},
		{Kind: event.KindProgress, Time: t0},
		{Kind: event.KindAgentDone, Verified: true, Time: t0},
	}
	perms := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}, {1, 3, 0, 2}}
	want := []Stage{StageUnderstanding, StageIntentMapped, StageEvidenceRetrieval, StageDrafting, StageEvidenceCheck}

	for _, perm := range perms {
		var timeline []StageRecord
		for _, i := range perm {
			timeline = ApplyTimeline(timeline, events[i])
		}
		if got := stages(timeline); !reflect.DeepEqual(got, want) {
			t.Errorf("perm %v: stages = %v, want %v", perm, got, want)
		}
	}
}
