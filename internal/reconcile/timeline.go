package reconcile

import (
	"sort"
	"time"

	"github.com/kestrelview/kestrel/internal/event"
)

// Stage identifies one step of the agent's reasoning pipeline.
type Stage string

const (
	StagePIIScan           Stage = "pii_scan"
	StageUnderstanding     Stage = "understanding_request"
	StageIntentMapped      Stage = "intent_mapped"
	StageEvidenceRetrieval Stage = "evidence_retrieval"
	StageDrafting          Stage = "drafting_brief"
	StageEvidenceCheck     Stage = "evidence_check_complete"
)

// Verification outcomes for the evidence check stage.
const (
	VerificationVerified = "Verified"
	VerificationPartial  = "Partial"
)

// stageRank fixes the display order of stages. Unknown stages sort last.
var stageRank = map[Stage]int{
	StagePIIScan:           0,
	StageUnderstanding:     1,
	StageIntentMapped:      2,
	StageEvidenceRetrieval: 3,
	StageDrafting:          4,
	StageEvidenceCheck:     5,
}

const unknownStageRank = 100

func rankOf(stage Stage) int {
	if rank, ok := stageRank[stage]; ok {
		return rank
	}
	return unknownStageRank
}

// StageRecord is one entry of the reasoning timeline. At most one record per
// stage exists at any time.
type StageRecord struct {
	Stage        Stage
	Time         time.Time
	Intent       string
	Confidence   string
	Route        string
	Sources      []string
	CallCount    int
	Verification string
	FailOpen     bool
}

// MergeTimeline folds one stage record into the timeline: an existing record
// for the same stage is replaced by the field-wise union (the new record's
// explicit fields win, but a set old field is never overridden by an unset new
// one), and the timeline is re-sorted by fixed stage rank so the rendered
// pipeline stays monotonic regardless of arrival order.
func MergeTimeline(timeline []StageRecord, rec StageRecord) []StageRecord {
	next := make([]StageRecord, len(timeline))
	copy(next, timeline)

	merged := false
	for i := range next {
		if next[i].Stage == rec.Stage {
			next[i] = mergeStage(next[i], rec)
			merged = true
			break
		}
	}
	if !merged {
		next = append(next, rec)
	}

	sort.SliceStable(next, func(i, j int) bool {
		return rankOf(next[i].Stage) < rankOf(next[j].Stage)
	})
	return next
}

func mergeStage(old, new StageRecord) StageRecord {
	out := old
	if !new.Time.IsZero() {
		out.Time = new.Time
	}
	if new.Intent != "" {
		out.Intent = new.Intent
	}
	if new.Confidence != "" {
		out.Confidence = new.Confidence
	}
	if new.Route != "" {
		out.Route = new.Route
	}
	if len(new.Sources) > 0 {
		out.Sources = new.Sources
	}
	if new.CallCount != 0 {
		out.CallCount = new.CallCount
	}
	if new.Verification != "" {
		out.Verification = new.Verification
		out.FailOpen = new.FailOpen
	}
	return out
}

// ApplyTimeline folds one stream event into the timeline. The backend does
// not emit reasoning-stage events directly; stages are inferred from the
// signals that imply them.
func ApplyTimeline(timeline []StageRecord, ev event.Event) []StageRecord {
	for _, rec := range deriveStages(timeline, ev) {
		timeline = MergeTimeline(timeline, rec)
	}
	return timeline
}

// deriveStages returns the stage records implied by one event, computed
// against the current timeline where a stage accumulates (source sets, call
// counters).
func deriveStages(timeline []StageRecord, ev event.Event) []StageRecord {
	switch ev.Kind {
	case event.KindToolCall, event.KindProgress:
		return []StageRecord{{Stage: StageUnderstanding, Time: ev.Time}}

	case event.KindRetrievalPlan:
		intent := ev.Intent
		if intent == "" {
			intent = "General retrieval"
		}
		confidence := ev.Confidence
		if confidence == "" {
			confidence = "Medium"
		}
		return []StageRecord{
			{Stage: StageIntentMapped, Time: ev.Time, Intent: intent, Confidence: confidence, Route: ev.Route},
			{Stage: StageEvidenceRetrieval, Time: ev.Time, Sources: ev.PlanSources},
		}

	case event.KindSourceCallStart:
		current := stageRecord(timeline, StageEvidenceRetrieval)
		return []StageRecord{{
			Stage:     StageEvidenceRetrieval,
			Time:      ev.Time,
			Sources:   unionSources(current.Sources, ev.Source),
			CallCount: current.CallCount + 1,
		}}

	case event.KindSourceCallDone:
		current := stageRecord(timeline, StageEvidenceRetrieval)
		return []StageRecord{{
			Stage:   StageEvidenceRetrieval,
			Time:    ev.Time,
			Sources: unionSources(current.Sources, ev.Source),
		}}

	case event.KindToolResult:
		if len(ev.Results) == 0 {
			return nil
		}
		current := stageRecord(timeline, StageEvidenceRetrieval)
		rec := StageRecord{Stage: StageEvidenceRetrieval, Time: ev.Time, Sources: current.Sources}
		for source := range ev.Results {
			rec.Sources = unionSources(rec.Sources, source)
		}
		// Backfill the counter for backends that skip start/done granularity.
		if current.CallCount == 0 {
			rec.CallCount = len(ev.Results)
		}
		return []StageRecord{rec}

	case event.KindAgentUpdate, event.KindText:
		if ev.Text == "" {
			return nil
		}
		return []StageRecord{{Stage: StageDrafting, Time: ev.Time}}

	case event.KindAgentDone, event.KindDone:
		verification := VerificationPartial
		if ev.Verified {
			verification = VerificationVerified
		}
		return []StageRecord{{
			Stage:        StageEvidenceCheck,
			Time:         ev.Time,
			Verification: verification,
			FailOpen:     !ev.Verified,
		}}

	case event.KindAgentError, event.KindError:
		return []StageRecord{{
			Stage:        StageEvidenceCheck,
			Time:         ev.Time,
			Verification: VerificationPartial,
			FailOpen:     true,
		}}

	default:
		return nil
	}
}

func stageRecord(timeline []StageRecord, stage Stage) StageRecord {
	for _, rec := range timeline {
		if rec.Stage == stage {
			return rec
		}
	}
	return StageRecord{Stage: stage}
}

// unionSources adds source to the sorted set, returning a fresh slice.
func unionSources(sources []string, source string) []string {
	if source == "" {
		return sources
	}
	for _, existing := range sources {
		if existing == source {
			return sources
		}
	}
	next := make([]string, len(sources), len(sources)+1)
	copy(next, sources)
	next = append(next, source)
	sort.Strings(next)
	return next
}
