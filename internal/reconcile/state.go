package reconcile

import "github.com/kestrelview/kestrel/internal/event"

// TurnState is the reconciled view of one user turn. Apply is a pure fold;
// the caller owns the single authoritative copy and must not mutate it from
// outside the fold sequence.
type TurnState struct {
	Answer    string
	Health    []SourceHealth
	Timeline  []StageRecord
	Snapshots map[string]Snapshot
	Alert     *Alert
	Citations []event.Citation
	Scenario  string
	Done      bool
	Verified  bool
	Failed    bool
	// FailureMessage holds the backend-reported error detail when Failed.
	FailureMessage string
}

// NewTurnState returns the empty state for the start of a user turn.
func NewTurnState() TurnState {
	return TurnState{}
}

// Apply folds one normalized event into the state. It is total: every event,
// including error kinds, yields a valid successor state.
func (s TurnState) Apply(ev event.Event) TurnState {
	next := s
	next.Health = ApplyHealth(s.Health, ev)
	next.Timeline = ApplyTimeline(s.Timeline, ev)

	if snap, ok := BuildSnapshot(ev); ok {
		snapshots := make(map[string]Snapshot, len(s.Snapshots)+1)
		for k, v := range s.Snapshots {
			snapshots[k] = v
		}
		snapshots[snap.Source] = snap
		next.Snapshots = snapshots
	}

	// Latest alert wins for display; the deriver itself is stateless.
	if alert, ok := DeriveAlert(ev); ok {
		next.Alert = &alert
	}

	switch ev.Kind {
	case event.KindAgentUpdate, event.KindText:
		next.Answer = s.Answer + ev.Text
	case event.KindCitations:
		next.Citations = ev.Citations
	case event.KindScenarioLoaded:
		next.Scenario = ev.Scenario
	case event.KindAgentDone, event.KindDone:
		next.Done = true
		next.Verified = ev.Verified
	case event.KindAgentError, event.KindError:
		next.Failed = true
		next.Done = true
		next.FailureMessage = ev.Message
	}
	return next
}
