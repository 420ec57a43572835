package event

import (
	"encoding/json"
	"time"
)

// planStep is one entry of a retrieval plan's steps array.
type planStep struct {
	Source string `json:"source"`
}

// envelope is the loosely-typed wire shape shared by all event kinds. Fields
// irrelevant to a given kind are simply absent from the payload.
type envelope struct {
	Type          string           `json:"type"`
	Source        string           `json:"source"`
	Text          string           `json:"text"`
	Message       string           `json:"message"`
	RowCount      int              `json:"row_count"`
	Rows          []map[string]any `json:"rows"`
	Columns       []string         `json:"columns"`
	RowsTruncated bool             `json:"rows_truncated"`
	Mode          string           `json:"mode"`
	Freshness     string           `json:"freshness"`
	Steps         []planStep       `json:"steps"`
	Intent        string           `json:"intent"`
	Confidence    string           `json:"confidence"`
	Route         string           `json:"route"`
	Results       map[string]int   `json:"results"`
	Verified      bool             `json:"verified"`
	Severity      string           `json:"severity"`
	Title         string           `json:"title"`
	Citations     []Citation       `json:"citations"`
	Scenario      string           `json:"scenario"`
	StartedAt     string           `json:"started_at"`
	FinishedAt    string           `json:"finished_at"`
	Timestamp     string           `json:"timestamp"`
}

// knownKinds is the closed set of recognized type discriminators.
var knownKinds = map[string]Kind{
	"agent_update":          KindAgentUpdate,
	"tool_call":             KindToolCall,
	"tool_result":           KindToolResult,
	"retrieval_plan":        KindRetrievalPlan,
	"source_call_start":     KindSourceCallStart,
	"source_call_done":      KindSourceCallDone,
	"citations":             KindCitations,
	"agent_done":            KindAgentDone,
	"agent_error":           KindAgentError,
	"text":                  KindText,
	"progress":              KindProgress,
	"scenario_loaded":       KindScenarioLoaded,
	"freshness_guardrail":   KindFreshnessGuardrail,
	"fallback_mode_changed": KindFallbackModeChanged,
	"fabric_preflight":      KindFabricPreflight,
	"operational_alert":     KindOperationalAlert,
	"done":                  KindDone,
	"error":                 KindError,
}

// ResolveTime picks the single display timestamp for an event: finished_at is
// preferred, then started_at, then timestamp. A missing or unparsable value
// falls back to now. Every consumer of event times must go through this
// function so the UI orders events consistently.
func ResolveTime(startedAt, finishedAt, timestamp string, now time.Time) time.Time {
	for _, candidate := range []string{finishedAt, startedAt, timestamp} {
		if candidate == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, candidate); err == nil {
			return ts
		}
		// A present but unparsable value falls through to now rather than
		// trying weaker candidates; the triple is expected to be uniform.
		return now
	}
	return now
}

// Normalize maps one raw JSON payload to its canonical event. The second
// return is false when the payload is unparsable or its type discriminator is
// unrecognized; such payloads produce no downstream event but are not errors.
func Normalize(raw []byte) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, false
	}

	kind, ok := knownKinds[env.Type]
	if !ok {
		return Event{}, false
	}

	ev := Event{
		Kind:          kind,
		Time:          ResolveTime(env.StartedAt, env.FinishedAt, env.Timestamp, time.Now()),
		Text:          env.Text,
		Message:       env.Message,
		RowCount:      env.RowCount,
		Rows:          env.Rows,
		Columns:       env.Columns,
		RowsTruncated: env.RowsTruncated,
		Mode:          env.Mode,
		Freshness:     env.Freshness,
		Intent:        env.Intent,
		Confidence:    env.Confidence,
		Route:         env.Route,
		Verified:      env.Verified,
		Severity:      env.Severity,
		Title:         env.Title,
		Citations:     env.Citations,
		Scenario:      env.Scenario,
	}

	if env.Source != "" {
		ev.Source = CanonicalSource(env.Source)
	}

	if len(env.Steps) > 0 {
		ev.PlanSources = make([]string, 0, len(env.Steps))
		seen := make(map[string]bool, len(env.Steps))
		for _, step := range env.Steps {
			id := CanonicalSource(step.Source)
			if seen[id] {
				continue
			}
			seen[id] = true
			ev.PlanSources = append(ev.PlanSources, id)
		}
	}

	if len(env.Results) > 0 {
		ev.Results = make(map[string]int, len(env.Results))
		for source, count := range env.Results {
			ev.Results[CanonicalSource(source)] = count
		}
	}

	return ev, true
}
