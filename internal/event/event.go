// Package event defines the canonical representation of one backend stream
// signal and the normalizer that produces it from raw wire payloads.
package event

import "time"

// Kind discriminates the closed set of normalized event variants.
type Kind string

const (
	KindAgentUpdate         Kind = "agent_update"
	KindToolCall            Kind = "tool_call"
	KindToolResult          Kind = "tool_result"
	KindRetrievalPlan       Kind = "retrieval_plan"
	KindSourceCallStart     Kind = "source_call_start"
	KindSourceCallDone      Kind = "source_call_done"
	KindCitations           Kind = "citations"
	KindAgentDone           Kind = "agent_done"
	KindAgentError          Kind = "agent_error"
	KindText                Kind = "text"
	KindProgress            Kind = "progress"
	KindScenarioLoaded      Kind = "scenario_loaded"
	KindFreshnessGuardrail  Kind = "freshness_guardrail"
	KindFallbackModeChanged Kind = "fallback_mode_changed"
	KindFabricPreflight     Kind = "fabric_preflight"
	KindOperationalAlert    Kind = "operational_alert"
	KindDone                Kind = "done"
	KindError               Kind = "error"
)

// Citation references one backing source for a claim in the answer.
type Citation struct {
	Source string `json:"source"`
	Ref    string `json:"ref,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Event is the canonical form of one backend signal. Exactly one Kind applies
// per event; fields outside the kind's payload are left at their zero value.
type Event struct {
	Kind Kind
	Time time.Time

	// Source is the canonical source identifier, when the signal names one.
	Source string

	// Text carries answer content for agent_update/text events.
	Text string
	// Message carries human-readable detail for errors, alerts, progress.
	Message string

	// Source call payload.
	RowCount      int
	Rows          []map[string]any
	Columns       []string
	RowsTruncated bool
	Mode          string
	Freshness     string

	// Retrieval plan payload.
	PlanSources []string
	Intent      string
	Confidence  string
	Route       string

	// Bulk per-source row counts from a tool_result.
	Results map[string]int

	// Completion payload.
	Verified bool

	// Operational alert payload.
	Severity string
	Title    string

	Citations []Citation
	Scenario  string
}
