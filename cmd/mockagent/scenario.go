package main

import (
	"time"
)

// step is one scripted stream event: a payload factory plus the delay before
// it is emitted. Payloads are factories so timestamps are fresh per run.
type step struct {
	delay   time.Duration
	payload func() map[string]any
}

func stamped(fields map[string]any) func() map[string]any {
	return func() map[string]any {
		out := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			out[k] = v
		}
		if _, ok := out["timestamp"]; !ok {
			out["timestamp"] = time.Now().UTC().Format(time.RFC3339)
		}
		return out
	}
}

func scenarioFor(name string) []step {
	switch name {
	case "agent_failure":
		return agentFailureScenario
	default:
		return incidentBriefScenario
	}
}

// incidentBriefScenario walks the full happy path: plan, per-source calls
// including a fallback transition, bulk results, guardrails, drafting, and a
// verified completion. Stage-implying events are interleaved the way the real
// backend emits them, including signals arriving after later stages started.
var incidentBriefScenario = []step{
	{0, stamped(map[string]any{"type": "progress", "message": "Parsing request"})},
	{50 * time.Millisecond, stamped(map[string]any{"type": "scenario_loaded", "scenario": "incident_brief"})},
	{80 * time.Millisecond, stamped(map[string]any{
		"type":       "retrieval_plan",
		"intent":     "Incident impact summary",
		"confidence": "High",
		"route":      "ops",
		"steps": []map[string]any{
			{"source": "kql"}, {"source": "sql"}, {"source": "graph"}, {"source": "vector"},
		},
	})},
	{30 * time.Millisecond, stamped(map[string]any{"type": "fabric_preflight", "message": "Fabric capacity check passed"})},
	{60 * time.Millisecond, stamped(map[string]any{"type": "source_call_start", "source": "kql", "mode": "live", "freshness": "2m"})},
	{200 * time.Millisecond, stamped(map[string]any{
		"type": "source_call_done", "source": "kql", "row_count": 42,
		"columns": []string{"timestamp", "service", "error_rate", "_shard"},
		"rows": []map[string]any{
			{"timestamp": "2026-08-29T09:14:00Z", "service": "checkout", "error_rate": 0.31, "_shard": "eu-1"},
			{"timestamp": "2026-08-29T09:15:00Z", "service": "checkout", "error_rate": 0.42, "_shard": "eu-1"},
		},
	})},
	{40 * time.Millisecond, stamped(map[string]any{"type": "source_call_start", "source": "sql"})},
	{70 * time.Millisecond, stamped(map[string]any{
		"type": "fallback_mode_changed", "source": "sql", "mode": "fallback",
		"message": "Primary replica lagging; serving from read replica",
	})},
	{150 * time.Millisecond, stamped(map[string]any{
		"type": "source_call_done", "source": "sql", "row_count": 7, "mode": "fallback", "freshness": "14m",
	})},
	{90 * time.Millisecond, stamped(map[string]any{
		"type": "tool_result", "results": map[string]int{"graph": 12, "vector": 3},
	})},
	{40 * time.Millisecond, stamped(map[string]any{
		"type": "freshness_guardrail", "source": "sql", "message": "SQL data older than requested SLA",
	})},
	{100 * time.Millisecond, stamped(map[string]any{
		"type": "agent_update", "text": "Checkout error rates spiked to 42% at 09:15 UTC. ",
	})},
	{120 * time.Millisecond, stamped(map[string]any{
		"type": "agent_update", "text": "The failure correlates with the 09:10 deploy of payment-router; ",
	})},
	{120 * time.Millisecond, stamped(map[string]any{
		"type": "agent_update", "text": "7 downstream services show elevated retries. Recommend rolling back.",
	})},
	{60 * time.Millisecond, stamped(map[string]any{
		"type": "citations",
		"citations": []map[string]any{
			{"source": "kql", "ref": "errors-by-service"},
			{"source": "graph", "ref": "service-dependencies"},
		},
	})},
	{40 * time.Millisecond, stamped(map[string]any{
		"type": "operational_alert", "severity": "advisory", "title": "Freshness SLA",
		"source": "sql", "message": "One source answered from a lagging replica",
	})},
	{80 * time.Millisecond, stamped(map[string]any{"type": "agent_done", "verified": true})},
}

// agentFailureScenario exercises the error path: partial retrieval, then a
// backend-reported agent error that terminates the turn.
var agentFailureScenario = []step{
	{0, stamped(map[string]any{"type": "progress", "message": "Parsing request"})},
	{50 * time.Millisecond, stamped(map[string]any{
		"type":  "retrieval_plan",
		"steps": []map[string]any{{"source": "kql"}, {"source": "sql"}},
	})},
	{60 * time.Millisecond, stamped(map[string]any{"type": "source_call_start", "source": "kql"})},
	{150 * time.Millisecond, stamped(map[string]any{"type": "source_call_done", "source": "kql", "row_count": 3})},
	{100 * time.Millisecond, stamped(map[string]any{
		"type": "agent_error", "message": "Planner exceeded step budget while expanding the graph query",
	})},
}
