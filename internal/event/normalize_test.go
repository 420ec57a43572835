package event

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeKinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
		ok   bool
	}{
		{"agent update", `{"type":"agent_update","text":"hi"}`, KindAgentUpdate, true},
		{"source call done", `{"type":"source_call_done","source":"kql","row_count":7}`, KindSourceCallDone, true},
		{"retrieval plan", `{"type":"retrieval_plan","steps":[{"source":"sql"}]}`, KindRetrievalPlan, true},
		{"operational alert", `{"type":"operational_alert","severity":"critical"}`, KindOperationalAlert, true},
		{"done", `{"type":"done","verified":true}`, KindDone, true},
		{"unknown kind ignored", `{"type":"telemetry_heartbeat"}`, "", false},
		{"missing type ignored", `{"source":"kql"}`, "", false},
		{"unparsable ignored", `{"type":1234`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Normalize([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && ev.Kind != tt.want {
				t.Errorf("kind = %q, want %q", ev.Kind, tt.want)
			}
		})
	}
}

func TestNormalizeCanonicalizesSources(t *testing.T) {
	ev, ok := Normalize([]byte(`{"type":"source_call_done","source":"kql","row_count":7}`))
	if !ok {
		t.Fatal("expected event")
	}
	if ev.Source != "KQL" {
		t.Errorf("source = %q, want KQL", ev.Source)
	}
	if ev.RowCount != 7 {
		t.Errorf("row count = %d, want 7", ev.RowCount)
	}

	ev, _ = Normalize([]byte(`{"type":"retrieval_plan","steps":[{"source":"sql"},{"source":"vector"},{"source":"sql"}]}`))
	want := []string{"SQL", "VECTOR_REG"}
	if !reflect.DeepEqual(ev.PlanSources, want) {
		t.Errorf("plan sources = %v, want %v", ev.PlanSources, want)
	}

	ev, _ = Normalize([]byte(`{"type":"tool_result","results":{"kusto":4,"graph":2}}`))
	wantResults := map[string]int{"KQL": 4, "GRAPH": 2}
	if !reflect.DeepEqual(ev.Results, wantResults) {
		t.Errorf("results = %v, want %v", ev.Results, wantResults)
	}
}

func TestCanonicalSource(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"kql", "KQL"},
		{"VECTOR", "VECTOR_REG"},
		{"kusto", "KQL"},
		{"sqldb", "SQL"},
		{" graph ", "GRAPH"},
		{"", "UNKNOWN"},
		{"  ", "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := CanonicalSource(tt.raw); got != tt.want {
			t.Errorf("CanonicalSource(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolveTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	started := "2026-08-29T09:00:00Z"
	finished := "2026-08-29T09:05:00Z"
	stamp := "2026-08-29T09:01:00Z"

	tests := []struct {
		name                           string
		startedAt, finishedAt, tsField string
		want                           time.Time
	}{
		{"prefers finished_at", started, finished, stamp, mustParse(t, finished)},
		{"falls back to started_at", started, "", stamp, mustParse(t, started)},
		{"falls back to timestamp", "", "", stamp, mustParse(t, stamp)},
		{"defaults to now", "", "", "", now},
		{"unparsable falls back to now", "", "not-a-date", "", now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTime(tt.startedAt, tt.finishedAt, tt.tsField, now)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}
