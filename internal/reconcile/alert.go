package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelview/kestrel/internal/event"
)

// Severity grades an operational alert.
type Severity string

const (
	SeverityAdvisory Severity = "advisory"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a user-facing operational notice derived from the stream.
type Alert struct {
	ID       string
	Severity Severity
	Title    string
	Message  string
	Source   string
	Time     time.Time
}

// DeriveAlert maps one event to an alert, or reports false when the event
// carries none. It is stateless and idempotent: two calls on the same event
// yield equal alerts apart from the fresh id, so callers are free to
// de-duplicate or apply a latest-wins policy.
func DeriveAlert(ev event.Event) (Alert, bool) {
	switch ev.Kind {
	case event.KindOperationalAlert:
		severity := parseSeverity(ev.Severity)
		title := ev.Title
		if title == "" {
			title = "Operational advisory"
		}
		return Alert{
			ID:       uuid.New().String(),
			Severity: severity,
			Title:    title,
			Message:  ev.Message,
			Source:   ev.Source,
			Time:     ev.Time,
		}, true

	case event.KindAgentError, event.KindError:
		return Alert{
			ID:       uuid.New().String(),
			Severity: SeverityCritical,
			Title:    "Agent runtime alert",
			Message:  ev.Message,
			Source:   ev.Source,
			Time:     ev.Time,
		}, true

	case event.KindFallbackModeChanged:
		if parseMode(ev.Mode) != ModeFallback {
			return Alert{}, false
		}
		return Alert{
			ID:       uuid.New().String(),
			Severity: SeverityWarning,
			Title:    fmt.Sprintf("%s running in fallback mode", ev.Source),
			Message:  ev.Message,
			Source:   ev.Source,
			Time:     ev.Time,
		}, true

	default:
		return Alert{}, false
	}
}

// parseSeverity defaults unrecognized or absent severities to warning.
func parseSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityAdvisory, SeverityWarning, SeverityCritical:
		return Severity(raw)
	default:
		return SeverityWarning
	}
}
