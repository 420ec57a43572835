package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelview/kestrel/internal/reconcile"
)

type styles struct {
	header     lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	muted      lipgloss.Style
	ready      lipgloss.Style
	querying   lipgloss.Style
	errored    lipgloss.Style
	advisory   lipgloss.Style
	warning    lipgloss.Style
	critical   lipgloss.Style
	footer     lipgloss.Style
}

func newStyles() styles {
	teal := lipgloss.Color("#2dd4bf")
	amber := lipgloss.Color("#fbbf24")
	red := lipgloss.Color("#f87171")
	grey := lipgloss.Color("#9ca3af")

	return styles{
		header: lipgloss.NewStyle().
			Foreground(teal).
			Bold(true).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(grey).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(teal).Bold(true),
		muted:      lipgloss.NewStyle().Foreground(grey),
		ready:      lipgloss.NewStyle().Foreground(teal),
		querying:   lipgloss.NewStyle().Foreground(amber),
		errored:    lipgloss.NewStyle().Foreground(red),
		advisory:   lipgloss.NewStyle().Foreground(grey).Bold(true),
		warning:    lipgloss.NewStyle().Foreground(amber).Bold(true),
		critical:   lipgloss.NewStyle().Foreground(red).Bold(true),
		footer:     lipgloss.NewStyle().Foreground(grey).Padding(0, 1),
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.header.Render("kestrel — agentic retrieval console"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.streaming {
		b.WriteString(m.spin.View())
		b.WriteString(m.styles.muted.Render(" working..."))
		b.WriteString("\n")
	}

	if alert := m.state.Alert; alert != nil {
		style := m.styles.warning
		switch alert.Severity {
		case reconcile.SeverityAdvisory:
			style = m.styles.advisory
		case reconcile.SeverityCritical:
			style = m.styles.critical
		}
		line := fmt.Sprintf("%s — %s", alert.Title, alert.Message)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if m.warning != "" {
		b.WriteString(m.styles.warning.Render("⚠ " + m.warning))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(m.styles.errored.Render(m.errText))
		b.WriteString("\n")
	}

	if len(m.state.Timeline) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.panelTitle.Render("Reasoning"))
		b.WriteString("\n")
		for _, rec := range m.state.Timeline {
			b.WriteString("  " + m.renderStage(rec) + "\n")
		}
	}

	if len(m.state.Health) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.panelTitle.Render("Sources"))
		b.WriteString("\n")
		for _, rec := range m.state.Health {
			b.WriteString("  " + m.renderHealth(rec) + "\n")
		}
	}

	if m.state.Answer != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.panel.Render(m.state.Answer))
		b.WriteString("\n")
	}

	if len(m.state.Citations) > 0 {
		refs := make([]string, 0, len(m.state.Citations))
		for _, c := range m.state.Citations {
			refs = append(refs, c.Source)
		}
		b.WriteString(m.styles.muted.Render("cited: " + strings.Join(refs, ", ")))
		b.WriteString("\n")
	}

	help := "enter: ask · ctrl+v: speak · esc: quit"
	if m.opts.Voice == nil {
		help = "enter: ask · esc: quit"
	}
	b.WriteString("\n")
	b.WriteString(m.styles.footer.Render(help))
	return b.String()
}

var stageLabels = map[reconcile.Stage]string{
	reconcile.StagePIIScan:           "PII scan",
	reconcile.StageUnderstanding:     "Understanding request",
	reconcile.StageIntentMapped:      "Intent mapped",
	reconcile.StageEvidenceRetrieval: "Evidence retrieval",
	reconcile.StageDrafting:          "Drafting brief",
	reconcile.StageEvidenceCheck:     "Evidence check",
}

func (m Model) renderStage(rec reconcile.StageRecord) string {
	label, ok := stageLabels[rec.Stage]
	if !ok {
		label = string(rec.Stage)
	}

	var detail string
	switch rec.Stage {
	case reconcile.StageIntentMapped:
		detail = fmt.Sprintf("%s (%s)", rec.Intent, rec.Confidence)
	case reconcile.StageEvidenceRetrieval:
		detail = fmt.Sprintf("%d calls over %s", rec.CallCount, strings.Join(rec.Sources, ", "))
	case reconcile.StageEvidenceCheck:
		detail = rec.Verification
		if rec.FailOpen {
			detail += " (fail-open)"
		}
	}

	line := "✓ " + label
	if detail != "" {
		line += m.styles.muted.Render(" — " + detail)
	}
	return line
}

func (m Model) renderHealth(rec reconcile.SourceHealth) string {
	style := m.styles.muted
	switch rec.Status {
	case reconcile.StatusReady:
		style = m.styles.ready
	case reconcile.StatusQuerying:
		style = m.styles.querying
	case reconcile.StatusError:
		style = m.styles.errored
	}

	line := fmt.Sprintf("%-12s %-9s %6d rows  %s", rec.Source, rec.Status, rec.RowCount, rec.Mode)
	if rec.Freshness != "" {
		line += "  " + rec.Freshness
	}
	return style.Render(line)
}
