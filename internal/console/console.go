// Package console is the interactive front-end: it owns the single
// authoritative TurnState, folds stream events into it as they arrive, and
// renders the answer, source health, reasoning timeline, and alerts.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelview/kestrel/internal/config"
	"github.com/kestrelview/kestrel/internal/event"
	"github.com/kestrelview/kestrel/internal/prescreen"
	"github.com/kestrelview/kestrel/internal/reconcile"
	"github.com/kestrelview/kestrel/internal/stream"
	"github.com/kestrelview/kestrel/internal/transcript"
	"github.com/kestrelview/kestrel/internal/voice"
)

// fallbackAnswer is shown when the turn ends in an agent error with no
// accumulated answer text.
const fallbackAnswer = "The assistant ran into a problem completing this request. Partial results, if any, are shown below."

// Options wires the console to its collaborators. Prescreen, Voice, and
// Store may be nil when the corresponding feature is disabled.
type Options struct {
	Stream         *stream.Client
	Prescreen      *prescreen.Client
	Voice          *voice.Controller
	Store          transcript.Store
	Ask            config.AskConfig
	ConversationID string
	Logger         *slog.Logger
}

type prescreenMsg struct {
	result prescreen.Result
	err    error
}

type streamStartedMsg struct {
	ch <-chan event.Event
}

type streamFailedMsg struct {
	err error
}

type eventMsg event.Event

type streamClosedMsg struct{}

type voicePreparedMsg struct {
	messageID string
	err       error
}

// Model is the bubbletea model for the console.
type Model struct {
	opts   Options
	logger *slog.Logger

	input   textinput.Model
	spin    spinner.Model
	styles  styles
	width   int
	height  int
	turnSeq int

	question  string
	state     reconcile.TurnState
	events    <-chan event.Event
	collected []event.Event
	streaming bool
	warning   string
	errText   string
}

// New creates the console model.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	input := textinput.New()
	input.Placeholder = "Ask the assistant..."
	input.Focus()
	input.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		opts:   opts,
		logger: opts.Logger,
		input:  input,
		spin:   sp,
		styles: newStyles(),
		state:  reconcile.NewTurnState(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.streaming {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			return m.startTurn(question)
		case "ctrl+v":
			if m.opts.Voice != nil && !m.streaming && m.state.Answer != "" {
				return m, m.playVoiceCmd(m.currentMessageID())
			}
		}

	case prescreenMsg:
		if msg.err != nil {
			// The screen collaborator fails open by policy.
			m.warning = "PII screening unavailable; proceeding unchecked"
			m.logger.Warn("prescreen failed open", slog.String("error", msg.err.Error()))
			return m, m.openStreamCmd()
		}
		if msg.result.Blocked {
			m.streaming = false
			m.errText = msg.result.Message
			if m.errText == "" {
				m.errText = "Message blocked by PII screening"
			}
			m.recordTurn(transcript.StatusBlocked)
			return m, nil
		}
		return m, m.openStreamCmd()

	case streamStartedMsg:
		m.events = msg.ch
		return m, waitForEvent(msg.ch)

	case streamFailedMsg:
		m.streaming = false
		m.errText = msg.err.Error()
		return m, nil

	case eventMsg:
		ev := event.Event(msg)
		m.state = m.state.Apply(ev)
		m.collected = append(m.collected, ev)
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		m.streaming = false
		m.events = nil
		if m.state.Failed && m.state.Answer == "" {
			m.state.Answer = fallbackAnswer
		}
		status := transcript.StatusCompleted
		if m.state.Failed {
			status = transcript.StatusFailed
		}
		m.recordTurn(status)
		if m.opts.Voice != nil && m.state.Answer != "" {
			return m, m.prepareVoiceCmd(m.currentMessageID(), m.state.Answer)
		}
		return m, nil

	case voicePreparedMsg:
		if msg.err != nil && msg.err != voice.ErrSuperseded {
			m.logger.Warn("voice preparation failed",
				slog.String("message_id", msg.messageID),
				slog.String("error", msg.err.Error()),
			)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startTurn resets per-turn state and kicks off the prescreen (when enabled)
// or the stream directly.
func (m Model) startTurn(question string) (Model, tea.Cmd) {
	m.turnSeq++
	m.question = question
	m.state = reconcile.NewTurnState()
	m.collected = nil
	m.warning = ""
	m.errText = ""
	m.streaming = true
	m.input.SetValue("")
	if m.opts.Voice != nil {
		m.opts.Voice.Reset()
	}

	if m.opts.Prescreen != nil {
		return m, tea.Batch(m.spin.Tick, m.prescreenCmd(question))
	}
	return m, tea.Batch(m.spin.Tick, m.openStreamCmd())
}

func (m Model) prescreenCmd(question string) tea.Cmd {
	client := m.opts.Prescreen
	return func() tea.Msg {
		result, err := client.Screen(context.Background(), question)
		return prescreenMsg{result: result, err: err}
	}
}

func (m Model) openStreamCmd() tea.Cmd {
	req := &stream.AskRequest{
		Message:             m.question,
		Mode:                m.opts.Ask.Mode,
		ConversationID:      m.opts.ConversationID,
		Profile:             m.opts.Ask.Profile,
		RequiredSources:     m.opts.Ask.RequiredSources,
		FreshnessSLAMinutes: m.opts.Ask.FreshnessSLAMinutes,
		Explain:             m.opts.Ask.Explain,
		RiskMode:            m.opts.Ask.RiskMode,
		Scenario:            m.opts.Ask.Scenario,
	}
	client := m.opts.Stream
	return func() tea.Msg {
		ch, err := client.Ask(context.Background(), req)
		if err != nil {
			return streamFailedMsg{err: err}
		}
		return streamStartedMsg{ch: ch}
	}
}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) prepareVoiceCmd(messageID, text string) tea.Cmd {
	ctrl := m.opts.Voice
	return func() tea.Msg {
		err := ctrl.Prepare(context.Background(), messageID, text)
		return voicePreparedMsg{messageID: messageID, err: err}
	}
}

func (m Model) playVoiceCmd(messageID string) tea.Cmd {
	ctrl := m.opts.Voice
	return func() tea.Msg {
		if err := ctrl.Play(context.Background(), messageID); err != nil {
			return voicePreparedMsg{messageID: messageID, err: err}
		}
		return nil
	}
}

func (m Model) currentMessageID() string {
	return fmt.Sprintf("turn-%d", m.turnSeq)
}

// recordTurn persists the finished turn best-effort.
func (m Model) recordTurn(status string) {
	if m.opts.Store == nil {
		return
	}
	state := m.state
	if status == transcript.StatusBlocked {
		state = reconcile.NewTurnState()
	}
	go transcript.Record(context.Background(), m.opts.Store, "", m.opts.ConversationID, m.question, status, state, m.collected)
}
