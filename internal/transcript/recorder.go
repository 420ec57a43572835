package transcript

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelview/kestrel/internal/event"
	"github.com/kestrelview/kestrel/internal/reconcile"
)

const persistTimeout = 5 * time.Second

// Record persists a finished turn and its normalized event sequence. It is
// best-effort: failures are logged and never fail the turn. The returned turn
// id is generated when the caller passes none.
func Record(ctx context.Context, store Store, turnID, conversationID, question, status string, state reconcile.TurnState, events []event.Event) string {
	if store == nil {
		return turnID
	}

	logger := slog.Default()
	// Persistence is decoupled from the turn lifecycle so a closed UI does
	// not drop the transcript, but still bounded by a short timeout.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if turnID == "" {
		turnID = "turn_" + uuid.New().String()
	}

	if status == "" {
		status = StatusCompleted
		if state.Failed {
			status = StatusFailed
		}
	}

	turn := &Turn{
		ID:             turnID,
		ConversationID: conversationID,
		Question:       question,
		Answer:         state.Answer,
		Status:         status,
		Verified:       state.Verified,
		Scenario:       state.Scenario,
		AnswerTokens:   EstimateTokens(state.Answer),
	}

	if err := store.SaveTurn(persistCtx, turn); err != nil {
		logger.Error("failed to save turn",
			slog.String("turn_id", turnID),
			slog.String("error", err.Error()),
		)
		return turnID
	}

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			payload = nil
		}
		stored := &StoredEvent{
			ID:        "evt_" + uuid.New().String(),
			TurnID:    turnID,
			Kind:      string(ev.Kind),
			Source:    ev.Source,
			Payload:   string(payload),
			CreatedAt: ev.Time,
		}
		if err := store.AppendEvent(persistCtx, stored); err != nil {
			logger.Error("failed to append turn event",
				slog.String("turn_id", turnID),
				slog.String("kind", string(ev.Kind)),
				slog.String("error", err.Error()),
			)
			return turnID
		}
	}
	return turnID
}
