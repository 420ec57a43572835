// Package transcript persists completed turns and their normalized event
// sequences. Persistence is best-effort: a store failure is logged and never
// fails the turn.
package transcript

import (
	"context"
	"time"
)

// Turn statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusBlocked   = "blocked"
)

// Turn is one persisted user turn.
type Turn struct {
	ID             string
	ConversationID string
	Question       string
	Answer         string
	Status         string
	Verified       bool
	Scenario       string
	AnswerTokens   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StoredEvent is one normalized event persisted alongside its turn.
type StoredEvent struct {
	ID        string
	TurnID    string
	Kind      string
	Source    string
	Payload   string
	CreatedAt time.Time
}

// Store persists turns and their event sequences.
type Store interface {
	SaveTurn(ctx context.Context, turn *Turn) error
	AppendEvent(ctx context.Context, ev *StoredEvent) error
	GetTurn(ctx context.Context, id string) (*Turn, error)
	ListEvents(ctx context.Context, turnID string) ([]*StoredEvent, error)
	Close() error
}
