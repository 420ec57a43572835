package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the sqlite implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the transcript database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT,
			status TEXT NOT NULL,
			verified INTEGER NOT NULL DEFAULT 0,
			scenario TEXT,
			answer_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turn_events (
			id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			source TEXT,
			payload TEXT,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (turn_id) REFERENCES turns(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turn_events_turn_id ON turn_events(turn_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// SaveTurn inserts or replaces a turn record.
func (s *SQLiteStore) SaveTurn(ctx context.Context, turn *Turn) error {
	now := time.Now().UTC()
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, question, answer, status, verified, scenario, answer_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			answer = excluded.answer,
			status = excluded.status,
			verified = excluded.verified,
			scenario = excluded.scenario,
			answer_tokens = excluded.answer_tokens,
			updated_at = excluded.updated_at`,
		turn.ID, turn.ConversationID, turn.Question, turn.Answer, turn.Status,
		boolToInt(turn.Verified), turn.Scenario, turn.AnswerTokens, createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// AppendEvent stores one normalized event for a turn.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *StoredEvent) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turn_events (id, turn_id, kind, source, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.TurnID, ev.Kind, ev.Source, ev.Payload, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// GetTurn retrieves a turn by id.
func (s *SQLiteStore) GetTurn(ctx context.Context, id string) (*Turn, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, question, answer, status, verified, scenario, answer_tokens, created_at, updated_at
		FROM turns WHERE id = ?`, id)

	var turn Turn
	var answer, scenario sql.NullString
	var verified int
	if err := row.Scan(&turn.ID, &turn.ConversationID, &turn.Question, &answer, &turn.Status,
		&verified, &scenario, &turn.AnswerTokens, &turn.CreatedAt, &turn.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("turn %s not found", id)
		}
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	turn.Answer = answer.String
	turn.Scenario = scenario.String
	turn.Verified = verified != 0
	return &turn, nil
}

// ListEvents retrieves a turn's events in insertion order.
func (s *SQLiteStore) ListEvents(ctx context.Context, turnID string) ([]*StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, turn_id, kind, source, payload, created_at
		FROM turn_events WHERE turn_id = ? ORDER BY created_at, id`, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var source, payload sql.NullString
		if err := rows.Scan(&ev.ID, &ev.TurnID, &ev.Kind, &source, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Source = source.String
		ev.Payload = payload.String
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
