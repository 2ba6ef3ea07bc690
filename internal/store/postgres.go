package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danielolamide0/lumomemory/internal/domain"
)

// PostgresStore es el backend durable opcional detras de la misma interfaz
// ConversationStore. El orden de insercion lo fija la columna seq.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema crea las tablas si no existen.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS conversation_sessions (
			id                 TEXT PRIMARY KEY,
			persona_id         TEXT NOT NULL,
			persona            TEXT NOT NULL,
			persona_created_at TIMESTAMPTZ NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS conversation_messages (
			seq        BIGSERIAL PRIMARY KEY,
			id         TEXT NOT NULL,
			session_id TEXT NOT NULL REFERENCES conversation_sessions(id) ON DELETE CASCADE,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_messages_session
			ON conversation_messages (session_id, seq);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, sessionID string, persona domain.Message) (domain.Session, bool, error) {
	const query = `
		INSERT INTO conversation_sessions (id, persona_id, persona, persona_created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`
	sess := domain.Session{ID: sessionID, Persona: persona}
	err := s.pool.QueryRow(ctx, query, sessionID, persona.ID, persona.Content, persona.CreatedAt).Scan(&sess.CreatedAt)
	if err == nil {
		return sess, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, false, fmt.Errorf("insert session: %w", err)
	}

	// Ya existia: idempotente solo si la persona coincide; se devuelve la
	// persona guardada, igual que el backend en memoria.
	const existing = `
		SELECT persona_id, persona, persona_created_at, created_at
		FROM conversation_sessions
		WHERE id = $1
	`
	var stored domain.Message
	stored.Role = domain.RoleSystem
	if err := s.pool.QueryRow(ctx, existing, sessionID).Scan(&stored.ID, &stored.Content, &stored.CreatedAt, &sess.CreatedAt); err != nil {
		return domain.Session{}, false, fmt.Errorf("read session: %w", err)
	}
	if stored.Content != persona.Content {
		return domain.Session{}, false, ErrDuplicateSession
	}
	sess.Persona = stored
	return sess, false, nil
}

func (s *PostgresStore) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	personaMsg := domain.Message{Role: domain.RoleSystem}
	const sessionQuery = `
		SELECT persona_id, persona, persona_created_at
		FROM conversation_sessions
		WHERE id = $1
	`
	err := s.pool.QueryRow(ctx, sessionQuery, sessionID).Scan(&personaMsg.ID, &personaMsg.Content, &personaMsg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	const query = `
		SELECT id, session_id, role, content, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{personaMsg}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendTurn(ctx context.Context, sessionID string, userMsg, assistantMsg domain.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	const check = `SELECT EXISTS (SELECT 1 FROM conversation_sessions WHERE id = $1)`
	if err := tx.QueryRow(ctx, check, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return ErrUnknownSession
	}

	const insert = `
		INSERT INTO conversation_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, msg := range []domain.Message{userMsg, assistantMsg} {
		if _, err := tx.Exec(ctx, insert, msg.ID, sessionID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Trim(ctx context.Context, sessionID string, maxMessages int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin trim: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int
	const count = `SELECT count(*) FROM conversation_messages WHERE session_id = $1`
	if err := tx.QueryRow(ctx, count, sessionID).Scan(&total); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if total == 0 {
		var exists bool
		const check = `SELECT EXISTS (SELECT 1 FROM conversation_sessions WHERE id = $1)`
		if err := tx.QueryRow(ctx, check, sessionID).Scan(&exists); err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if !exists {
			return ErrUnknownSession
		}
		return tx.Commit(ctx)
	}

	excess := trimExcess(total, maxMessages)
	if excess == 0 {
		return tx.Commit(ctx)
	}

	const del = `
		DELETE FROM conversation_messages
		WHERE seq IN (
			SELECT seq FROM conversation_messages
			WHERE session_id = $1
			ORDER BY seq ASC
			LIMIT $2
		)
	`
	if _, err := tx.Exec(ctx, del, sessionID, excess); err != nil {
		return fmt.Errorf("trim messages: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Evict(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM conversation_sessions WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("evict session: %w", err)
	}
	return nil
}

var _ ConversationStore = (*PostgresStore)(nil)
