package store

import (
	"context"
	"sync"
	"time"

	"github.com/danielolamide0/lumomemory/internal/domain"
)

// MemoryStore guarda las conversaciones en el proceso; se pierden al terminar.
// Cada sesion tiene su propio mutex, asi turnos concurrentes sobre sesiones
// distintas no compiten entre si.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu      sync.Mutex
	session domain.Session
	history []domain.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) Create(_ context.Context, sessionID string, persona domain.Message) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[sessionID]; ok {
		if existing.session.Persona.Content != persona.Content {
			return domain.Session{}, false, ErrDuplicateSession
		}
		return existing.session, false, nil
	}

	sess := domain.Session{
		ID:        sessionID,
		Persona:   persona,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sessionID] = &memorySession{session: sess}
	return sess, true, nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]domain.Message, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	out := make([]domain.Message, 0, len(entry.history)+1)
	out = append(out, entry.session.Persona)
	out = append(out, entry.history...)
	return out, nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, sessionID string, userMsg, assistantMsg domain.Message) error {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.history = append(entry.history, userMsg, assistantMsg)
	return nil
}

func (s *MemoryStore) Trim(_ context.Context, sessionID string, maxMessages int) error {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	excess := trimExcess(len(entry.history), maxMessages)
	if excess == 0 {
		return nil
	}
	if excess >= len(entry.history) {
		entry.history = nil
		return nil
	}
	entry.history = append([]domain.Message(nil), entry.history[excess:]...)
	return nil
}

func (s *MemoryStore) Evict(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) lookup(sessionID string) (*memorySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return entry, nil
}

var _ ConversationStore = (*MemoryStore)(nil)
