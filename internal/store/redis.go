package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielolamide0/lumomemory/internal/domain"
)

const redisKeyPrefix = "conversation:"

// RedisClient cubre los comandos que usa RedisStore; *redis.Client y
// redis.UniversalClient lo satisfacen, y los tests lo implementan sin servidor.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

// RedisStore guarda cada sesion como un documento JSON bajo una sola clave.
// El par usuario/asistente se agrega bajo WATCH para que el append sea atomico
// incluso con varios procesos apuntando al mismo redis.
type RedisStore struct {
	client RedisClient
}

type redisRecord struct {
	Persona   domain.Message   `json:"persona"`
	CreatedAt time.Time        `json:"created_at"`
	History   []domain.Message `json:"history"`
}

func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, sessionID string, persona domain.Message) (domain.Session, bool, error) {
	key := redisKeyPrefix + sessionID

	record := redisRecord{Persona: persona, CreatedAt: time.Now().UTC()}
	payload, err := json.Marshal(record)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("marshal session: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, payload, 0).Result()
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("create session: %w", err)
	}
	if created {
		return domain.Session{ID: sessionID, Persona: persona, CreatedAt: record.CreatedAt}, true, nil
	}

	existing, err := s.load(ctx, key)
	if err != nil {
		return domain.Session{}, false, err
	}
	if existing.Persona.Content != persona.Content {
		return domain.Session{}, false, ErrDuplicateSession
	}
	return domain.Session{ID: sessionID, Persona: existing.Persona, CreatedAt: existing.CreatedAt}, false, nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	record, err := s.load(ctx, redisKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(record.History)+1)
	out = append(out, record.Persona)
	out = append(out, record.History...)
	return out, nil
}

func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, userMsg, assistantMsg domain.Message) error {
	return s.update(ctx, sessionID, func(record *redisRecord) {
		record.History = append(record.History, userMsg, assistantMsg)
	})
}

func (s *RedisStore) Trim(ctx context.Context, sessionID string, maxMessages int) error {
	return s.update(ctx, sessionID, func(record *redisRecord) {
		excess := trimExcess(len(record.History), maxMessages)
		if excess == 0 {
			return
		}
		if excess >= len(record.History) {
			record.History = nil
			return
		}
		record.History = record.History[excess:]
	})
}

func (s *RedisStore) Evict(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("evict session: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, key string) (redisRecord, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return redisRecord{}, ErrUnknownSession
	}
	if err != nil {
		return redisRecord{}, fmt.Errorf("read session: %w", err)
	}
	var record redisRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return redisRecord{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return record, nil
}

func (s *RedisStore) update(ctx context.Context, sessionID string, apply func(*redisRecord)) error {
	key := redisKeyPrefix + sessionID

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrUnknownSession
		}
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}

		var record redisRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}

		apply(&record)

		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	// Reintenta si otro proceso toco la clave entre el GET y el SET.
	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update session %s: too many conflicts", sessionID)
}

var _ ConversationStore = (*RedisStore)(nil)
