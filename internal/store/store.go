package store

import (
	"context"
	"errors"

	"github.com/danielolamide0/lumomemory/internal/domain"
)

var (
	ErrUnknownSession   = errors.New("unknown session")
	ErrDuplicateSession = errors.New("duplicate session with different persona")
)

// ConversationStore es el dueño autoritativo del historial por sesion.
// Todas las implementaciones serializan el acceso por session id; operaciones
// sobre sesiones distintas no se coordinan entre si.
type ConversationStore interface {
	// Create registra la sesion con su persona y reporta si fue creada en esta
	// llamada. Es idempotente si la persona coincide con la existente (devuelve
	// la sesion previa y created=false); ErrDuplicateSession si difiere.
	Create(ctx context.Context, sessionID string, persona domain.Message) (sess domain.Session, created bool, err error)

	// History devuelve la persona seguida del historial en orden de insercion.
	History(ctx context.Context, sessionID string) ([]domain.Message, error)

	// AppendTurn agrega el par usuario/asistente de forma atomica. Es la unica
	// via de mutacion del historial: nunca se observa un turno a medias.
	AppendTurn(ctx context.Context, sessionID string, userMsg, assistantMsg domain.Message) error

	// Trim descarta los mensajes mas viejos (FIFO, en pares completos) hasta
	// que el historial no supere maxMessages. La persona nunca se descarta.
	Trim(ctx context.Context, sessionID string, maxMessages int) error

	// Evict elimina la sesion y su historial; no-op si no existe.
	Evict(ctx context.Context, sessionID string) error
}

// trimExcess calcula cuantos mensajes viejos descartar para que el historial
// no supere maxMessages, redondeado hacia arriba a pares completos para no
// partir un turno. Es la unica definicion de la politica de recorte; todos
// los backends la comparten.
func trimExcess(length, maxMessages int) int {
	if maxMessages < 0 {
		maxMessages = 0
	}
	excess := length - maxMessages
	if excess <= 0 {
		return 0
	}
	if excess%2 != 0 {
		excess++
	}
	if excess > length {
		excess = length
	}
	return excess
}
