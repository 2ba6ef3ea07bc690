package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielolamide0/lumomemory/internal/domain"
	"github.com/danielolamide0/lumomemory/internal/llm"
	"github.com/danielolamide0/lumomemory/internal/store"
)

var ErrInvalidInput = errors.New("invalid user input")

// DialogueOrchestrator es el unico punto de entrada para un turno de dialogo.
// Mantiene una persona fija para todas las sesiones que administra y garantiza
// que el historial solo contenga pares pregunta/respuesta completos: si la
// inferencia falla, el turno se descarta como si nunca hubiera ocurrido.
//
// Por contrato hay un solo turno en vuelo por sesion; llamadas concurrentes
// de SendTurn sobre la misma sesion no estan soportadas. Sesiones distintas
// avanzan en paralelo sin coordinarse.
type DialogueOrchestrator struct {
	llmClient  llm.Client
	store      store.ConversationStore
	persona    domain.Message
	timeout    time.Duration
	maxHistory int
	logger     *zap.Logger
}

const defaultInferenceTimeout = 30 * time.Second

// NewDialogueOrchestrator construye el orquestador. maxHistory limita los
// mensajes de historial retenidos por sesion (0 = sin limite); el limite se
// aplica en pares completos y nunca toca la persona.
func NewDialogueOrchestrator(
	llmClient llm.Client,
	convStore store.ConversationStore,
	personaText string,
	timeout time.Duration,
	maxHistory int,
	logger *zap.Logger,
) *DialogueOrchestrator {
	if personaText == "" {
		personaText = DefaultPersona
	}
	if timeout <= 0 {
		timeout = defaultInferenceTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialogueOrchestrator{
		llmClient: llmClient,
		store:     convStore,
		persona: domain.Message{
			ID:      uuid.NewString(),
			Role:    domain.RoleSystem,
			Content: personaText,
		},
		timeout:    timeout,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// StartSession registra una sesion con la persona del orquestador y reporta
// si fue creada en esta llamada (false = ya existia con la misma persona).
// Si sessionID es vacio se genera uno.
func (o *DialogueOrchestrator) StartSession(ctx context.Context, sessionID string) (domain.Session, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	return o.store.Create(ctx, sessionID, o.persona)
}

// SendTurn ejecuta un turno completo: arma la peticion con persona + historial
// + entrada nueva, invoca la inferencia con timeout acotado y persiste el par
// usuario/asistente de forma atomica. En cualquier fallo el historial queda
// intacto, asi la misma llamada puede reintentarse sin duplicar turnos.
func (o *DialogueOrchestrator) SendTurn(ctx context.Context, sessionID, userText string) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", fmt.Errorf("%w: empty user text", ErrInvalidInput)
	}

	if _, _, err := o.store.Create(ctx, sessionID, o.persona); err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}

	history, err := o.store.History(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   userText,
		CreatedAt: time.Now().UTC(),
	}

	// El orden es significativo: el endpoint trata el ultimo elemento como
	// el turno actual y todo lo anterior como contexto.
	request := make([]domain.Message, 0, len(history)+1)
	request = append(request, history...)
	request = append(request, userMsg)

	inferCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	assistantMsg, err := o.llmClient.Generate(inferCtx, request)
	if err != nil {
		o.logger.Warn("inference failed, turn discarded",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return "", fmt.Errorf("generate reply: %w", err)
	}
	assistantMsg.ID = uuid.NewString()
	assistantMsg.SessionID = sessionID
	assistantMsg.Role = domain.RoleAssistant
	if assistantMsg.CreatedAt.IsZero() {
		assistantMsg.CreatedAt = time.Now().UTC()
	}

	if err := o.store.AppendTurn(ctx, sessionID, userMsg, assistantMsg); err != nil {
		return "", fmt.Errorf("persist turn: %w", err)
	}

	if o.maxHistory > 0 {
		if err := o.store.Trim(ctx, sessionID, o.maxHistory); err != nil {
			o.logger.Warn("trim failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	return assistantMsg.Content, nil
}

// History devuelve la persona seguida del historial en orden de conversacion.
func (o *DialogueOrchestrator) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return o.store.History(ctx, sessionID)
}

// EndSession descarta la sesion y su historial; no-op si no existe.
func (o *DialogueOrchestrator) EndSession(ctx context.Context, sessionID string) error {
	return o.store.Evict(ctx, sessionID)
}
