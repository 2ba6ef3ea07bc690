package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danielolamide0/lumomemory/internal/llm"
	"github.com/danielolamide0/lumomemory/internal/service"
	"github.com/danielolamide0/lumomemory/internal/store"
)

// ChatHandler expone el ciclo de sesiones y turnos sobre HTTP.
type ChatHandler struct {
	logger *zap.Logger
	orch   *service.DialogueOrchestrator
	tokens *service.TokenService
}

func NewChatHandler(logger *zap.Logger, orch *service.DialogueOrchestrator, tokens *service.TokenService) *ChatHandler {
	return &ChatHandler{logger: logger, orch: orch, tokens: tokens}
}

// CreateSession maneja POST /sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid create session request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	sess, created, err := h.orch.StartSession(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateSession) {
			c.JSON(http.StatusConflict, gin.H{"error": "session exists with a different persona"})
			return
		}
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	// Con tokens habilitados, re-crear una sesion existente emitiria un token
	// valido para la conversacion de otro cliente: se rechaza.
	if h.tokens != nil && !created {
		h.logger.Warn("refused token reissue for existing session", zap.String("session_id", sess.ID))
		c.JSON(http.StatusConflict, gin.H{"error": "session exists"})
		return
	}

	resp := gin.H{"session_id": sess.ID}
	if h.tokens != nil {
		token, err := h.tokens.Issue(sess.ID)
		if err != nil {
			h.logger.Error("issue session token failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
			return
		}
		resp["token"] = token
	}

	c.JSON(http.StatusCreated, resp)
}

// PostMessage maneja POST /sessions/:id/messages: un turno completo.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.orch.SendTurn(c.Request.Context(), sessionID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput), errors.Is(err, llm.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		case errors.Is(err, store.ErrUnknownSession):
			c.JSON(http.StatusNotFound, gin.H{"error": "no such conversation"})
		case errors.Is(err, store.ErrDuplicateSession):
			c.JSON(http.StatusConflict, gin.H{"error": "session exists with a different persona"})
		case errors.Is(err, llm.ErrUnavailable):
			h.logger.Error("inference unavailable", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable, try again"})
		default:
			h.logger.Error("send turn failed", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process turn"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// GetHistory maneja GET /sessions/:id/messages.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("id")

	history, err := h.orch.History(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrUnknownSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such conversation"})
			return
		}
		h.logger.Error("read history failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// DeleteSession maneja DELETE /sessions/:id.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.orch.EndSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("evict session failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete session"})
		return
	}

	c.Status(http.StatusNoContent)
}
