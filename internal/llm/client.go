package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielolamide0/lumomemory/internal/domain"
)

var (
	ErrUnavailable    = errors.New("inference endpoint unavailable")
	ErrTimeout        = fmt.Errorf("inference timeout: %w", ErrUnavailable)
	ErrInvalidRequest = errors.New("inference request invalid")
)

// Client define la interfaz hacia el endpoint de inferencia. Recibe la lista
// ordenada persona + historial + turno actual; el endpoint trata el ultimo
// elemento como el turno en curso y todo lo anterior como contexto.
type Client interface {
	Generate(ctx context.Context, messages []domain.Message) (domain.Message, error)
}

// HTTPClient implementa Client contra una API chat-completions compatible con OpenAI.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL, apiKey, model string, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) Generate(ctx context.Context, messages []domain.Message) (domain.Message, error) {
	if len(messages) == 0 {
		return domain.Message{}, fmt.Errorf("%w: empty message list", ErrInvalidRequest)
	}

	reqBody := chatRequest{Model: c.model, Messages: make([]chatMessage, 0, len(messages))}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return domain.Message{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Message{}, ErrTimeout
		}
		return domain.Message{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error response",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return domain.Message{}, fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
		}
		return domain.Message{}, fmt.Errorf("%w: status=%d", ErrInvalidRequest, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return domain.Message{}, fmt.Errorf("%w: unmarshal response: %v", ErrUnavailable, err)
	}

	if cr.Error != nil {
		return domain.Message{}, fmt.Errorf("%w: %s", ErrUnavailable, cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return domain.Message{}, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	return domain.Message{
		Role:      domain.RoleAssistant,
		Content:   cr.Choices[0].Message.Content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
