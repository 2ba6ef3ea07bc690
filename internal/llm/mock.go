package llm

import (
	"context"

	"github.com/danielolamide0/lumomemory/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response domain.Message
	Err      error

	Calls [][]domain.Message
}

func (m *MockClient) Generate(_ context.Context, messages []domain.Message) (domain.Message, error) {
	snapshot := make([]domain.Message, len(messages))
	copy(snapshot, messages)
	m.Calls = append(m.Calls, snapshot)
	if m.Err != nil {
		return domain.Message{}, m.Err
	}
	return m.Response, nil
}

var _ Client = (*MockClient)(nil)
