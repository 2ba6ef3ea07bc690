package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/danielolamide0/lumomemory/internal/domain"
	"github.com/danielolamide0/lumomemory/internal/llm"
	"github.com/danielolamide0/lumomemory/internal/store"
)

func newOrchestrator(client llm.Client, maxHistory int) (*DialogueOrchestrator, *store.MemoryStore) {
	memStore := store.NewMemoryStore()
	orch := NewDialogueOrchestrator(client, memStore, "You are Lumo, a cheerful companion.", time.Second, maxHistory, zap.NewNop())
	return orch, memStore
}

func assistantReply(content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content}
}

func TestSendTurnAppendsPairInOrder(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("Hello!")}
	orch, _ := newOrchestrator(mock, 0)

	reply, err := orch.SendTurn(ctx, "s1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hello!" {
		t.Fatalf("unexpected reply %q", reply)
	}

	history, err := orch.History(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected persona + pair, got %d messages", len(history))
	}
	if history[0].Role != domain.RoleSystem || history[0].Content != "You are Lumo, a cheerful companion." {
		t.Fatalf("expected persona first, got %+v", history[0])
	}
	if history[1].Role != domain.RoleUser || history[1].Content != "hi" {
		t.Fatalf("expected user turn second, got %+v", history[1])
	}
	if history[2].Role != domain.RoleAssistant || history[2].Content != "Hello!" {
		t.Fatalf("expected assistant turn third, got %+v", history[2])
	}
}

func TestSendTurnOrderingOverManyTurns(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("ok")}
	orch, _ := newOrchestrator(mock, 0)

	const turns = 7
	for i := 0; i < turns; i++ {
		if _, err := orch.SendTurn(ctx, "s1", "turno"); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	history, err := orch.History(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1+2*turns {
		t.Fatalf("expected %d messages, got %d", 1+2*turns, len(history))
	}
	for i, msg := range history[1:] {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		if msg.Role != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, msg.Role)
		}
	}
}

func TestSendTurnRequestShape(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("ok")}
	orch, _ := newOrchestrator(mock, 0)

	if _, err := orch.SendTurn(ctx, "s1", "primero"); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.SendTurn(ctx, "s1", "segundo"); err != nil {
		t.Fatal(err)
	}

	if len(mock.Calls) != 2 {
		t.Fatalf("expected 2 inference calls, got %d", len(mock.Calls))
	}

	second := mock.Calls[1]
	if len(second) != 4 {
		t.Fatalf("expected persona + pair + new turn, got %d messages", len(second))
	}
	if second[0].Role != domain.RoleSystem {
		t.Fatalf("persona must lead every request, got %s", second[0].Role)
	}
	last := second[len(second)-1]
	if last.Role != domain.RoleUser || last.Content != "segundo" {
		t.Fatalf("current turn must be last, got %+v", last)
	}
}

func TestSendTurnFailureLeavesHistoryUntouched(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("Hello!")}
	orch, _ := newOrchestrator(mock, 0)

	if _, err := orch.SendTurn(ctx, "s1", "hi"); err != nil {
		t.Fatal(err)
	}
	before, _ := orch.History(ctx, "s1")

	mock.Err = llm.ErrUnavailable
	if _, err := orch.SendTurn(ctx, "s1", "tell me a joke"); !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	after, _ := orch.History(ctx, "s1")
	if len(after) != len(before) {
		t.Fatalf("failed turn leaked into history: %d != %d", len(after), len(before))
	}
	for i := range after {
		if after[i].Content != before[i].Content || after[i].Role != before[i].Role {
			t.Fatalf("history changed at %d: %+v != %+v", i, after[i], before[i])
		}
	}
}

func TestSendTurnRetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Err: llm.ErrUnavailable}
	orch, _ := newOrchestrator(mock, 0)

	if _, err := orch.SendTurn(ctx, "s1", "hola"); err == nil {
		t.Fatal("expected failure")
	}

	// Reparado el endpoint, el mismo turno reintenta sin dejar duplicados.
	mock.Err = nil
	mock.Response = assistantReply("hola!")
	if _, err := orch.SendTurn(ctx, "s1", "hola"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	history, _ := orch.History(ctx, "s1")
	if len(history) != 3 {
		t.Fatalf("expected exactly one pair after retry, got %d messages", len(history))
	}
}

func TestSendTurnRejectsEmptyInput(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("ok")}
	orch, memStore := newOrchestrator(mock, 0)

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := orch.SendTurn(ctx, "s1", input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %q: expected ErrInvalidInput, got %v", input, err)
		}
	}
	if len(mock.Calls) != 0 {
		t.Fatalf("endpoint called for invalid input")
	}
	// Ni siquiera se crea la sesion.
	if _, err := memStore.History(ctx, "s1"); !errors.Is(err, store.ErrUnknownSession) {
		t.Fatalf("store mutated before validation: %v", err)
	}
}

func TestSendTurnTrimsHistoryButNotPersona(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("ok")}
	orch, _ := newOrchestrator(mock, 4)

	for i := 0; i < 6; i++ {
		if _, err := orch.SendTurn(ctx, "s1", "turno"); err != nil {
			t.Fatal(err)
		}
	}

	history, _ := orch.History(ctx, "s1")
	if len(history) != 5 { // persona + 4
		t.Fatalf("expected capped history, got %d messages", len(history))
	}
	if history[0].Role != domain.RoleSystem {
		t.Fatalf("trim removed persona")
	}
	if history[1].Role != domain.RoleUser {
		t.Fatalf("trim split a turn")
	}
}

func TestSendTurnSessionIsolation(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("ok")}
	orch, _ := newOrchestrator(mock, 0)

	if _, err := orch.SendTurn(ctx, "a", "para a"); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.SendTurn(ctx, "b", "para b"); err != nil {
		t.Fatal(err)
	}

	historyA, _ := orch.History(ctx, "a")
	for _, msg := range historyA {
		if msg.Content == "para b" {
			t.Fatalf("session a observed session b's message")
		}
	}
	if len(historyA) != 3 {
		t.Fatalf("expected 3 messages in a, got %d", len(historyA))
	}
}

func TestStartAndEndSession(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("ok")}
	orch, _ := newOrchestrator(mock, 0)

	sess, created, err := orch.StartSession(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected created=true for new session")
	}
	if sess.ID == "" {
		t.Fatal("expected generated session id")
	}

	// Repetir el start sobre la misma sesion es idempotente pero lo reporta.
	if _, again, err := orch.StartSession(ctx, sess.ID); err != nil || again {
		t.Fatalf("expected created=false on restart, got created=%v err=%v", again, err)
	}

	if _, err := orch.SendTurn(ctx, sess.ID, "hola"); err != nil {
		t.Fatal(err)
	}
	if err := orch.EndSession(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.History(ctx, sess.ID); !errors.Is(err, store.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession after end, got %v", err)
	}
}

func TestLumoScenario(t *testing.T) {
	ctx := context.Background()
	mock := &llm.MockClient{Response: assistantReply("Hello!")}
	orch, _ := newOrchestrator(mock, 0)

	if _, _, err := orch.StartSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	reply, err := orch.SendTurn(ctx, "s1", "hi")
	if err != nil || reply != "Hello!" {
		t.Fatalf("expected Hello!, got %q (%v)", reply, err)
	}

	history, _ := orch.History(ctx, "s1")
	if len(history) != 3 {
		t.Fatalf("expected [persona, user, assistant], got %d messages", len(history))
	}

	mock.Err = llm.ErrUnavailable
	if _, err := orch.SendTurn(ctx, "s1", "tell me a joke"); err == nil {
		t.Fatal("expected failure")
	}

	again, _ := orch.History(ctx, "s1")
	if len(again) != 3 {
		t.Fatalf("failed turn changed history: %d messages", len(again))
	}
}
