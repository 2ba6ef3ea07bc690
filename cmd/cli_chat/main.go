package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danielolamide0/lumomemory/internal/config"
	"github.com/danielolamide0/lumomemory/internal/llm"
	"github.com/danielolamide0/lumomemory/internal/service"
	"github.com/danielolamide0/lumomemory/internal/store"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	// El chat interactivo vive lo que vive el proceso: memoria en proceso.
	convStore := store.NewMemoryStore()
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	orch := service.NewDialogueOrchestrator(
		llmClient,
		convStore,
		cfg.Persona,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second,
		cfg.MaxHistoryMessages,
		logger,
	)

	sessionID := uuid.NewString()

	fmt.Println("Lumo is waking up... (type 'quit' to end the chat, '/reset' to start over)")
	fmt.Println("-----------------------------------------------------")

	greet(ctx, orch, sessionID)

	for {
		fmt.Print("You > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nLumo > Bye bye for now! It was fun playing with you!")
				return
			}
			log.Fatalf("read input: %v", err)
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			fmt.Println("Lumo > Did you say something? I couldn't hear you!")
			continue
		case strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit"):
			fmt.Println("Lumo > Bye bye for now! It was fun playing with you!")
			return
		case line == "/reset":
			if err := orch.EndSession(ctx, sessionID); err != nil {
				fmt.Printf("error resetting chat: %v\n", err)
				continue
			}
			sessionID = uuid.NewString()
			fmt.Println("Chat cleared. Lumo is waking up again...")
			greet(ctx, orch, sessionID)
			continue
		}

		reply, err := orch.SendTurn(ctx, sessionID, line)
		if err != nil {
			// El turno fallido no queda en el historial; se puede reintentar tal cual.
			fmt.Printf("error generating reply: %v\n", err)
			continue
		}
		fmt.Printf("Lumo > %s\n", reply)
	}
}

func greet(ctx context.Context, orch *service.DialogueOrchestrator, sessionID string) {
	reply, err := orch.SendTurn(ctx, sessionID, "Hello!")
	if err != nil {
		fmt.Printf("error waking Lumo: %v\n", err)
		return
	}
	fmt.Printf("Lumo > %s\n", reply)
}
