package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danielolamide0/lumomemory/internal/config"
	"github.com/danielolamide0/lumomemory/internal/db"
	apihttp "github.com/danielolamide0/lumomemory/internal/http"
	"github.com/danielolamide0/lumomemory/internal/llm"
	"github.com/danielolamide0/lumomemory/internal/service"
	"github.com/danielolamide0/lumomemory/internal/store"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	convStore, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer cleanup()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	orch := service.NewDialogueOrchestrator(
		llmClient,
		convStore,
		cfg.Persona,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second,
		cfg.MaxHistoryMessages,
		logger,
	)

	tokens := service.NewTokenService(cfg.TokenSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if tokens == nil {
		logger.Warn("token secret not configured, session routes are open")
	}

	chatHandler := apihttp.NewChatHandler(logger, orch, tokens)
	router := apihttp.NewRouter(logger, chatHandler, tokens)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store_backend", cfg.StoreBackend),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.ConversationStore, func(), error) {
	switch cfg.StoreBackend {
	case "", "memory":
		return store.NewMemoryStore(), func() {}, nil

	case "postgres":
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		pgStore := store.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return pgStore, pool.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("redis store ready", zap.String("addr", cfg.RedisAddr))
		return store.NewRedisStore(client), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
