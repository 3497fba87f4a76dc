package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"hebrew-rag-platform/internal/ai"
	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/internal/queue"
	"hebrew-rag-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, db, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	geminiClient, err := ai.NewGeminiClient(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// The worker never enqueues, so no queue client is wired in.
	documentService := services.NewDocumentService(cfg, db, geminiClient, nil, nil)

	server := asynq.NewServer(
		queue.RedisConnOpt(cfg),
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6, // 60% of workers
				"default":  3, // 30% of workers
				"low":      1, // 10% of workers
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err.Error())
			}),
		},
	)

	processor := queue.NewTaskProcessor(documentService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDocumentIngest, processor.HandleDocumentIngest)

	logger.Info("starting worker",
		"concurrency", 20,
		"redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
