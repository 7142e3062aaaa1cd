package main

import (
	"context"
	"log"

	"kb-assist-platform/internal/access"
	"kb-assist-platform/internal/ai"
	"kb-assist-platform/internal/config"
	"kb-assist-platform/internal/logger"
	"kb-assist-platform/internal/queue"
	"kb-assist-platform/internal/rag"
	"kb-assist-platform/internal/store"
	"kb-assist-platform/internal/telemetry"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("kb-assist-platform-worker")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	ctx := context.Background()

	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	completer, err := ai.NewGeminiCompleter(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize completion client:", err)
	}
	defer completer.Close()

	db := mongoClient.Database(cfg.DBName)
	chunkStore := store.NewChunkStore(db)
	documentStore := store.NewDocumentStore(db, chunkStore)
	accessFilter := access.NewFilter(store.NewAccessStore(db))

	splitter := rag.NewSplitter(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	retriever := rag.NewRetriever(embedder, chunkStore, accessFilter)
	answerer := rag.NewAnswerer(retriever, completer)
	svc := rag.NewService(splitter, embedder, chunkStore, answerer)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(svc, documentStore)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.HandleIngest)

	logger.Info("Starting ingestion worker", "redis", redisOpt.Addr, "concurrency", 20)
	if err := server.Run(mux); err != nil {
		log.Fatal("Worker failed:", err)
	}
}
