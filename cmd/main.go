package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kb-assist-platform/internal/access"
	"kb-assist-platform/internal/ai"
	"kb-assist-platform/internal/config"
	"kb-assist-platform/internal/logger"
	"kb-assist-platform/internal/rag"
	"kb-assist-platform/internal/store"
	"kb-assist-platform/internal/telemetry"
	"kb-assist-platform/middleware"
	"kb-assist-platform/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("kb-assist-platform")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

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
	messageStore := store.NewMessageStore(db)
	accessFilter := access.NewFilter(store.NewAccessStore(db))

	splitter := rag.NewSplitter(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	retriever := rag.NewRetriever(embedder, chunkStore, accessFilter)
	answerer := rag.NewAnswerer(retriever, completer)
	svc := rag.NewService(splitter, embedder, chunkStore, answerer)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.TracingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		if err := mongoClient.Ping(hctx, nil); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(hctx).Err(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	roleMiddleware := middleware.NewRoleMiddleware()

	routes.SetupKnowledgeRoutes(router, documentStore, asynqClient, authMiddleware, roleMiddleware)
	routes.SetupChatRoutes(router, svc, messageStore, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
