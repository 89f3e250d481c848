package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rfp-service/config"
	"rfp-service/internal/api"
	"rfp-service/internal/assist"
	"rfp-service/internal/bid"
	"rfp-service/internal/broker"
	"rfp-service/internal/extract"
	"rfp-service/internal/match"
	"rfp-service/internal/pipeline"
	"rfp-service/internal/pricing"
	"rfp-service/internal/redisclient"
	"rfp-service/internal/service"
	"rfp-service/internal/store"
	"rfp-service/internal/util"
	"rfp-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting RFP service")

	tp, err := util.InitTracer("rfp-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	lifecycleProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicRFP)
	defer lifecycleProducer.Close()
	traceProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTrace)
	defer traceProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(lifecycleProducer, traceProducer)

	engine, err := pricing.NewEngine(cfg.Business.DiscountTiers)
	if err != nil {
		log.Fatalf("Invalid discount table: %v", err)
	}

	matcher := match.NewMatcher(cfg.Business.MatchWeights)
	extractor := extract.NewExtractor(matcher.Weights())
	assembler := bid.NewAssembler()
	recorder := pipeline.NewRecorder()

	catalogService := service.NewCatalogService(db, redisClient)

	var extractionAssist pipeline.ExtractionAssist
	if cfg.Business.AnthropicKey != "" {
		extractionAssist = assist.NewClient(cfg.Business.AnthropicKey, cfg.Business.AnthropicModel)
		log.Println("Extraction assist enabled")
	}

	orchestrator := pipeline.NewOrchestrator(
		extractor, matcher, engine, assembler,
		catalogService, extractionAssist, recorder,
		cfg.Business.TopK,
	)

	rfpService := service.NewRFPService(db, redisClient, eventPublisher, orchestrator)

	ctx := context.Background()
	if os.Getenv("SEED_DEMO_CATALOG") == "true" {
		if err := catalogService.SeedDemo(ctx); err != nil {
			log.Printf("Failed to seed demo catalog: %v", err)
		}
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	rfpConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicRFP, cfg.Kafka.ConsumerGroup)
	pipelineWorker := worker.NewPipelineWorker(rfpConsumer, rfpService, db, redisClient)
	go func() {
		if err := pipelineWorker.Start(workerCtx); err != nil {
			log.Printf("Pipeline worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(rfpService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	pipelineWorker.Stop()

	log.Println("Server exited")
}
