package bootstrap

import (
	"context"
	"log"
	"time"

	"codeframe-be/internal/config"
	"codeframe-be/internal/controller"
	"codeframe-be/internal/pkg/logger"
	"codeframe-be/internal/repository/memory"
	"codeframe-be/internal/repository/unitofwork"
	"codeframe-be/internal/service"
	"codeframe-be/pkg/codeframe"
	"codeframe-be/pkg/embedding"
	"codeframe-be/pkg/llm/factory"
	"codeframe-be/pkg/mece"

	pktNats "codeframe-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	GenerationController *controller.GenerationController
	HierarchyController  *controller.HierarchyController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}

	embeddingStore := service.NewEmbeddingStore(uowFactory)
	cachedEmbedder := embedding.NewCachedProvider(embeddingProvider, embeddingStore, cfg.Ai.EmbeddingModel)

	llmTimeout := time.Duration(cfg.Ai.LLMTimeoutSeconds) * time.Second
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		llmTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	generator := codeframe.NewGenerator(llmProvider, cfg.Pipeline.ExemplarsPerCluster, llmTimeout)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)

	var cancelStore service.ICancelStore
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Cancellation flags stay in-process", err)
		cancelStore = service.NewNoopCancelStore()
	} else {
		cancelStore = service.NewRedisCancelStore(rdb)
	}

	runRegistry := memory.NewRunRegistry()

	mecePolicy := mece.Policy{
		OverlapWarnThreshold:  cfg.Mece.OverlapWarnThreshold,
		OverlapErrorThreshold: cfg.Mece.OverlapErrorThreshold,
		GapFraction:           cfg.Mece.GapFraction,
		ErrorOverlapWeight:    cfg.Mece.ErrorOverlapWeight,
		WarnOverlapWeight:     cfg.Mece.WarnOverlapWeight,
		UncoveredWeight:       cfg.Mece.UncoveredWeight,
	}

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Pipeline.JobTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Pipeline.JobTopic,
		uowFactory,
		cachedEmbedder,
		generator,
		cancelStore,
		runRegistry,
		natsPub,
		cfg.Pipeline,
		mecePolicy,
		cfg.Ai.CostPer1KTokens,
		sysLogger,
	)

	generationService := service.NewGenerationService(
		uowFactory,
		publisherService,
		cancelStore,
		runRegistry,
		natsPub,
		cfg.Pipeline,
		sysLogger,
	)
	hierarchyService := service.NewHierarchyService(uowFactory, sysLogger)
	applyService := service.NewApplyService(uowFactory, cachedEmbedder, natsPub, cfg.Pipeline, sysLogger)

	// 6. Controllers
	return &Container{
		GenerationController: controller.NewGenerationController(generationService, applyService),
		HierarchyController:  controller.NewHierarchyController(hierarchyService),

		ConsumerService: consumerService,
	}
}
