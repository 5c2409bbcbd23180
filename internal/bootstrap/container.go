package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ai-companion-be/internal/config"
	"ai-companion-be/internal/controller"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/unitofwork"
	"ai-companion-be/internal/service"
	"ai-companion-be/pkg/embedding"
	"ai-companion-be/pkg/extract"
	"ai-companion-be/pkg/llm"
	"ai-companion-be/pkg/llm/factory"
	"ai-companion-be/pkg/llm/router"
	"ai-companion-be/pkg/rag/prompt"
	"ai-companion-be/pkg/rag/retriever"
	"ai-companion-be/pkg/vectorindex"

	pktNats "ai-companion-be/pkg/nats"
)

type Container struct {
	// Controllers
	ChatController         controller.IChatController
	DocumentController     controller.IDocumentController
	ConversationController controller.IConversationController
	HealthController       controller.IHealthController

	// Background Services (Exposed for main.go to run)
	IngestConsumer service.IIngestConsumerService

	Logger logger.ILogger
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

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "openai" {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.OpenAIBaseURL, cfg.Ai.OpenAIEmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.OpenAIEmbeddingModel)
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbeddingModel)
	}

	// Generation providers in priority order (local first)
	var providers []llm.LLMProvider
	for _, providerType := range cfg.Ai.ProviderPriority {
		providerCfg := factory.ProviderConfig{}
		switch providerType {
		case "ollama":
			providerCfg.BaseURL = cfg.Ai.OllamaBaseURL
			providerCfg.ModelName = cfg.Ai.OllamaLLMModel
		case "openai":
			providerCfg.BaseURL = cfg.Ai.OpenAIBaseURL
			providerCfg.APIKey = cfg.Ai.OpenAIAPIKey
			providerCfg.ModelName = cfg.Ai.OpenAILLMModel
		}

		provider, err := factory.NewLLMProvider(providerType, providerCfg)
		if err != nil {
			log.Printf("[WARN] Skipping LLM Provider %q: %v", providerType, err)
			continue
		}
		providers = append(providers, provider)
		log.Printf("[INFO] Registered LLM Provider: %s (%s)", providerType, providerCfg.ModelName)
	}
	if len(providers) == 0 {
		log.Fatal("[FATAL] LLM_PROVIDER_PRIORITY resolved to no providers")
	}

	providerHealth := router.NewHealth(cfg.Ai.ProviderCooldown)
	modelRouter := router.New(providers, providerHealth, sysLogger)

	// 4. Vector index: memory (hydrated from the chunk table) or pgvector
	// (served straight from Postgres).
	var index vectorindex.Index
	if cfg.Rag.VectorIndex == "pgvector" {
		index = vectorindex.NewPgvectorIndex(&chunkSearcherAdapter{uowFactory: uowFactory})
		log.Printf("[INFO] Using Vector Index: PGVECTOR")
	} else {
		memIndex := vectorindex.NewMemoryIndex()
		if err := hydrateIndex(context.Background(), uowFactory, memIndex); err != nil {
			log.Printf("[WARN] Failed to hydrate vector index: %v", err)
		}
		log.Printf("[INFO] Using Vector Index: MEMORY (%d chunks)", memIndex.Size())
		index = memIndex
	}

	contextRetriever := retriever.New(embeddingProvider, index, cfg.Rag.RetrievalK, cfg.Rag.MinScore)
	promptBuilder := prompt.NewBuilder()

	// 5. Infrastructure: NATS and Redis are best-effort, warn and continue.
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	eventPublisher := service.NewNatsEventPublisher(natsPub, sysLogger)

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, history cache disabled: %v", err)
		rdb = nil
	}
	historyCache := service.NewHistoryCache(rdb, cfg.Rag.HistoryMaxMessages, sysLogger)

	// 6. Services
	ingestPublisher := service.NewIngestPublisher(cfg.Rag.IngestTopic, pubSub)
	ingestConsumer := service.NewIngestConsumerService(
		pubSub,
		cfg.Rag.IngestTopic,
		uowFactory,
		extract.New(),
		embeddingProvider,
		index,
		eventPublisher,
		sysLogger,
		cfg.App.UploadDir,
		cfg.Rag.ChunkSize,
		cfg.Rag.ChunkOverlap,
	)

	documentService := service.NewDocumentService(
		uowFactory,
		ingestPublisher,
		index,
		sysLogger,
		cfg.App.UploadDir,
	)

	chatService := service.NewChatService(
		uowFactory,
		modelRouter,
		contextRetriever,
		promptBuilder,
		historyCache,
		cfg.Rag.HistoryMaxMessages,
		cfg.Rag.RetrievalK,
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		ChatController:         controller.NewChatController(chatService),
		DocumentController:     controller.NewDocumentController(documentService),
		ConversationController: controller.NewConversationController(chatService),
		HealthController:       controller.NewHealthController(modelRouter),

		IngestConsumer: ingestConsumer,
		Logger:         sysLogger,
	}
}

// hydrateIndex rebuilds the in-memory index from durable chunks at boot.
func hydrateIndex(ctx context.Context, uowFactory unitofwork.RepositoryFactory, index *vectorindex.MemoryIndex) error {
	uow := uowFactory.NewUnitOfWork(ctx)
	chunks, err := uow.ChunkRepository().FindAll(ctx)
	if err != nil {
		return err
	}

	entries := make([]vectorindex.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorindex.Entry{
			ChunkID:    c.Id,
			DocumentID: c.DocumentId,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Content,
			Vector:     c.Embedding,
		}
	}
	return index.Upsert(ctx, entries)
}

// chunkSearcherAdapter bridges the chunk repository into the pgvector
// index's searcher seam.
type chunkSearcherAdapter struct {
	uowFactory unitofwork.RepositoryFactory
}

func (a *chunkSearcherAdapter) SearchSimilarWithScore(ctx context.Context, vector []float32, k int, documentIDs []uuid.UUID) ([]vectorindex.ScoredChunk, error) {
	uow := a.uowFactory.NewUnitOfWork(ctx)
	hits, err := uow.ChunkRepository().SearchSimilarWithScore(ctx, vector, k, documentIDs, 0)
	if err != nil {
		return nil, err
	}

	out := make([]vectorindex.ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = vectorindex.ScoredChunk{
			ChunkID:    h.Chunk.Id,
			DocumentID: h.Chunk.DocumentId,
			ChunkIndex: h.Chunk.ChunkIndex,
			Text:       h.Chunk.Content,
			Score:      h.Similarity,
		}
	}
	return out, nil
}
