package bootstrap

import (
	"log"
	"time"

	"ai-loanengine-be/internal/config"
	"ai-loanengine-be/internal/controller"
	"ai-loanengine-be/internal/pkg/logger"
	"ai-loanengine-be/internal/repository/memory"
	"ai-loanengine-be/internal/service"
	"ai-loanengine-be/pkg/agent/compose"
	agentrouter "ai-loanengine-be/pkg/agent/router"
	"ai-loanengine-be/pkg/eligibility"
	"ai-loanengine-be/pkg/embedding"
	"ai-loanengine-be/pkg/llm/factory"
	"ai-loanengine-be/pkg/tools/docintel"
	"ai-loanengine-be/pkg/tools/language"
	"ai-loanengine-be/pkg/tools/policysearch"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	AuditConsumerService service.IAuditConsumerService

	// System logger (Exposed for shutdown Sync)
	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	toolLogger := log.Default()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	// Initialize Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewAzureProvider(
			cfg.Azure.OpenAIEndpoint,
			cfg.Azure.OpenAIKey,
			cfg.Azure.OpenAIEmbeddingDeployment,
			cfg.Azure.OpenAIAPIVersion,
		)
		log.Printf("[INFO] Using Embedding Provider: AZURE (%s)", cfg.Azure.OpenAIEmbeddingDeployment)
	}

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		factory.AzureConfig{
			Endpoint:   cfg.Azure.OpenAIEndpoint,
			APIKey:     cfg.Azure.OpenAIKey,
			Deployment: cfg.Azure.OpenAIChatDeployment,
			APIVersion: cfg.Azure.OpenAIAPIVersion,
		},
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Tool Adapters (process-wide, initialized once)
	toolTimeout := time.Duration(cfg.Tools.TimeoutSeconds) * time.Second
	docAdapter := docintel.NewAdapter(cfg.Azure.DocIntelEndpoint, cfg.Azure.DocIntelKey, toolTimeout, toolLogger)
	policyAdapter := policysearch.NewAdapter(
		cfg.Azure.SearchEndpoint,
		cfg.Azure.SearchKey,
		cfg.Azure.SearchIndex,
		embeddingProvider,
		toolTimeout,
		toolLogger,
	)
	languageAdapter := language.NewAdapter(cfg.Azure.LanguageEndpoint, cfg.Azure.LanguageKey, toolTimeout, toolLogger)

	// 5. Session Storage
	sessionRepo := memory.NewSessionRepository(
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
		time.Duration(cfg.Session.PurgeMinutes)*time.Minute,
	)

	// 6. Agent Pipeline
	defaults := eligibility.Thresholds{
		MinAnnualRevenue:    cfg.Loan.MinAnnualRevenue,
		MinCreditScore:      cfg.Loan.MinCreditScore,
		MinMonthsInBusiness: cfg.Loan.MinMonthsInBusiness,
		MaxLoanToRevenue:    cfg.Loan.MaxLoanToRevenue,
		MaxDebtToRevenue:    cfg.Loan.MaxDebtToRevenue,
		MinNetMargin:        cfg.Loan.MinNetMargin,
		MinCashReserves:     cfg.Loan.MinCashReserves,
	}
	agentRouter := agentrouter.NewRouter(policyAdapter, languageAdapter, defaults, toolLogger)
	composer := compose.NewComposer(llmProvider, toolLogger)

	// 7. Services
	auditLogger := logger.NewIsolatedLogger("logs/audit.log")
	publisherService := service.NewAuditPublisherService(pubSub, toolLogger)
	consumerService := service.NewAuditConsumerService(pubSub, auditLogger)

	chatService := service.NewChatService(
		sessionRepo,
		agentRouter,
		composer,
		publisherService,
		toolTimeout,
		cfg.Session.HistoryTurns,
	)
	documentService := service.NewDocumentService(
		sessionRepo,
		docAdapter,
		publisherService,
		cfg.Session.MaxDocuments,
		time.Duration(cfg.Tools.RetryBackoffMillis)*time.Millisecond,
		toolLogger,
	)

	sysLogger.Info("bootstrap", "Container initialized", map[string]interface{}{
		"llm_provider":       cfg.Ai.LLMProvider,
		"embedding_provider": cfg.Ai.EmbeddingProvider,
		"session_ttl_min":    cfg.Session.TTLMinutes,
	})

	// 8. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),

		AuditConsumerService: consumerService,
		Logger:               sysLogger,
	}
}
