package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/config"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
	"github.com/kirillkom/ai-image-renamer/internal/core/registry"
	"github.com/kirillkom/ai-image-renamer/internal/core/usecase"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/renameapi"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/resilience"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/ai-image-renamer/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Registry     *registry.Registry
	Batch        *usecase.BatchService
	Orchestrator *usecase.RenameOrchestrator
	Renamer      *usecase.RenameUseCase

	HTTPMetrics    *metrics.HTTPServerMetrics
	RenamerMetrics *metrics.RenamerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	aiExecutor := resilience.NewExecutor(AIResilienceConfig(cfg))

	captioner, err := NewCaptioner(cfg, aiExecutor)
	if err != nil {
		return nil, err
	}

	var records ports.NameRecordStore
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := postgres.NewNameRecordRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		records = repo
	} else {
		slog.Info("name_records_disabled", "reason", "POSTGRES_DSN is empty")
	}

	renamer := usecase.NewRenameUseCase(captioner, records, time.Duration(cfg.RecordTimeoutSeconds)*time.Second)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init preview storage: %w", err)
	}

	var events ports.EventPublisher
	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		events = publisher
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	renamerMetrics := metrics.NewRenamerMetrics("api", httpMetrics.Registerer())

	reg := registry.New()
	source := usecase.NewStorageContentSource(storage)
	archiver := usecase.NewArchiveBuilder(
		source,
		usecase.ParseCollisionPolicy(cfg.ArchiveCollisionPolicy),
		cfg.ArchiveFetchConcurrency,
	)
	batch := usecase.NewBatchService(reg, storage, source, archiver, cfg.RequireImages)

	service, err := NewNameService(cfg, renamer, aiExecutor)
	if err != nil {
		closeAll()
		return nil, err
	}
	orchestrator := usecase.NewRenameOrchestrator(reg, service, events, renamerMetrics)

	return &App{
		Config: cfg,

		Registry:     reg,
		Batch:        batch,
		Orchestrator: orchestrator,
		Renamer:      renamer,

		HTTPMetrics:    httpMetrics,
		RenamerMetrics: renamerMetrics,

		closeFn: func() {
			renamer.Wait()
			closeAll()
		},
	}, nil
}

// AIResilienceConfig maps the AI_* settings onto the executor policy.
func AIResilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RateLimitRPS = cfg.AIRateLimitRPS
	out.RateLimitBurst = cfg.AIRateLimitBurst
	out.BreakerEnabled = cfg.AIBreakerEnabled
	if cfg.AIBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.AIBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.AIBreakerFailureRatio
	out.BreakerOpenTimeout = time.Duration(cfg.AIBreakerOpenTimeoutMS) * time.Millisecond
	return out
}

// NewCaptioner picks the AI model client named by AI_PROVIDER.
func NewCaptioner(cfg config.Config, executor *resilience.Executor) (ports.ImageCaptioner, error) {
	timeout := time.Duration(cfg.NamingTimeoutSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.AIProvider)) {
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel, timeout, executor), nil
	case "gemini", "":
		client, err := gemini.New(gemini.Options{
			BaseURL: cfg.GeminiURL,
			Model:   cfg.GeminiModel,
			APIKey:  cfg.GeminiAPIKey,
			Timeout: timeout,
		}, executor)
		if err != nil {
			return nil, fmt.Errorf("init gemini captioner: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AIProvider)
	}
}

// NewNameService returns the naming service the orchestrator calls: the
// in-process use case, or the HTTP naming endpoint in remote mode.
func NewNameService(cfg config.Config, renamer ports.ImageRenamer, executor *resilience.Executor) (ports.NameService, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.NamingMode)) {
	case "local", "":
		return usecase.NewLocalNameService(renamer), nil
	case "remote":
		if strings.TrimSpace(cfg.NamingEndpointURL) == "" {
			return nil, fmt.Errorf("NAMING_MODE=remote requires NAMING_ENDPOINT_URL")
		}
		return renameapi.New(cfg.NamingEndpointURL, time.Duration(cfg.NamingTimeoutSeconds)*time.Second, executor), nil
	default:
		return nil, fmt.Errorf("unsupported NAMING_MODE %q", cfg.NamingMode)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
