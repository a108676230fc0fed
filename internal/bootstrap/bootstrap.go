// Package bootstrap assembles the task services from configuration. The API
// server, the sweep worker and the CLI share it.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/XIAOke8698/GRAS-Manager/internal/adapter/repo"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/download"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/lifecycle"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/grsai"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/prompt"
	"github.com/XIAOke8698/GRAS-Manager/internal/storage"
	"github.com/XIAOke8698/GRAS-Manager/internal/taskstore"
)

// Services bundles everything a front end needs.
type Services struct {
	Config    *infra.Config
	Store     *taskstore.Store
	Tasks     *lifecycle.Manager
	Downloads *download.Manager
	// Gate is nil when no translator credentials are configured.
	Gate *prompt.Gate

	closers []func()
}

// Close releases database pools and other resources.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Build wires the task store, the remote client, the prompt gate and both
// managers.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	svc := &Services{Config: cfg}

	backend, err := openBackend(ctx, cfg, logger, svc)
	if err != nil {
		svc.Close()
		return nil, err
	}
	store, err := taskstore.Open(ctx, backend, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Store = store

	region, ok := domain.ParseRegion(cfg.GRSAIRegion)
	if !ok {
		region = domain.RegionDomestic
	}
	client, err := grsai.NewClient(grsai.Options{
		APIKey:        cfg.GRSAIAPIKey,
		DomesticURL:   cfg.GRSAIDomesticURL,
		OverseasURL:   cfg.GRSAIOverseasURL,
		SubmitTimeout: cfg.SubmitTimeout,
		PollTimeout:   cfg.PollTimeout,
		Logger:        logger,
	})
	if err != nil {
		svc.Close()
		return nil, err
	}

	gate, err := NewGate(cfg, logger)
	if err != nil {
		l := infra.LoggerOrNop(logger)
		l.Warn().Err(err).Msg("bootstrap: prompt translation disabled")
	}
	svc.Gate = gate

	opts := lifecycle.Options{
		Store:         store,
		Client:        client,
		DefaultRegion: region,
		Concurrency:   cfg.RefreshConcurrency,
		Logger:        logger,
	}
	if gate != nil {
		opts.Gate = gate
	}
	svc.Tasks, err = lifecycle.NewManager(opts)
	if err != nil {
		svc.Close()
		return nil, err
	}

	dir := cfg.DownloadDir
	if abs, absErr := filepath.Abs(dir); absErr == nil {
		dir = abs
	}
	files, err := storage.NewFileStore(dir)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("bootstrap: download dir: %w", err)
	}
	svc.Downloads, err = download.NewManager(download.Options{
		Store:   store,
		Files:   files,
		Timeout: cfg.DownloadTimeout,
		Logger:  logger,
	})
	if err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// NewGate builds the prompt gate for the configured translation provider.
func NewGate(cfg *infra.Config, logger *infra.Logger) (*prompt.Gate, error) {
	httpClient := &http.Client{Timeout: cfg.SubmitTimeout}
	var (
		translator prompt.Translator
		err        error
	)
	switch cfg.TranslationProvider {
	case "gemini":
		translator, err = prompt.NewGeminiTranslator(prompt.GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: httpClient,
		})
	default:
		translator, err = prompt.NewOpenAITranslator(prompt.OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: httpClient,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: translator %s: %w", cfg.TranslationProvider, err)
	}
	return prompt.NewGate(prompt.GateOptions{
		Translator: translator,
		Threshold:  cfg.TranslationThreshold,
		Target:     cfg.TranslationTarget,
		Logger:     logger,
	})
}

func openBackend(ctx context.Context, cfg *infra.Config, logger *infra.Logger, svc *Services) (taskstore.Backend, error) {
	switch cfg.TaskStore {
	case infra.StorePostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		svc.closers = append(svc.closers, pool.Close)
		runner := infra.NewSQLRunner(pool, infra.LoggerOrNop(logger))
		pg, err := repo.NewTaskRepository(runner)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: ensure schema: %w", err)
		}
		return pg, nil
	default:
		return repo.NewTaskFileRepository(cfg.TasksFile, logger)
	}
}
