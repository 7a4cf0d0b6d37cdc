package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/library"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
	"github.com/kiranjd/lumiere-studio/internal/providers/openai"
	"github.com/kiranjd/lumiere-studio/internal/providers/openrouter"
	"github.com/kiranjd/lumiere-studio/internal/providers/replicate"
	"github.com/kiranjd/lumiere-studio/internal/queue"
	"github.com/kiranjd/lumiere-studio/internal/social"
	"github.com/kiranjd/lumiere-studio/internal/social/airtable"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib, err := library.NewStore(cfg.LibraryPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure library")
	}

	queueStore, err := queue.Open(cfg.QueueDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to open queue db")
	}
	defer queueStore.Close()

	registry := buildRegistry(cfg, logger, lib)
	dispatcher := queue.NewDispatcher(queueStore, registry, lib, logger)

	if cfg.AirtableConfigured() && cfg.PipelineEnabled {
		calendar, err := airtable.NewClient(airtable.Options{
			PAT:            cfg.AirtablePAT,
			BaseID:         cfg.AirtableBaseID,
			Table:          cfg.AirtableTable,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure airtable")
		}
		pipeline := social.NewPipeline(calendar, registry, lib, cfg.PublicURL, logger)
		go pipeline.Run(ctx, cfg.PipelineInterval)
	} else {
		logger.Info().Msg("worker: social pipeline disabled")
	}

	logger.Info().Msg("worker: started")
	if err := run(ctx, queueStore, dispatcher, cfg.QueuePollInterval, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// run claims pending queue items and dispatches them until the context ends.
// The whole pending backlog is claimed before dispatching so a multi-model
// enqueue fans out concurrently instead of settling one item per poll.
func run(ctx context.Context, store *queue.Store, dispatcher *queue.Dispatcher, pollInterval time.Duration, logger infra.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		items := claimBatch(ctx, store, logger)
		if len(items) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}

		dispatcher.Dispatch(ctx, items)
	}
}

// claimBatch drains the pending queue, stopping at the first empty claim or
// claim failure.
func claimBatch(ctx context.Context, store *queue.Store, logger infra.Logger) []queue.Item {
	var items []queue.Item
	for {
		item, err := store.Claim(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrNoItemAvailable) && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("worker: failed to claim item")
			}
			return items
		}
		items = append(items, *item)
	}
}

func buildRegistry(cfg *infra.Config, logger infra.Logger, lib *library.Store) *provider.Registry {
	registry := provider.NewRegistry()

	openRouter := openrouter.NewClient(openrouter.Options{
		APIKey:         cfg.OpenRouterAPIKey,
		BaseURL:        cfg.OpenRouterBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if openRouter.HasCredentials() {
		registry.Register("google/gemini-3-pro-image-preview", openRouter)
		registry.Register("black-forest-labs/flux.2-pro", openRouter)
	} else {
		logger.Warn().Msg("worker: OPENROUTER_API_KEY missing, gemini and flux models disabled")
	}

	openAI := openai.NewClient(openai.Options{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
		RefFetcher:     newRefFetcher(lib, cfg.ProviderTimeout),
	})
	if openAI.HasCredentials() {
		registry.Register("gpt-image-1", openAI)
	}

	replicateClient := replicate.NewClient(replicate.Options{
		APIToken:       cfg.ReplicateAPIToken,
		BaseURL:        cfg.ReplicateBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if replicateClient.HasCredentials() {
		registry.Register("prunaai/z-image-turbo", replicateClient)
	}

	return registry
}

// newRefFetcher resolves reference images for the edits endpoint: remote URLs
// are downloaded, anything else is treated as a library-relative path.
func newRefFetcher(lib *library.Store, timeout time.Duration) openai.RefFetcher {
	httpClient := &http.Client{Timeout: timeout}
	return func(ctx context.Context, ref string) ([]byte, string, error) {
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
			if err != nil {
				return nil, "", err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return nil, "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, "", fmt.Errorf("fetch reference: unexpected status %d", resp.StatusCode)
			}
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, "", err
			}
			return data, resp.Header.Get("Content-Type"), nil
		}
		data, err := lib.ReadFile(ctx, ref)
		if err != nil {
			return nil, "", err
		}
		return data, "image/png", nil
	}
}
