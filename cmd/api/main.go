package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kiranjd/lumiere-studio/internal/assess"
	"github.com/kiranjd/lumiere-studio/internal/batches"
	"github.com/kiranjd/lumiere-studio/internal/http/handlers"
	"github.com/kiranjd/lumiere-studio/internal/http/httpapi"
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
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	lib, err := library.NewStore(cfg.LibraryPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure library")
	}
	batchStore := batches.NewStore(cfg.LibraryPath)

	queueStore, err := queue.Open(cfg.QueueDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open queue db")
	}
	defer queueStore.Close()

	openRouter := openrouter.NewClient(openrouter.Options{
		APIKey:         cfg.OpenRouterAPIKey,
		BaseURL:        cfg.OpenRouterBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})

	var assessor *assess.Assessor
	var captioner *assess.Captioner
	if openRouter.HasCredentials() {
		assessor = assess.NewAssessor(openRouter, cfg.AssessModel, &logger)
		captioner = assess.NewCaptioner(openRouter, cfg.CaptionModel, &logger)
	} else {
		logger.Warn().Msg("OPENROUTER_API_KEY missing, assessment and captions disabled")
	}

	registry := buildRegistry(cfg, logger, lib, openRouter)

	var calendar *airtable.Client
	if cfg.AirtableConfigured() {
		calendar, err = airtable.NewClient(airtable.Options{
			PAT:            cfg.AirtablePAT,
			BaseID:         cfg.AirtableBaseID,
			Table:          cfg.AirtableTable,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure airtable")
		}
	} else {
		logger.Warn().Msg("airtable not configured, social routes disabled")
	}

	var pipeline *social.Pipeline
	if calendar != nil {
		pipeline = social.NewPipeline(calendar, registry, lib, cfg.PublicURL, logger)
	}

	app := &handlers.App{
		Logger:    logger,
		Library:   lib,
		Batches:   batchStore,
		Queue:     queueStore,
		Assessor:  assessor,
		Captioner: captioner,
		Pipeline:  pipeline,
	}
	if calendar != nil {
		app.Calendar = calendar
	}

	router := httpapi.NewRouter(app, logger, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		LibraryPath:     lib.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildRegistry(cfg *infra.Config, logger infra.Logger, lib *library.Store, openRouter *openrouter.Client) *provider.Registry {
	registry := provider.NewRegistry()

	if openRouter.HasCredentials() {
		registry.Register("google/gemini-3-pro-image-preview", openRouter)
		registry.Register("black-forest-labs/flux.2-pro", openRouter)
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
