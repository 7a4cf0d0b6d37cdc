// Package social drives the content calendar pipeline: Idea records are
// generated into images and handed back for review.
package social

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/library"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

// Calendar is the slice of the Airtable client the pipeline needs.
type Calendar interface {
	ListByStatus(ctx context.Context, statuses ...domain.PostStatus) ([]domain.ContentRecord, error)
	UpdateStatus(ctx context.Context, recordID string, status domain.PostStatus, extra map[string]any) error
	SetImage(ctx context.Context, recordID, imageURL, localPath string) error
	SetError(ctx context.Context, recordID, message string) error
	StatusCounts(ctx context.Context) (map[string]int, error)
}

// Generator routes a generation request to its provider.
type Generator interface {
	Generate(ctx context.Context, req provider.GenerateRequest) (*provider.Asset, error)
}

// Saver persists a generated image into the library.
type Saver interface {
	SaveGenerated(ctx context.Context, req library.SaveRequest) (*library.SaveResult, error)
}

// Status reports the pipeline's view of the calendar.
type Status struct {
	StatusCounts map[string]int `json:"statusCounts"`
	Total        int            `json:"total"`
	Running      bool           `json:"running"`
}

// Pipeline processes Idea records through generation. One run at a time; an
// overlapping trigger is skipped, not queued.
type Pipeline struct {
	calendar  Calendar
	generator Generator
	saver     Saver
	publicURL string
	logger    infra.Logger
	running   atomic.Bool
}

// NewPipeline wires the pipeline. publicURL is the externally reachable base
// for library files and may be empty.
func NewPipeline(calendar Calendar, generator Generator, saver Saver, publicURL string, logger infra.Logger) *Pipeline {
	return &Pipeline{
		calendar:  calendar,
		generator: generator,
		saver:     saver,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Running reports whether a pass is in progress.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// PublicURL builds the externally reachable URL for a library-relative file.
func (p *Pipeline) PublicURL(relPath string) string {
	base := p.publicURL
	if base == "" {
		base = "http://localhost:8000"
	}
	return base + "/library/" + strings.TrimLeft(relPath, "/")
}

// ProcessPending runs one generation pass over every Idea record. A pass
// already in progress makes this call a no-op.
func (p *Pipeline) ProcessPending(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn().Msg("social: generation pass already running, skipping")
		return
	}
	defer p.running.Store(false)

	records, err := p.calendar.ListByStatus(ctx, domain.PostStatusIdea)
	if err != nil {
		p.logger.Error().Err(err).Msg("social: list pending records failed")
		return
	}
	p.logger.Info().Int("count", len(records)).Msg("social: records pending generation")

	for _, record := range records {
		if ctx.Err() != nil {
			return
		}
		p.processRecord(ctx, record)
	}
}

func (p *Pipeline) processRecord(ctx context.Context, record domain.ContentRecord) {
	if err := p.calendar.UpdateStatus(ctx, record.ID, domain.PostStatusGenerating, nil); err != nil {
		p.logger.Error().Err(err).Str("record_id", record.ID).Msg("social: mark generating failed")
		return
	}
	p.logger.Info().Str("record_id", record.ID).Str("title", record.Title).Msg("social: generating image")

	asset, err := p.generator.Generate(ctx, provider.GenerateRequest{
		Prompt:      record.Prompt,
		Model:       record.Model,
		Refs:        record.ReferenceImages,
		AspectRatio: record.AspectRatio,
		Quality:     provider.NormalizeQuality(record.Quality),
		RequestID:   record.ID,
	})
	if err != nil {
		p.fail(ctx, record.ID, err)
		return
	}

	saved, err := p.saver.SaveGenerated(ctx, library.SaveRequest{
		Image:   asset.Data,
		Prompt:  record.Prompt,
		Model:   record.Model,
		Refs:    record.ReferenceImages,
		Aspect:  record.AspectRatio,
		Quality: record.Quality,
	})
	if err != nil {
		p.fail(ctx, record.ID, err)
		return
	}

	relPath := library.DirToBeProcessed + "/" + saved.Filename
	if err := p.calendar.SetImage(ctx, record.ID, p.PublicURL(relPath), relPath); err != nil {
		p.logger.Error().Err(err).Str("record_id", record.ID).Msg("social: set image failed")
		return
	}
	p.logger.Info().Str("record_id", record.ID).Str("file", saved.Filename).Msg("social: record generated")
}

func (p *Pipeline) fail(ctx context.Context, recordID string, cause error) {
	p.logger.Error().Err(cause).Str("record_id", recordID).Msg("social: generation failed")
	if err := p.calendar.SetError(ctx, recordID, cause.Error()); err != nil {
		p.logger.Error().Err(err).Str("record_id", recordID).Msg("social: mark failed errored")
	}
}

// Status tallies the calendar and reports whether a pass is running.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	counts, err := p.calendar.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &Status{StatusCounts: counts, Total: total, Running: p.Running()}, nil
}

// Run triggers a pass immediately and then on every tick until the context
// is cancelled.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	p.ProcessPending(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessPending(ctx)
		}
	}
}
