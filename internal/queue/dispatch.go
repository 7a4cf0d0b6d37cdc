package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/library"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

// ResultSaver persists a successful generation into the image library.
type ResultSaver interface {
	SaveGenerated(ctx context.Context, req library.SaveRequest) (*library.SaveResult, error)
}

// Dispatcher fans claimed queue items out to their providers. Every item
// runs in its own goroutine and settles only its own row; there is no
// ordering guarantee, no concurrency limit, and no retry.
type Dispatcher struct {
	store    *Store
	registry *provider.Registry
	saver    ResultSaver
	logger   infra.Logger
	inFlight atomic.Int64
}

// NewDispatcher wires a dispatcher over the queue store, provider registry,
// and library.
func NewDispatcher(store *Store, registry *provider.Registry, saver ResultSaver, logger infra.Logger) *Dispatcher {
	return &Dispatcher{store: store, registry: registry, saver: saver, logger: logger}
}

// InFlight reports how many dispatched items have not settled yet.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Dispatch runs every item concurrently and blocks until all have settled.
// Each item produces exactly one status update, success or failure.
func (d *Dispatcher) Dispatch(ctx context.Context, items []Item) {
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		d.inFlight.Add(1)
		go func(item Item) {
			defer wg.Done()
			defer d.inFlight.Add(-1)
			d.dispatchOne(ctx, item)
		}(item)
	}
	wg.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, item Item) {
	asset, err := d.registry.Generate(ctx, provider.GenerateRequest{
		Prompt:      item.Prompt,
		Model:       item.Model,
		Refs:        item.Refs,
		AspectRatio: item.Aspect,
		Quality:     provider.NormalizeQuality(item.Quality),
		RequestID:   item.ID,
	})
	if err != nil {
		d.logger.Error().Err(err).Str("item_id", item.ID).Str("model", item.Model).Msg("queue: generation failed")
		d.settleError(ctx, item.ID, err.Error())
		return
	}

	saved, err := d.saver.SaveGenerated(ctx, library.SaveRequest{
		Image:   asset.Data,
		Prompt:  item.Prompt,
		Model:   item.Model,
		Refs:    item.Refs,
		Aspect:  item.Aspect,
		Quality: item.Quality,
	})
	if err != nil {
		d.logger.Error().Err(err).Str("item_id", item.ID).Msg("queue: save result failed")
		d.settleError(ctx, item.ID, err.Error())
		return
	}

	if err := d.store.MarkDone(ctx, item.ID, library.DirToBeProcessed+"/"+saved.Filename); err != nil {
		d.logger.Error().Err(err).Str("item_id", item.ID).Msg("queue: mark done failed")
		return
	}
	d.logger.Info().Str("item_id", item.ID).Str("file", saved.Filename).Msg("queue: item done")
}

func (d *Dispatcher) settleError(ctx context.Context, id, message string) {
	if err := d.store.MarkError(ctx, id, message); err != nil {
		d.logger.Error().Err(err).Str("item_id", id).Msg("queue: mark error failed")
	}
}
