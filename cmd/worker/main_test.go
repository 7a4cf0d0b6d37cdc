package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranjd/lumiere-studio/internal/library"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
	"github.com/kiranjd/lumiere-studio/internal/queue"
)

// gateGenerator holds every generation at a barrier so the test can observe
// how many run at once.
type gateGenerator struct {
	started chan struct{}
	release chan struct{}
	active  atomic.Int64
	peak    atomic.Int64
}

func (g *gateGenerator) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.Asset, error) {
	cur := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		p := g.peak.Load()
		if cur <= p || g.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &provider.Asset{Data: []byte("png"), MIME: "image/png"}, nil
}

type stubSaver struct{}

func (stubSaver) SaveGenerated(ctx context.Context, req library.SaveRequest) (*library.SaveResult, error) {
	return &library.SaveResult{Filename: "20260830_000000_stub_test.png"}, nil
}

func TestRunDispatchesClaimedBacklogConcurrently(t *testing.T) {
	store, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	models := []string{"model-a", "model-b", "model-c"}
	if _, err := store.Enqueue(ctx, queue.EnqueueRequest{Prompt: "fan out", Models: models}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	gen := &gateGenerator{
		started: make(chan struct{}, len(models)),
		release: make(chan struct{}),
	}
	registry := provider.NewRegistry()
	for _, model := range models {
		registry.Register(model, gen)
	}

	logger := zerolog.New(io.Discard)
	dispatcher := queue.NewDispatcher(store, registry, stubSaver{}, logger)

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, store, dispatcher, 10*time.Millisecond, logger)
	}()

	for i := 0; i < len(models); i++ {
		select {
		case <-gen.started:
		case <-time.After(2 * time.Second):
			close(gen.release)
			t.Fatalf("only %d of %d generations running concurrently", i, len(models))
		}
	}
	close(gen.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		counts, err := store.StatusCounts(ctx)
		if err != nil {
			t.Fatalf("StatusCounts: %v", err)
		}
		if counts.InFlight() == 0 {
			if counts.Done != len(models) {
				t.Fatalf("counts = %+v, want %d done", counts, len(models))
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("items never settled: %+v", counts)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v, want context.Canceled", err)
	}

	if peak := gen.peak.Load(); peak != int64(len(models)) {
		t.Fatalf("peak concurrent generations = %d, want %d", peak, len(models))
	}
}
