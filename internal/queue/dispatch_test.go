package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/library"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

type stubGenerator struct {
	fail bool
}

func (s stubGenerator) Generate(_ context.Context, req provider.GenerateRequest) (*provider.Asset, error) {
	if s.fail {
		return nil, errors.New("upstream rejected the request")
	}
	return &provider.Asset{Data: []byte("png-bytes"), MIME: "image/png"}, nil
}

type memorySaver struct {
	mu    sync.Mutex
	saved []library.SaveRequest
}

func (m *memorySaver) SaveGenerated(_ context.Context, req library.SaveRequest) (*library.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, req)
	return &library.SaveResult{Filename: "20260101_000000_stub_test.png"}, nil
}

func TestDispatchSettlesEveryItemExactlyOnce(t *testing.T) {
	store := newTestQueue(t)
	ctx := context.Background()

	registry := provider.NewRegistry()
	registry.Register("ok/model", stubGenerator{})
	registry.Register("bad/model", stubGenerator{fail: true})

	items, err := store.Enqueue(ctx, EnqueueRequest{
		Prompt: "naina at the beach",
		Models: []string{"ok/model", "bad/model", "ok/model", "unregistered/model"},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	saver := &memorySaver{}
	d := NewDispatcher(store, registry, saver, infra.NewLogger("test"))
	d.Dispatch(ctx, items)

	if got := d.InFlight(); got != 0 {
		t.Fatalf("in-flight after dispatch = %d, want 0", got)
	}

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts.InFlight() != 0 {
		t.Fatalf("unsettled items remain: %+v", counts)
	}
	if counts.Done != 2 || counts.Error != 2 {
		t.Fatalf("counts = %+v, want 2 done and 2 error", counts)
	}
	if len(saver.saved) != 2 {
		t.Fatalf("saved %d results, want 2", len(saver.saved))
	}

	for _, item := range items {
		got, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID %q: %v", item.ID, err)
		}
		switch got.Status {
		case StatusDone:
			if got.ResultFile == "" {
				t.Fatalf("done item %q has no result file", got.ID)
			}
		case StatusError:
			if got.Error == "" {
				t.Fatalf("error item %q has no message", got.ID)
			}
		default:
			t.Fatalf("item %q left in status %q", got.ID, got.Status)
		}
	}
}

func TestDispatchRecordsResultUnderToBeProcessed(t *testing.T) {
	store := newTestQueue(t)
	ctx := context.Background()

	registry := provider.NewRegistry()
	registry.Register("ok/model", stubGenerator{})

	items, err := store.Enqueue(ctx, EnqueueRequest{Prompt: "p", Models: []string{"ok/model"}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	d := NewDispatcher(store, registry, &memorySaver{}, infra.NewLogger("test"))
	d.Dispatch(ctx, items)

	got, err := store.GetByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	want := library.DirToBeProcessed + "/20260101_000000_stub_test.png"
	if got.ResultFile != want {
		t.Fatalf("result file = %q, want %q", got.ResultFile, want)
	}
}
