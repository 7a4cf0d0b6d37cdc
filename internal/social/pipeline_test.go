package social

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/library"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

type fakeCalendar struct {
	mu      sync.Mutex
	pending []domain.ContentRecord
	status  map[string]domain.PostStatus
	images  map[string]string
	errs    map[string]string
	listErr error
}

func newFakeCalendar(records ...domain.ContentRecord) *fakeCalendar {
	return &fakeCalendar{
		pending: records,
		status:  map[string]domain.PostStatus{},
		images:  map[string]string{},
		errs:    map[string]string{},
	}
}

func (f *fakeCalendar) ListByStatus(_ context.Context, _ ...domain.PostStatus) ([]domain.ContentRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pending, nil
}

func (f *fakeCalendar) UpdateStatus(_ context.Context, id string, status domain.PostStatus, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = status
	return nil
}

func (f *fakeCalendar) SetImage(_ context.Context, id, imageURL, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = domain.PostStatusReview
	f.images[id] = imageURL
	_ = localPath
	return nil
}

func (f *fakeCalendar) SetError(_ context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = domain.PostStatusFailed
	f.errs[id] = message
	return nil
}

func (f *fakeCalendar) StatusCounts(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, status := range f.status {
		counts[string(status)]++
	}
	return counts, nil
}

type fakeGenerator struct {
	failFor map[string]bool
}

func (g *fakeGenerator) Generate(_ context.Context, req provider.GenerateRequest) (*provider.Asset, error) {
	if g.failFor[req.RequestID] {
		return nil, errors.New("model unavailable")
	}
	return &provider.Asset{Data: []byte("png")}, nil
}

type fakeSaver struct{}

func (fakeSaver) SaveGenerated(_ context.Context, _ library.SaveRequest) (*library.SaveResult, error) {
	return &library.SaveResult{Filename: "20260830_101500_gemini_test.png"}, nil
}

func TestProcessPendingLifecycle(t *testing.T) {
	cal := newFakeCalendar(
		domain.ContentRecord{ID: "rec1", Prompt: "p1", Model: "Gemini 3", Quality: "medium", AspectRatio: "1:1"},
		domain.ContentRecord{ID: "rec2", Prompt: "p2", Model: "Flux 2", Quality: "high", AspectRatio: "1:1"},
	)
	gen := &fakeGenerator{failFor: map[string]bool{"rec2": true}}
	p := NewPipeline(cal, gen, fakeSaver{}, "https://studio.example.com", infra.NewLogger("test"))

	p.ProcessPending(context.Background())

	if cal.status["rec1"] != domain.PostStatusReview {
		t.Fatalf("rec1 status = %q, want Review", cal.status["rec1"])
	}
	if got := cal.images["rec1"]; got != "https://studio.example.com/library/to-be-processed/20260830_101500_gemini_test.png" {
		t.Fatalf("rec1 image url = %q", got)
	}
	if cal.status["rec2"] != domain.PostStatusFailed {
		t.Fatalf("rec2 status = %q, want Failed", cal.status["rec2"])
	}
	if cal.errs["rec2"] != "model unavailable" {
		t.Fatalf("rec2 error = %q", cal.errs["rec2"])
	}
	if p.Running() {
		t.Fatalf("running flag not cleared")
	}
}

func TestProcessPendingSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	cal := newFakeCalendar(domain.ContentRecord{ID: "rec1", Prompt: "p", Model: "Gemini 3"})
	gen := &blockingGenerator{started: started, release: release}
	p := NewPipeline(cal, gen, fakeSaver{}, "", infra.NewLogger("test"))

	done := make(chan struct{})
	go func() {
		p.ProcessPending(context.Background())
		close(done)
	}()
	<-started

	// Second trigger while the first pass holds the flag.
	p.ProcessPending(context.Background())
	if gen.calls() != 1 {
		t.Fatalf("overlapping pass must be skipped, calls = %d", gen.calls())
	}

	close(release)
	<-done
	if p.Running() {
		t.Fatalf("running flag not cleared after pass")
	}
}

type blockingGenerator struct {
	mu      sync.Mutex
	n       int
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGenerator) Generate(_ context.Context, _ provider.GenerateRequest) (*provider.Asset, error) {
	g.mu.Lock()
	g.n++
	g.mu.Unlock()
	g.once.Do(func() { close(g.started) })
	<-g.release
	return &provider.Asset{Data: []byte("png")}, nil
}

func (g *blockingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func TestStatusReportsCountsAndRunning(t *testing.T) {
	cal := newFakeCalendar()
	cal.status["a"] = domain.PostStatusReview
	cal.status["b"] = domain.PostStatusReview
	cal.status["c"] = domain.PostStatusPublished
	p := NewPipeline(cal, &fakeGenerator{}, fakeSaver{}, "", infra.NewLogger("test"))

	got, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Total != 3 || got.StatusCounts["Review"] != 2 {
		t.Fatalf("status = %+v", got)
	}
	if got.Running {
		t.Fatalf("running should be false")
	}
}

func TestPublicURLFallsBackToLocalhost(t *testing.T) {
	p := NewPipeline(newFakeCalendar(), &fakeGenerator{}, fakeSaver{}, "", infra.NewLogger("test"))
	want := "http://localhost:8000/library/to-be-processed/x.png"
	if got := p.PublicURL("to-be-processed/x.png"); got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}
