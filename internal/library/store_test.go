package library

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSaveGeneratedWritesImageAndSidecar(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	res, err := store.SaveGenerated(context.Background(), SaveRequest{
		Image:   []byte(base64.StdEncoding.EncodeToString(pngBytes)),
		Prompt:  "Naina at a rooftop cafe,\nsunset light!",
		Model:   "google/gemini-3-pro-image-preview",
		Refs:    []string{"specific/01-happy.png"},
		Aspect:  "3:4",
		Quality: "high",
	})
	if err != nil {
		t.Fatalf("SaveGenerated: %v", err)
	}
	want := "20260314_092653_gemini_naina-at-a-rooftop-cafe-sunset.png"
	if res.Filename != want {
		t.Fatalf("filename = %q, want %q", res.Filename, want)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read saved image: %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Fatalf("saved bytes mismatch")
	}

	images, err := store.ListGenerated(context.Background())
	if err != nil {
		t.Fatalf("ListGenerated: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("generated count = %d, want 1", len(images))
	}
	img := images[0]
	if img.Prompt != "Naina at a rooftop cafe,\nsunset light!" {
		t.Fatalf("prompt not round-tripped: %q", img.Prompt)
	}
	if img.Quality != "high" || img.Aspect != "3:4" {
		t.Fatalf("metadata mismatch: %+v", img)
	}
	if img.File != DirToBeProcessed+"/"+want {
		t.Fatalf("file key = %q", img.File)
	}
}

func TestSaveGeneratedDataURLAndCollision(t *testing.T) {
	store := newTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	payload := []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes))
	first, err := store.SaveGenerated(context.Background(), SaveRequest{Image: payload, Prompt: "same", Model: "flux"})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := store.SaveGenerated(context.Background(), SaveRequest{Image: payload, Prompt: "same", Model: "flux"})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first.Filename == second.Filename {
		t.Fatalf("collision not suffixed: %q", second.Filename)
	}
	if !strings.HasSuffix(second.Filename, "_1.png") {
		t.Fatalf("unexpected collision suffix: %q", second.Filename)
	}
}

func TestSaveCellCollisionCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.SaveCell(ctx, pngBytes, "20260102_gemini_shot.png", 2)
	if err != nil {
		t.Fatalf("SaveCell: %v", err)
	}
	if first.Filename != "20260102_gemini_shot_2.png" {
		t.Fatalf("filename = %q", first.Filename)
	}
	second, err := store.SaveCell(ctx, pngBytes, "20260102_gemini_shot.png", 2)
	if err != nil {
		t.Fatalf("SaveCell second: %v", err)
	}
	if second.Filename != "20260102_gemini_shot_2_1.png" {
		t.Fatalf("collision filename = %q", second.Filename)
	}
}

func TestArchiveRestoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.SaveGenerated(ctx, SaveRequest{Image: pngBytes, Prompt: "portrait", Model: "gemini"})
	if err != nil {
		t.Fatalf("SaveGenerated: %v", err)
	}

	archived, err := store.Archive(ctx, DirToBeProcessed+"/"+res.Filename)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !strings.HasPrefix(archived, DirArchive+"/") {
		t.Fatalf("archived key = %q", archived)
	}
	if fileExists(res.Path) {
		t.Fatalf("source should have moved")
	}

	listing, err := store.ListArchive(ctx)
	if err != nil {
		t.Fatalf("ListArchive: %v", err)
	}
	if len(listing) != 1 {
		t.Fatalf("archive count = %d, want 1", len(listing))
	}

	restored, err := store.Restore(ctx, filepath.Base(archived))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !strings.HasPrefix(restored, DirToBeProcessed+"/") {
		t.Fatalf("restored key = %q", restored)
	}

	if _, err := store.Archive(ctx, restored); err != nil {
		t.Fatalf("re-archive: %v", err)
	}
	if err := store.DeleteArchived(ctx, res.Filename); err != nil {
		t.Fatalf("DeleteArchived: %v", err)
	}
	if err := store.DeleteArchived(ctx, res.Filename); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	for _, key := range []string{"../secret.png", "..", "/../../etc/passwd", ""} {
		if _, err := store.Resolve(key); !errors.Is(err, domain.ErrInvalidPath) {
			t.Fatalf("Resolve(%q) = %v, want ErrInvalidPath", key, err)
		}
	}
	if _, err := store.Resolve("to-be-processed/a.png"); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}

func TestArchiveMissingFile(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Archive(context.Background(), "to-be-processed/missing.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Archive missing = %v, want ErrNotFound", err)
	}
}

func TestDecodeImagePayloadVariants(t *testing.T) {
	raw, err := DecodeImagePayload(pngBytes)
	if err != nil || string(raw) != string(pngBytes) {
		t.Fatalf("raw payload: %v %q", err, raw)
	}
	b64, err := DecodeImagePayload([]byte(base64.StdEncoding.EncodeToString(pngBytes)))
	if err != nil || string(b64) != string(pngBytes) {
		t.Fatalf("base64 payload: %v", err)
	}
	if _, err := DecodeImagePayload(nil); err == nil {
		t.Fatalf("empty payload should fail")
	}
}
