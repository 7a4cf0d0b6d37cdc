package library

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

// Subdirectories of the library root.
const (
	DirToBeProcessed = "to-be-processed"
	DirGenerated     = "generated"
	DirSpecific      = "specific"
	DirArchive       = "archive"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Store persists the image library on the local filesystem: generated images
// with sidecar metadata, the reference manifest, and the archive. It is the
// single owner of everything under its base path.
type Store struct {
	basePath string
	now      func() time.Time
}

// NewStore initializes a Store rooted at basePath and ensures the expected
// subdirectories exist.
func NewStore(basePath string) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("library: base path is required")
	}
	for _, dir := range []string{DirToBeProcessed, DirGenerated, DirArchive} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("library: ensure %s: %w", dir, err)
		}
	}
	return &Store{basePath: basePath, now: time.Now}, nil
}

// BasePath returns the configured root directory.
func (s *Store) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Resolve maps a library-relative key onto an absolute path, rejecting
// anything that would escape the base directory.
func (s *Store) Resolve(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

// SaveRequest carries everything needed to persist one generated image.
type SaveRequest struct {
	// Image is raw bytes, raw base64, or a data URL.
	Image  []byte
	Prompt string
	Model  string
	Refs   []string
	Aspect string
	Quality string
}

// SaveResult reports where a save landed.
type SaveResult struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// SaveGenerated decodes the image payload, writes it under to-be-processed/
// with a timestamped filename, and writes the metadata sidecar next to it.
func (s *Store) SaveGenerated(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := DecodeImagePayload(req.Image)
	if err != nil {
		return nil, err
	}
	now := s.now()
	filename := GeneratedFilename(now, req.Model, req.Prompt)
	path := filepath.Join(s.basePath, DirToBeProcessed, filename)
	path, filename = avoidCollision(path, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("library: write image: %w", err)
	}
	meta := domain.ImageMeta{
		Prompt:    req.Prompt,
		Model:     req.Model,
		Refs:      req.Refs,
		Aspect:    req.Aspect,
		Quality:   req.Quality,
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := writeSidecar(path, meta); err != nil {
		return nil, err
	}
	return &SaveResult{Filename: filename, Path: path}, nil
}

// SaveCell writes a grid-cropped image as <base>_<index>.png, suffixing a
// counter on collision.
func (s *Store) SaveCell(ctx context.Context, image []byte, baseFilename string, index int) (*SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := DecodeImagePayload(image)
	if err != nil {
		return nil, err
	}
	base, err := sanitizeKey(baseFilename)
	if err != nil {
		return nil, err
	}
	base = strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))
	filename := fmt.Sprintf("%s_%d.png", base, index)
	path := filepath.Join(s.basePath, DirToBeProcessed, filename)
	for counter := 1; fileExists(path); counter++ {
		filename = fmt.Sprintf("%s_%d_%d.png", base, index, counter)
		path = filepath.Join(s.basePath, DirToBeProcessed, filename)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("library: write cell: %w", err)
	}
	return &SaveResult{Filename: filename, Path: path}, nil
}

// ListGenerated returns the images under to-be-processed/, newest first, with
// sidecar metadata when present.
func (s *Store) ListGenerated(ctx context.Context) ([]domain.GeneratedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := listByModTime(filepath.Join(s.basePath, DirToBeProcessed))
	if err != nil {
		return nil, err
	}
	images := make([]domain.GeneratedImage, 0, len(files))
	for _, f := range files {
		if strings.ToLower(filepath.Ext(f)) != ".png" {
			continue
		}
		img := domain.GeneratedImage{
			File: DirToBeProcessed + "/" + filepath.Base(f),
			Tags: []string{"generated", "new"},
		}
		// Sidecar failures degrade to a bare entry.
		if meta, err := readSidecar(f); err == nil {
			img.Prompt = meta.Prompt
			img.Model = meta.Model
			img.Refs = meta.Refs
			img.Aspect = meta.Aspect
			img.Quality = meta.Quality
			img.CreatedAt = meta.CreatedAt
		}
		images = append(images, img)
	}
	return images, nil
}

// ListArchive returns archived images, newest first.
func (s *Store) ListArchive(ctx context.Context) ([]domain.GeneratedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := listByModTime(filepath.Join(s.basePath, DirArchive))
	if err != nil {
		return nil, err
	}
	images := make([]domain.GeneratedImage, 0, len(files))
	for _, f := range files {
		if !isImageFile(f) {
			continue
		}
		images = append(images, domain.GeneratedImage{
			File: DirArchive + "/" + filepath.Base(f),
			Tags: []string{"archived"},
		})
	}
	return images, nil
}

// Archive moves a library file into archive/ instead of deleting it. The
// metadata sidecar, when present, moves along with it.
func (s *Store) Archive(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := s.Resolve(key)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", domain.ErrNotFound
	}
	if info.IsDir() {
		return "", domain.ErrInvalidPath
	}
	dst := filepath.Join(s.basePath, DirArchive, filepath.Base(src))
	if fileExists(dst) {
		stamp := s.now().Format("150405")
		ext := filepath.Ext(src)
		stem := strings.TrimSuffix(filepath.Base(src), ext)
		dst = filepath.Join(s.basePath, DirArchive, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("library: archive: %w", err)
	}
	moveSidecar(src, dst)
	return DirArchive + "/" + filepath.Base(dst), nil
}

// Restore moves an archived file back into to-be-processed/.
func (s *Store) Restore(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := sanitizeKey(name)
	if err != nil {
		return "", err
	}
	src := filepath.Join(s.basePath, DirArchive, filepath.Base(clean))
	if !fileExists(src) {
		return "", domain.ErrNotFound
	}
	dst := filepath.Join(s.basePath, DirToBeProcessed, filepath.Base(src))
	if fileExists(dst) {
		stamp := s.now().Format("150405")
		ext := filepath.Ext(src)
		stem := strings.TrimSuffix(filepath.Base(src), ext)
		dst = filepath.Join(s.basePath, DirToBeProcessed, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("library: restore: %w", err)
	}
	moveSidecar(src, dst)
	return DirToBeProcessed + "/" + filepath.Base(dst), nil
}

// DeleteArchived permanently removes a file from archive/.
func (s *Store) DeleteArchived(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := sanitizeKey(name)
	if err != nil {
		return err
	}
	path := filepath.Join(s.basePath, DirArchive, filepath.Base(clean))
	if !fileExists(path) {
		return domain.ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("library: delete: %w", err)
	}
	removeSidecar(path)
	return nil
}

// ReadFile loads a library file by relative key.
func (s *Store) ReadFile(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("library: read: %w", err)
	}
	return data, nil
}

// Meta returns the sidecar metadata for a library file, or a zero value when
// the sidecar is missing or the key is invalid.
func (s *Store) Meta(ctx context.Context, key string) domain.ImageMeta {
	if err := ctx.Err(); err != nil {
		return domain.ImageMeta{}
	}
	path, err := s.Resolve(key)
	if err != nil {
		return domain.ImageMeta{}
	}
	meta, err := readSidecar(path)
	if err != nil {
		return domain.ImageMeta{}
	}
	return meta
}

// DecodeImagePayload accepts raw bytes, raw base64, or a data URL and returns
// the image bytes.
func DecodeImagePayload(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errors.New("library: empty image payload")
	}
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "data:") {
		if idx := strings.IndexByte(text, ','); idx >= 0 {
			text = text[idx+1:]
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(text); err == nil {
		return decoded, nil
	}
	return payload, nil
}

func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", domain.ErrInvalidPath
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", domain.ErrInvalidPath
	}
	return cleaned, nil
}

func listByModTime(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("library: list %s: %w", dir, err)
	}
	type fileInfo struct {
		path string
		mod  time.Time
	}
	infos := make([]fileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, fileInfo{path: filepath.Join(dir, e.Name()), mod: fi.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].mod.After(infos[j].mod) })
	out := make([]string, len(infos))
	for i, fi := range infos {
		out[i] = fi.path
	}
	return out, nil
}

func isImageFile(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func avoidCollision(path, filename string) (string, string) {
	if !fileExists(path) {
		return path, filename
	}
	dir := filepath.Dir(path)
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
		candidatePath := filepath.Join(dir, candidate)
		if !fileExists(candidatePath) {
			return candidatePath, candidate
		}
	}
}
