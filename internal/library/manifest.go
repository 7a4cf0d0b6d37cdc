package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

const manifestFile = "manifest.json"

// Tag actions accepted by UpdateTag.
const (
	TagActionAdd    = "add"
	TagActionRemove = "remove"
)

func (s *Store) manifestPath() string {
	return filepath.Join(s.basePath, manifestFile)
}

func (s *Store) loadManifest() ([]domain.LibraryImage, error) {
	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("library: read manifest: %w", err)
	}
	var entries []domain.LibraryImage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("library: decode manifest: %w", err)
	}
	return entries, nil
}

func (s *Store) saveManifest(entries []domain.LibraryImage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("library: encode manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("library: write manifest: %w", err)
	}
	return nil
}

// UpdateTag adds or removes a tag on a manifest entry. Files missing from the
// manifest are appended.
func (s *Store) UpdateTag(ctx context.Context, file, tag, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if file == "" || tag == "" {
		return domain.ErrInvalidRequest
	}
	if action != TagActionAdd && action != TagActionRemove {
		return domain.ErrInvalidRequest
	}
	entries, err := s.loadManifest()
	if err != nil {
		return err
	}
	found := false
	for i := range entries {
		if entries[i].File != file {
			continue
		}
		found = true
		entries[i].Tags = applyTag(entries[i].Tags, tag, action)
		break
	}
	if !found {
		tags := []string{}
		if action == TagActionAdd {
			tags = []string{tag}
		}
		entries = append(entries, domain.LibraryImage{File: file, Tags: tags})
	}
	return s.saveManifest(entries)
}

func applyTag(tags []string, tag, action string) []string {
	switch action {
	case TagActionAdd:
		for _, t := range tags {
			if t == tag {
				return tags
			}
		}
		return append(tags, tag)
	case TagActionRemove:
		out := tags[:0]
		for _, t := range tags {
			if t != tag {
				out = append(out, t)
			}
		}
		return out
	}
	return tags
}

// ListLibrary merges the manifest, the specific/ expression folder, and loose
// images in the library root into one deduplicated listing.
func (s *Store) ListLibrary(ctx context.Context) ([]domain.LibraryImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var images []domain.LibraryImage

	entries, err := s.loadManifest()
	if err == nil {
		for _, entry := range entries {
			images = append(images, entry)
			seen[entry.File] = struct{}{}
		}
	}

	specificDir := filepath.Join(s.basePath, DirSpecific)
	if files, err := os.ReadDir(specificDir); err == nil {
		for _, f := range files {
			if f.IsDir() || !isImageFile(f.Name()) {
				continue
			}
			key := DirSpecific + "/" + f.Name()
			if _, ok := seen[key]; ok {
				continue
			}
			images = append(images, domain.LibraryImage{
				File: key,
				Tags: []string{"specific", "expression", ExpressionFromFilename(f.Name())},
			})
			seen[key] = struct{}{}
		}
	}

	loose, err := listByModTime(s.basePath)
	if err != nil {
		return images, nil
	}
	for _, path := range loose {
		name := filepath.Base(path)
		if !isImageFile(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		images = append(images, domain.LibraryImage{File: name, Tags: looseFileTags(name)})
		seen[name] = struct{}{}
	}

	return images, nil
}

// ExpressionFromFilename pulls the expression name out of "01-happy.png"
// style filenames, falling back to the whole stem.
func ExpressionFromFilename(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if idx := strings.Index(stem, "-"); idx >= 0 && idx+1 < len(stem) {
		return stem[idx+1:]
	}
	return stem
}

// looseFileTags infers tags for images synced straight into the library root.
func looseFileTags(name string) []string {
	tags := []string{"library"}
	switch {
	case strings.HasPrefix(name, "IMG_"):
		tags = append(tags, "ipad")
	case strings.HasPrefix(name, "20"):
		tags = append(tags, "generated")
	}
	return tags
}
