package library

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonAlnumRe   = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
)

// GeneratedFilename builds the canonical filename for a saved generation:
// <timestamp>_<modelShort>_<promptSlug>.png.
func GeneratedFilename(now time.Time, model, prompt string) string {
	return fmt.Sprintf("%s_%s_%s.png", now.Format("20060102_150405"), ModelShortName(model), PromptSlug(prompt))
}

// PromptSlug reduces a prompt to a filename-safe slug: whitespace collapsed,
// non-alphanumerics stripped, truncated to 30 chars, lowercased, dashed.
func PromptSlug(prompt string) string {
	clean := whitespaceRe.ReplaceAllString(prompt, " ")
	clean = nonAlnumRe.ReplaceAllString(clean, "")
	if len(clean) > 30 {
		clean = clean[:30]
	}
	clean = strings.TrimSpace(clean)
	clean = strings.ReplaceAll(clean, " ", "-")
	clean = strings.ToLower(clean)
	if clean == "" {
		return "generated"
	}
	return clean
}

// ModelShortName extracts a compact model tag from a model id like
// "google/gemini-3-pro-image-preview" -> "gemini".
func ModelShortName(model string) string {
	short := model
	if idx := strings.LastIndex(short, "/"); idx >= 0 {
		short = short[idx+1:]
	}
	if idx := strings.Index(short, "-"); idx >= 0 {
		short = short[:idx]
	}
	if len(short) > 10 {
		short = short[:10]
	}
	if short == "" {
		return "model"
	}
	return short
}

func sidecarPath(imagePath string) string {
	if dot := strings.LastIndexByte(imagePath, '.'); dot >= 0 {
		return imagePath[:dot] + ".json"
	}
	return imagePath + ".json"
}

func writeSidecar(imagePath string, meta domain.ImageMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("library: encode metadata: %w", err)
	}
	if err := os.WriteFile(sidecarPath(imagePath), data, 0o644); err != nil {
		return fmt.Errorf("library: write metadata: %w", err)
	}
	return nil
}

func readSidecar(imagePath string) (domain.ImageMeta, error) {
	var meta domain.ImageMeta
	data, err := os.ReadFile(sidecarPath(imagePath))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

func moveSidecar(oldImagePath, newImagePath string) {
	src := sidecarPath(oldImagePath)
	if fileExists(src) {
		_ = os.Rename(src, sidecarPath(newImagePath))
	}
}

func removeSidecar(imagePath string) {
	path := sidecarPath(imagePath)
	if fileExists(path) {
		_ = os.Remove(path)
	}
}
