package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

type assessRequest struct {
	File   string `json:"file"`
	Prompt string `json:"prompt"`
}

// Assess runs the vision review over one library image.
func (a *App) Assess(w http.ResponseWriter, r *http.Request) {
	if a.Assessor == nil {
		a.fail(w, fmt.Errorf("assessment model: %w", domain.ErrNotConfigured))
		return
	}
	var req assessRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.File == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file required")
		return
	}
	data, err := a.Library.ReadFile(r.Context(), req.File)
	if err != nil {
		a.fail(w, err)
		return
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = a.Library.Meta(r.Context(), req.File).Prompt
	}
	result, err := a.Assessor.Assess(r.Context(), data, mimeForFile(req.File), prompt)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"assessment": result,
		"overall":    result.Overall(),
	})
}

type captionRequest struct {
	File      string   `json:"file"`
	Platforms []string `json:"platforms"`
	Context   string   `json:"context"`
}

// GenerateCaption writes a persona caption for a library image.
func (a *App) GenerateCaption(w http.ResponseWriter, r *http.Request) {
	if a.Captioner == nil {
		a.fail(w, fmt.Errorf("caption model: %w", domain.ErrNotConfigured))
		return
	}
	var req captionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.File == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file required")
		return
	}
	data, err := a.Library.ReadFile(r.Context(), req.File)
	if err != nil {
		a.fail(w, err)
		return
	}
	caption, err := a.Captioner.Generate(r.Context(), data, mimeForFile(req.File), req.Platforms, req.Context)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, caption)
}

func mimeForFile(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}
