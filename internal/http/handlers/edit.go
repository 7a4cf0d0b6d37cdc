package handlers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/internal/editor"
	"github.com/kiranjd/lumiere-studio/internal/library"
)

type editRequest struct {
	File     string             `json:"file"`
	Rect     editor.DisplayRect `json:"rect"`
	DisplayW float64            `json:"displayW"`
	DisplayH float64            `json:"displayH"`
	Rotate   int                `json:"rotate"`
	FlipH    bool               `json:"flipH"`
	FlipV    bool               `json:"flipV"`
	Ratio    float64            `json:"ratio"`
}

// ImagesEdit applies rotation, flips, and a crop to a library image and
// saves the result as a new generated image.
func (a *App) ImagesEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !a.decode(w, r, &req) {
		return
	}
	src, meta, ok := a.loadImage(w, r, req.File)
	if !ok {
		return
	}

	session := editor.NewSession(src)
	if req.Rotate != 0 {
		if err := session.Rotate(req.Rotate); err != nil {
			a.fail(w, err)
			return
		}
	}
	if req.FlipH {
		session.FlipHorizontal()
	}
	if req.FlipV {
		session.FlipVertical()
	}

	canvas := session.Canvas()
	bounds := canvas.Bounds()
	displayW, displayH := req.DisplayW, req.DisplayH
	if displayW <= 0 || displayH <= 0 {
		displayW, displayH = float64(bounds.Dx()), float64(bounds.Dy())
	}
	rect := editor.ScaleToNatural(req.Rect, displayW, displayH, bounds.Dx(), bounds.Dy())
	if req.Ratio > 0 {
		rect = rect.ConstrainRatio(req.Ratio)
	}
	if err := session.Crop(rect); err != nil {
		a.fail(w, err)
		return
	}

	encoded, err := encodePNG(session.Canvas())
	if err != nil {
		a.fail(w, err)
		return
	}
	saved, err := a.Library.SaveGenerated(r.Context(), library.SaveRequest{
		Image:   encoded,
		Prompt:  meta.Prompt,
		Model:   meta.Model,
		Refs:    meta.Refs,
		Aspect:  meta.Aspect,
		Quality: meta.Quality,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{
		"filename": saved.Filename,
		"file":     library.DirToBeProcessed + "/" + saved.Filename,
	})
}

type splitGridRequest struct {
	File string `json:"file"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// ImagesSplitGrid cuts a library image into equal cells and saves each one.
func (a *App) ImagesSplitGrid(w http.ResponseWriter, r *http.Request) {
	var req splitGridRequest
	if !a.decode(w, r, &req) {
		return
	}
	src, _, ok := a.loadImage(w, r, req.File)
	if !ok {
		return
	}
	cells, err := editor.GridSplit(src, req.Rows, req.Cols)
	if err != nil {
		a.fail(w, err)
		return
	}

	base := req.File
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	files := make([]string, 0, len(cells))
	for i, cell := range cells {
		encoded, err := encodePNG(cell)
		if err != nil {
			a.fail(w, err)
			return
		}
		saved, err := a.Library.SaveCell(r.Context(), encoded, base, i+1)
		if err != nil {
			a.fail(w, err)
			return
		}
		files = append(files, saved.Filename)
	}
	a.json(w, http.StatusCreated, map[string]any{"files": files})
}

func (a *App) loadImage(w http.ResponseWriter, r *http.Request, file string) (image.Image, domain.ImageMeta, bool) {
	if file == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file required")
		return nil, domain.ImageMeta{}, false
	}
	data, err := a.Library.ReadFile(r.Context(), file)
	if err != nil {
		a.fail(w, err)
		return nil, domain.ImageMeta{}, false
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("undecodable image: %v", err))
		return nil, domain.ImageMeta{}, false
	}
	return src, a.Library.Meta(r.Context(), file), true
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
