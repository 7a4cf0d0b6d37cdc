package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranjd/lumiere-studio/internal/library"
)

func (a *App) ImagesGenerated(w http.ResponseWriter, r *http.Request) {
	images, err := a.Library.ListGenerated(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"images": images})
}

func (a *App) ImagesLibrary(w http.ResponseWriter, r *http.Request) {
	images, err := a.Library.ListLibrary(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"images": images})
}

func (a *App) ImagesArchive(w http.ResponseWriter, r *http.Request) {
	images, err := a.Library.ListArchive(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"images": images})
}

type imageSaveRequest struct {
	Image   string   `json:"image"`
	Prompt  string   `json:"prompt"`
	Model   string   `json:"model"`
	Refs    []string `json:"refs"`
	Aspect  string   `json:"aspect"`
	Quality string   `json:"quality"`
}

func (a *App) ImagesSave(w http.ResponseWriter, r *http.Request) {
	var req imageSaveRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Image == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image payload required")
		return
	}
	saved, err := a.Library.SaveGenerated(r.Context(), library.SaveRequest{
		Image:   []byte(req.Image),
		Prompt:  req.Prompt,
		Model:   req.Model,
		Refs:    req.Refs,
		Aspect:  req.Aspect,
		Quality: req.Quality,
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

type saveGridRequest struct {
	BaseFilename string   `json:"baseFilename"`
	Cells        []string `json:"cells"`
}

func (a *App) ImagesSaveGrid(w http.ResponseWriter, r *http.Request) {
	var req saveGridRequest
	if !a.decode(w, r, &req) {
		return
	}
	if len(req.Cells) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "cells required")
		return
	}
	saved := make([]string, 0, len(req.Cells))
	for i, cell := range req.Cells {
		result, err := a.Library.SaveCell(r.Context(), []byte(cell), req.BaseFilename, i+1)
		if err != nil {
			a.fail(w, err)
			return
		}
		saved = append(saved, result.Filename)
	}
	a.json(w, http.StatusCreated, map[string]any{"files": saved})
}

type tagRequest struct {
	File   string `json:"file"`
	Tag    string `json:"tag"`
	Action string `json:"action"`
}

func (a *App) ImagesTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.File == "" || req.Tag == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file and tag required")
		return
	}
	if req.Action == "" {
		req.Action = library.TagActionAdd
	}
	if err := a.Library.UpdateTag(r.Context(), req.File, req.Tag, req.Action); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ImagesDelete archives an image rather than destroying it.
func (a *App) ImagesDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "path required")
		return
	}
	archived, err := a.Library.Archive(r.Context(), key)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"archived": archived})
}

func (a *App) ImagesRestore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}
	restored, err := a.Library.Restore(r.Context(), name)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"restored": restored})
}

func (a *App) ImagesDeleteArchived(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}
	if err := a.Library.DeleteArchived(r.Context(), name); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type incognitoRequest struct {
	Images []string `json:"images"`
}

func (a *App) IncognitoGet(w http.ResponseWriter, r *http.Request) {
	images, err := a.Library.Incognito(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"images": images})
}

func (a *App) IncognitoPut(w http.ResponseWriter, r *http.Request) {
	var req incognitoRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Images == nil {
		req.Images = []string{}
	}
	if err := a.Library.SaveIncognito(r.Context(), req.Images); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"images": req.Images})
}
