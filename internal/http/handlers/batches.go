package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/pkg/zip"
)

func (a *App) BatchesList(w http.ResponseWriter, r *http.Request) {
	list, err := a.Batches.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"batches": list})
}

type batchesPutRequest struct {
	Batches []domain.Batch `json:"batches"`
}

func (a *App) BatchesPut(w http.ResponseWriter, r *http.Request) {
	var req batchesPutRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Batches == nil {
		req.Batches = []domain.Batch{}
	}
	if err := a.Batches.Replace(r.Context(), req.Batches); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"batches": req.Batches})
}

// BatchesSync merges the client's batch list with the server's, client
// winning on conflicts, and returns the merged result.
func (a *App) BatchesSync(w http.ResponseWriter, r *http.Request) {
	var req batchesPutRequest
	if !a.decode(w, r, &req) {
		return
	}
	merged, err := a.Batches.Sync(r.Context(), req.Batches)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"batches": merged})
}

// BatchesDownload streams every readable image in a batch as a zip.
// Files that no longer exist are skipped.
func (a *App) BatchesDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	batch, err := a.Batches.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}

	assets := make([]zip.Asset, 0, len(batch.Images))
	for _, img := range batch.Images {
		data, err := a.Library.ReadFile(r.Context(), img.File)
		if err != nil {
			a.Logger.Warn().Err(err).Str("file", img.File).Msg("batches: skipping missing file in download")
			continue
		}
		assets = append(assets, zip.Asset{Filename: img.File, Data: data})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", batch.Name+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
