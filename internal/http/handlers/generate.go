package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/internal/queue"
)

type generateRequest struct {
	Prompt  string   `json:"prompt"`
	Models  []string `json:"models"`
	Refs    []string `json:"refs"`
	Aspect  string   `json:"aspect"`
	Quality string   `json:"quality"`
}

// Generate enqueues one queue item per requested model. The worker claims
// and dispatches them.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	items, err := a.Queue.Enqueue(r.Context(), queue.EnqueueRequest{
		Prompt:  req.Prompt,
		Models:  req.Models,
		Refs:    req.Refs,
		Aspect:  req.Aspect,
		Quality: req.Quality,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"items": items})
}

func (a *App) GenerateQueue(w http.ResponseWriter, r *http.Request) {
	items, err := a.Queue.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	counts, err := a.Queue.StatusCounts(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":    items,
		"counts":   counts,
		"inFlight": counts.InFlight(),
	})
}

func (a *App) GenerateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := a.Queue.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "queue item not found")
			return
		}
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, item)
}
