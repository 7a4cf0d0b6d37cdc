// Package handlers holds the HTTP handler set and its shared dependencies.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kiranjd/lumiere-studio/internal/assess"
	"github.com/kiranjd/lumiere-studio/internal/batches"
	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/library"
	"github.com/kiranjd/lumiere-studio/internal/queue"
	"github.com/kiranjd/lumiere-studio/internal/social"
)

// Calendar is the slice of the Airtable client the handlers need. It is nil
// when Airtable is not configured.
type Calendar interface {
	ListByStatus(ctx context.Context, statuses ...domain.PostStatus) ([]domain.ContentRecord, error)
	Create(ctx context.Context, record domain.ContentRecord) (string, error)
	UpdateStatus(ctx context.Context, recordID string, status domain.PostStatus, extra map[string]any) error
	UpdateContent(ctx context.Context, recordID string, caption, hashtags *string, platforms []string, scheduledDate, status *string) error
	Delete(ctx context.Context, recordID string) error
}

type App struct {
	Logger    infra.Logger
	Library   *library.Store
	Batches   *batches.Store
	Queue     *queue.Store
	Assessor  *assess.Assessor
	Captioner *assess.Captioner
	Calendar  Calendar
	Pipeline  *social.Pipeline
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": kind, "message": message},
	})
}

// fail maps domain errors onto HTTP statuses.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidPath), errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		a.error(w, http.StatusServiceUnavailable, "not_configured", err.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// requireCalendar guards the Airtable-backed routes.
func (a *App) requireCalendar(w http.ResponseWriter) bool {
	if a.Calendar == nil {
		a.fail(w, fmt.Errorf("airtable: %w", domain.ErrNotConfigured))
		return false
	}
	return true
}
