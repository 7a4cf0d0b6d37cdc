package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

type sendToAirtableRequest struct {
	Title         string   `json:"title"`
	File          string   `json:"file"`
	ImageURL      string   `json:"imageUrl"`
	Platforms     []string `json:"platforms"`
	Caption       string   `json:"caption"`
	Hashtags      string   `json:"hashtags"`
	ScheduledDate string   `json:"scheduledDate"`
}

// SendToAirtable creates a Review record for an already-generated image.
func (a *App) SendToAirtable(w http.ResponseWriter, r *http.Request) {
	if !a.requireCalendar(w) {
		return
	}
	var req sendToAirtableRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.File == "" && req.ImageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "file or imageUrl required")
		return
	}
	imageURL := req.ImageURL
	if imageURL == "" && a.Pipeline != nil {
		imageURL = a.Pipeline.PublicURL(req.File)
	}
	record := domain.ContentRecord{
		Title:          req.Title,
		Status:         domain.PostStatusReview,
		Platforms:      req.Platforms,
		Caption:        req.Caption,
		Hashtags:       req.Hashtags,
		ImageURL:       imageURL,
		LocalImagePath: req.File,
	}
	if req.ScheduledDate != "" {
		if parsed, err := time.Parse(time.RFC3339, req.ScheduledDate); err == nil {
			record.ScheduledDate = &parsed
		}
	}
	id, err := a.Calendar.Create(r.Context(), record)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"id": id})
}

// PendingPosts lists every record on the publishing dashboard.
func (a *App) PendingPosts(w http.ResponseWriter, r *http.Request) {
	if !a.requireCalendar(w) {
		return
	}
	records, err := a.Calendar.ListByStatus(r.Context(),
		domain.PostStatusReview,
		domain.PostStatusApproved,
		domain.PostStatusScheduled,
		domain.PostStatusPublished,
	)
	if err != nil {
		a.fail(w, err)
		return
	}
	posts := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		posts = append(posts, map[string]any{
			"id":            rec.ID,
			"title":         rec.Title,
			"imageUrl":      rec.ImageURL,
			"localPath":     rec.LocalImagePath,
			"caption":       rec.Caption,
			"hashtags":      rec.Hashtags,
			"platforms":     rec.Platforms,
			"scheduledDate": rec.ScheduledDate,
			"status":        rec.Status,
			"createdAt":     rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"posts": posts})
}

func (a *App) MarkPosted(w http.ResponseWriter, r *http.Request) {
	if !a.requireCalendar(w) {
		return
	}
	id := chi.URLParam(r, "id")
	extra := map[string]any{"PublishedAt": time.Now().Format(time.RFC3339)}
	if err := a.Calendar.UpdateStatus(r.Context(), id, domain.PostStatusPublished, extra); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "published"})
}

type updatePostRequest struct {
	Caption       *string  `json:"caption"`
	Hashtags      *string  `json:"hashtags"`
	Platforms     []string `json:"platforms"`
	ScheduledDate *string  `json:"scheduledDate"`
	Status        *string  `json:"status"`
}

func (a *App) UpdatePost(w http.ResponseWriter, r *http.Request) {
	if !a.requireCalendar(w) {
		return
	}
	id := chi.URLParam(r, "id")
	var req updatePostRequest
	if !a.decode(w, r, &req) {
		return
	}
	scheduled := req.ScheduledDate
	if scheduled != nil {
		if _, err := time.Parse(time.RFC3339, *scheduled); err != nil {
			scheduled = nil
		}
	}
	err := a.Calendar.UpdateContent(r.Context(), id, req.Caption, req.Hashtags, req.Platforms, scheduled, req.Status)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) DeletePost(w http.ResponseWriter, r *http.Request) {
	if !a.requireCalendar(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Calendar.Delete(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) PipelineStatus(w http.ResponseWriter, r *http.Request) {
	if a.Pipeline == nil {
		a.fail(w, fmt.Errorf("pipeline: %w", domain.ErrNotConfigured))
		return
	}
	status, err := a.Pipeline.Status(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, status)
}

// TriggerGeneration starts a pipeline pass in the background and returns
// immediately.
func (a *App) TriggerGeneration(w http.ResponseWriter, r *http.Request) {
	if a.Pipeline == nil {
		a.fail(w, fmt.Errorf("pipeline: %w", domain.ErrNotConfigured))
		return
	}
	if a.Pipeline.Running() {
		a.json(w, http.StatusConflict, map[string]string{"status": "already running"})
		return
	}
	go a.Pipeline.ProcessPending(context.WithoutCancel(r.Context()))
	a.json(w, http.StatusAccepted, map[string]string{"status": "started"})
}
