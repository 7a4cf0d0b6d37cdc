// Package httpapi wires the chi router for the studio API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kiranjd/lumiere-studio/internal/http/handlers"
	"github.com/kiranjd/lumiere-studio/internal/infra"
	"github.com/kiranjd/lumiere-studio/internal/middleware"
)

// Options tunes the router's ambient middleware.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
	LibraryPath     string
}

func NewRouter(app *handlers.App, logger infra.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/api/health", app.Health)

	r.Route("/api/images", func(r chi.Router) {
		r.Get("/generated", app.ImagesGenerated)
		r.Get("/library", app.ImagesLibrary)
		r.Get("/archive", app.ImagesArchive)
		r.Post("/save", app.ImagesSave)
		r.Post("/save-grid", app.ImagesSaveGrid)
		r.Post("/tag", app.ImagesTag)
		r.Post("/edit", app.ImagesEdit)
		r.Post("/split-grid", app.ImagesSplitGrid)
		r.Post("/restore/{name}", app.ImagesRestore)
		r.Delete("/archive/{name}", app.ImagesDeleteArchived)
		r.Delete("/*", app.ImagesDelete)
	})

	r.Route("/api/batches", func(r chi.Router) {
		r.Get("/", app.BatchesList)
		r.Put("/", app.BatchesPut)
		r.Post("/sync", app.BatchesSync)
		r.Get("/{id}/download", app.BatchesDownload)
	})

	r.Get("/api/incognito", app.IncognitoGet)
	r.Put("/api/incognito", app.IncognitoPut)

	r.Route("/api/generate", func(r chi.Router) {
		r.Post("/", app.Generate)
		r.Get("/queue", app.GenerateQueue)
		r.Get("/{id}", app.GenerateStatus)
	})

	r.Post("/api/assess", app.Assess)

	r.Route("/api/social", func(r chi.Router) {
		r.Post("/generate-caption", app.GenerateCaption)
		r.Post("/send-to-airtable", app.SendToAirtable)
		r.Get("/pending-posts", app.PendingPosts)
		r.Post("/mark-posted/{id}", app.MarkPosted)
		r.Patch("/posts/{id}", app.UpdatePost)
		r.Delete("/posts/{id}", app.DeletePost)
		r.Get("/pipeline-status", app.PipelineStatus)
		r.Post("/trigger-generation", app.TriggerGeneration)
	})

	if opts.LibraryPath != "" {
		fs := http.StripPrefix("/library/", http.FileServer(http.Dir(opts.LibraryPath)))
		r.Get("/library/*", fs.ServeHTTP)
	}

	return r
}
