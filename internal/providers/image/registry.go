package image

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Friendly model names exposed to the UI and their canonical model ids.
var modelAliases = map[string]string{
	"gemini 3":  "google/gemini-3-pro-image-preview",
	"gpt image": "gpt-image-1",
	"flux 2":    "black-forest-labs/flux.2-pro",
	"z image":   "prunaai/z-image-turbo",
}

// ResolveModel maps a friendly model name onto its canonical id; unknown
// names pass through unchanged so raw model ids keep working.
func ResolveModel(name string) string {
	if canonical, ok := modelAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return strings.TrimSpace(name)
}

// Registry routes canonical model ids to the provider that serves them.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{generators: map[string]Generator{}}
}

// Register binds a canonical model id to a provider.
func (r *Registry) Register(modelID string, g Generator) {
	r.generators[strings.ToLower(strings.TrimSpace(modelID))] = g
}

// Lookup resolves a friendly or canonical model name to its provider and
// canonical id.
func (r *Registry) Lookup(model string) (Generator, string, error) {
	canonical := ResolveModel(model)
	if g, ok := r.generators[strings.ToLower(canonical)]; ok {
		return g, canonical, nil
	}
	return nil, canonical, fmt.Errorf("image: unsupported model %q", model)
}

// Generate resolves the request's model and delegates to its provider.
func (r *Registry) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	g, canonical, err := r.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	req.Model = canonical
	return g.Generate(ctx, req)
}

// Models lists every registered canonical model id.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.generators))
	for id := range r.generators {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
