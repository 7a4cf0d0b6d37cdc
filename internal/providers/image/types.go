// Package image defines the normalized contract shared by all generation
// providers and the model registry that routes requests to them.
package image

import (
	"context"
	"strings"
)

// GenerateRequest describes a normalized request passed to any provider.
type GenerateRequest struct {
	Prompt      string
	Model       string
	Refs        []string
	AspectRatio string
	Quality     Quality
	RequestID   string
}

// Asset represents one generated image.
type Asset struct {
	URL    string
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

// Supported aspect ratios. Unknown values normalize to square.
const DefaultAspectRatio = "1:1"

var aspectRatios = map[string]struct{}{
	"1:1":  {},
	"16:9": {},
	"9:16": {},
	"4:3":  {},
	"3:4":  {},
}

// NormalizeAspectRatio sanitizes free-form user input into a supported ratio.
func NormalizeAspectRatio(aspect string) string {
	aspect = strings.TrimSpace(aspect)
	if _, ok := aspectRatios[aspect]; ok {
		return aspect
	}
	return DefaultAspectRatio
}
