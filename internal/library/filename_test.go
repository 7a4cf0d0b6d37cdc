package library

import (
	"testing"
	"time"
)

func TestPromptSlug(t *testing.T) {
	cases := map[string]string{
		"Naina at\n\nthe beach":  "naina-at-the-beach",
		"  portrait, 85mm!  ":    "portrait-85mm",
		"":                       "generated",
		"@#$%":                   "generated",
		"a very long prompt that keeps going and going forever": "a-very-long-prompt-that-keeps",
	}
	for in, want := range cases {
		if got := PromptSlug(in); got != want {
			t.Fatalf("PromptSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModelShortName(t *testing.T) {
	cases := map[string]string{
		"google/gemini-3-pro-image-preview": "gemini",
		"black-forest-labs/flux.2-pro":      "flux.2",
		"gpt-image-1":                       "gpt",
		"":                                  "model",
	}
	for in, want := range cases {
		if got := ModelShortName(in); got != want {
			t.Fatalf("ModelShortName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGeneratedFilename(t *testing.T) {
	at := time.Date(2026, 6, 1, 18, 30, 0, 0, time.UTC)
	got := GeneratedFilename(at, "gpt-image-1", "city walk")
	want := "20260601_183000_gpt_city-walk.png"
	if got != want {
		t.Fatalf("GeneratedFilename = %q, want %q", got, want)
	}
}
