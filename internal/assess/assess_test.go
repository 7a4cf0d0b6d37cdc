package assess

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubChat struct {
	reply string
	err   error

	lastModel  string
	lastPrompt string
}

func (s *stubChat) ChatWithImage(_ context.Context, model string, _ []byte, _ string, prompt string) (string, error) {
	s.lastModel = model
	s.lastPrompt = prompt
	return s.reply, s.err
}

func TestExtractJSONFragment(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", `Sure! Here you go: {"a":1}`, `{"a":1}`},
		{"trailing prose", `{"a":1} hope that helps`, `{"a":1}`},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		if got := extractJSONFragment(tc.in); got != tc.want {
			t.Fatalf("%s: extractJSONFragment = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestAssessClampsScores(t *testing.T) {
	chat := &stubChat{reply: `{"realism": 14, "consistency": 0, "aesthetics": 7, "promptFidelity": -3, "notes": " solid "}`}
	assessor := NewAssessor(chat, "google/gemini-2.5-flash", nil)

	got, err := assessor.Assess(context.Background(), []byte{1}, "image/png", "rooftop cafe")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Realism != 10 || got.Consistency != 1 || got.Aesthetics != 7 || got.PromptFidelity != 1 {
		t.Fatalf("scores = %+v", got)
	}
	if got.Notes != "solid" {
		t.Fatalf("notes = %q", got.Notes)
	}
	if chat.lastModel != "google/gemini-2.5-flash" {
		t.Fatalf("model = %q", chat.lastModel)
	}
	if !strings.Contains(chat.lastPrompt, `"rooftop cafe"`) {
		t.Fatalf("prompt does not embed the generation prompt: %s", chat.lastPrompt)
	}
}

func TestAssessParseFailureFallsBack(t *testing.T) {
	chat := &stubChat{reply: "I cannot rate this image, sorry."}
	assessor := NewAssessor(chat, "m", nil)

	got, err := assessor.Assess(context.Background(), []byte{1}, "image/png", "p")
	if err != nil {
		t.Fatalf("parse failure must not surface as an error: %v", err)
	}
	if got.Realism != 1 || got.Consistency != 1 || got.Aesthetics != 1 || got.PromptFidelity != 1 {
		t.Fatalf("placeholder scores = %+v", got)
	}
	if !strings.Contains(got.Notes, "I cannot rate this image") {
		t.Fatalf("notes should carry the raw text head: %q", got.Notes)
	}
}

func TestAssessProviderError(t *testing.T) {
	chat := &stubChat{err: errors.New("rate limited")}
	assessor := NewAssessor(chat, "m", nil)
	if _, err := assessor.Assess(context.Background(), []byte{1}, "image/png", "p"); err == nil {
		t.Fatalf("provider errors must propagate")
	}
}

func TestOverallRounds(t *testing.T) {
	a := Assessment{Realism: 7, Consistency: 8, Aesthetics: 8, PromptFidelity: 8}
	if got := a.Overall(); got != 8 {
		t.Fatalf("Overall = %d, want 8", got)
	}
}

func TestCaptionerParsesStructuredReply(t *testing.T) {
	chat := &stubChat{reply: "```json\n{\"caption\": \"Golden hour on the rooftop.\", \"hashtags\": \"#sunset #cafe\"}\n```"}
	captioner := NewCaptioner(chat, "m", nil)

	got, err := captioner.Generate(context.Background(), []byte{1}, "image/png", []string{"Instagram", "X"}, "shot at dusk")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Caption != "Golden hour on the rooftop." || got.Hashtags != "#sunset #cafe" {
		t.Fatalf("caption = %+v", got)
	}
	if !strings.Contains(chat.lastPrompt, "Instagram, X") {
		t.Fatalf("platforms missing from prompt")
	}
	if !strings.Contains(chat.lastPrompt, "Additional context: shot at dusk") {
		t.Fatalf("context missing from prompt")
	}
}

func TestCaptionerRawTextFallback(t *testing.T) {
	chat := &stubChat{reply: "  Just me enjoying the evening breeze.  "}
	captioner := NewCaptioner(chat, "m", nil)

	got, err := captioner.Generate(context.Background(), []byte{1}, "image/png", nil, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Caption != "Just me enjoying the evening breeze." {
		t.Fatalf("caption = %q", got.Caption)
	}
	if got.Hashtags != "" {
		t.Fatalf("hashtags = %q, want empty on fallback", got.Hashtags)
	}
}

func TestStaticCaption(t *testing.T) {
	got := StaticCaption("happy", []string{"Instagram"})
	if !strings.HasPrefix(got.Caption, "Happy") {
		t.Fatalf("caption = %q", got.Caption)
	}
	if !strings.Contains(got.Hashtags, "#instagram") {
		t.Fatalf("hashtags = %q", got.Hashtags)
	}
}
