package assess

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kiranjd/lumiere-studio/internal/infra"
)

// VisionChat is the contract the assessor needs from a chat provider: one
// image, one instruction, one text reply.
type VisionChat interface {
	ChatWithImage(ctx context.Context, model string, imageData []byte, mime, prompt string) (string, error)
}

// Assessment is a structured quality review of one generated image. All
// scores live on a 1-10 scale.
type Assessment struct {
	Realism        int    `json:"realism"`
	Consistency    int    `json:"consistency"`
	Aesthetics     int    `json:"aesthetics"`
	PromptFidelity int    `json:"promptFidelity"`
	Notes          string `json:"notes"`
}

// Overall averages the four scores, rounding half up.
func (a Assessment) Overall() int {
	return (a.Realism + a.Consistency + a.Aesthetics + a.PromptFidelity + 2) / 4
}

// Assessor asks a vision model to review images against the character.
type Assessor struct {
	chat   VisionChat
	model  string
	logger *infra.Logger
}

// NewAssessor builds an assessor over a vision chat provider. The model is
// a canonical OpenRouter model id.
func NewAssessor(chat VisionChat, model string, logger *infra.Logger) *Assessor {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Assessor{chat: chat, model: model, logger: logger}
}

const assessInstruction = `You are reviewing an AI-generated image of a lifestyle influencer character.

Rate the image on these criteria, each from 1 (unusable) to 10 (excellent):
- realism: does it look like a real photograph?
- consistency: does the character look like the same person as in her other photos?
- aesthetics: composition, lighting, color grading.
- promptFidelity: how well does it match this prompt: %q

Respond in this exact JSON format:
{"realism": 0, "consistency": 0, "aesthetics": 0, "promptFidelity": 0, "notes": "one or two sentences"}`

// Assess scores one image. Model responses that cannot be parsed degrade to
// a fixed placeholder record instead of an error.
func (a *Assessor) Assess(ctx context.Context, imageData []byte, mime, prompt string) (*Assessment, error) {
	text, err := a.chat.ChatWithImage(ctx, a.model, imageData, mime, fmt.Sprintf(assessInstruction, prompt))
	if err != nil {
		return nil, err
	}
	decoded, err := parseModelPayload[Assessment](text)
	if err != nil {
		a.logger.Warn().Err(err).Str("model", a.model).Msg("assess: unparseable review, using placeholder")
		return parseErrorAssessment(text), nil
	}
	decoded.Realism = clampScore(decoded.Realism)
	decoded.Consistency = clampScore(decoded.Consistency)
	decoded.Aesthetics = clampScore(decoded.Aesthetics)
	decoded.PromptFidelity = clampScore(decoded.PromptFidelity)
	decoded.Notes = strings.TrimSpace(decoded.Notes)
	return &decoded, nil
}

func parseErrorAssessment(raw string) *Assessment {
	head := strings.TrimSpace(raw)
	if len(head) > 200 {
		head = head[:200]
	}
	return &Assessment{
		Realism:        1,
		Consistency:    1,
		Aesthetics:     1,
		PromptFidelity: 1,
		Notes:          "Could not parse model review: " + head,
	}
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
