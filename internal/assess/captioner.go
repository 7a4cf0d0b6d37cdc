package assess

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kiranjd/lumiere-studio/internal/infra"
)

// Caption is a platform-ready social media post for one image.
type Caption struct {
	Caption  string `json:"caption"`
	Hashtags string `json:"hashtags"`
}

// Captioner writes persona-voiced social captions through a vision model.
type Captioner struct {
	chat   VisionChat
	model  string
	logger *infra.Logger
}

// NewCaptioner builds a captioner over a vision chat provider.
func NewCaptioner(chat VisionChat, model string, logger *infra.Logger) *Captioner {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Captioner{chat: chat, model: model, logger: logger}
}

const captionInstruction = `You are a social media content creator for an AI-generated lifestyle influencer named Naina.

Analyze this image and generate an engaging social media post for: %s

Guidelines:
- Write in first person as Naina (she/her)
- Be authentic, warm, and relatable
- Keep the caption concise but engaging (2-4 sentences)
- Match the tone to the image mood
- For Instagram: can be slightly longer, storytelling works
- For X/Twitter: keep it punchy, under 280 chars ideally
- For LinkedIn: more professional but still personable
%s
Respond in this exact JSON format:
{
  "caption": "Your engaging caption here",
  "hashtags": "#hashtag1 #hashtag2 #hashtag3 #hashtag4 #hashtag5"
}

Generate 5-8 relevant hashtags. Include a mix of popular and niche tags.`

// Generate writes a caption for one image. Unparseable model output degrades
// to the raw text as the caption with empty hashtags.
func (c *Captioner) Generate(ctx context.Context, imageData []byte, mime string, platforms []string, note string) (*Caption, error) {
	if len(platforms) == 0 {
		platforms = []string{"Instagram"}
	}
	extra := ""
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		extra = "\nAdditional context: " + trimmed + "\n"
	}
	prompt := fmt.Sprintf(captionInstruction, strings.Join(platforms, ", "), extra)

	text, err := c.chat.ChatWithImage(ctx, c.model, imageData, mime, prompt)
	if err != nil {
		return nil, err
	}
	decoded, err := parseModelPayload[Caption](text)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", c.model).Msg("assess: unparseable caption, using raw text")
		return &Caption{Caption: strings.TrimSpace(text)}, nil
	}
	decoded.Caption = strings.TrimSpace(decoded.Caption)
	decoded.Hashtags = strings.TrimSpace(decoded.Hashtags)
	if decoded.Caption == "" {
		return &Caption{Caption: strings.TrimSpace(text)}, nil
	}
	return &decoded, nil
}

// StaticCaption builds a deterministic placeholder post from the image's
// expression name, used when no vision model is configured.
func StaticCaption(expression string, platforms []string) *Caption {
	c := cases.Title(language.Und)
	mood := strings.TrimSpace(expression)
	if mood == "" {
		mood = "today"
	}
	caption := fmt.Sprintf("%s vibes. More soon!", c.String(mood))
	hashtags := "#ai #lifestyle #nainadaily"
	for _, platform := range platforms {
		tag := strings.ToLower(strings.TrimSpace(platform))
		if tag != "" {
			hashtags += " #" + tag
		}
	}
	return &Caption{Caption: caption, Hashtags: hashtags}
}
