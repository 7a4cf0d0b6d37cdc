// Package openrouter implements the OpenRouter chat-completions client used
// for multimodal image generation (Gemini, Flux) and vision chat.
package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranjd/lumiere-studio/internal/infra"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("openrouter: api key is required")

// Options configures the OpenRouter client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the OpenRouter chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type imageConfig struct {
	AspectRatio string `json:"aspect_ratio"`
	ImageSize   string `json:"image_size,omitempty"`
}

type fluxProviderConfig struct {
	Flux struct {
		NumInferenceSteps int `json:"num_inference_steps"`
	} `json:"flux"`
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatMessage       `json:"messages"`
	Modalities  []string            `json:"modalities,omitempty"`
	ImageConfig *imageConfig        `json:"image_config,omitempty"`
	Provider    *fluxProviderConfig `json:"provider,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []struct {
				URL      string `json:"url"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 180 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Generate fulfils the image provider contract: it posts a multimodal
// chat completion and returns the first generated image.
func (c *Client) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.Asset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("openrouter: prompt is required")
	}

	aspect := provider.NormalizeAspectRatio(req.AspectRatio)
	payload := completionRequest{
		Model:       req.Model,
		Modalities:  []string{"text", "image"},
		ImageConfig: &imageConfig{AspectRatio: aspect},
	}

	model := strings.ToLower(req.Model)
	switch {
	case strings.Contains(model, "gemini"):
		payload.ImageConfig.ImageSize = req.Quality.GeminiImageSize()
	case strings.Contains(model, "flux"):
		cfg := &fluxProviderConfig{}
		cfg.Flux.NumInferenceSteps = req.Quality.FluxSteps()
		payload.Provider = cfg
	}

	if len(req.Refs) == 0 {
		payload.Messages = []chatMessage{{Role: "user", Content: prompt}}
	} else {
		parts := c.referenceParts(ctx, req.Refs)
		parts = append(parts, contentPart{Type: "text", Text: "Using the reference images: " + prompt})
		payload.Messages = []chatMessage{{Role: "user", Content: parts}}
	}

	decoded, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	imageURL := firstGeneratedImage(decoded)
	if imageURL == "" {
		return nil, errors.New("openrouter: no image in response")
	}
	c.logger.Debug().
		Str("model", req.Model).
		Str("request_id", req.RequestID).
		Msg("openrouter: generated image asset")
	return c.resolveAsset(ctx, imageURL)
}

// ChatWithImage sends a vision chat request (one image plus a text prompt)
// and returns the assistant's text reply. Used for captioning and scoring.
func (c *Client) ChatWithImage(ctx context.Context, model string, imageData []byte, mime, prompt string) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if len(imageData) == 0 {
		return "", errors.New("openrouter: image data is required")
	}
	if mime == "" {
		mime = "image/png"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(imageData)
	payload := completionRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageRef{URL: dataURL}},
				{Type: "text", Text: prompt},
			},
		}},
	}
	decoded, err := c.complete(ctx, payload)
	if err != nil {
		return "", err
	}
	text := firstTextContent(decoded)
	if text == "" {
		return "", errors.New("openrouter: empty chat response")
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, payload completionRequest) (*completionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: encode request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var decoded completionResponse
		if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error != nil && decoded.Error.Message != "" {
			return nil, fmt.Errorf("openrouter: %s", decoded.Error.Message)
		}
		return nil, fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded completionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("openrouter: decode response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, fmt.Errorf("openrouter: %s", decoded.Error.Message)
	}
	return &decoded, nil
}

// referenceParts fetches each reference image and inlines it as a base64
// data URL. Failed fetches are logged and skipped.
func (c *Client) referenceParts(ctx context.Context, refs []string) []contentPart {
	parts := make([]contentPart, 0, len(refs))
	for _, ref := range refs {
		data, mime, err := c.fetch(ctx, ref)
		if err != nil {
			c.logger.Warn().Err(err).Str("ref", ref).Msg("openrouter: skipping reference image")
			continue
		}
		dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageRef{URL: dataURL}})
	}
	return parts
}

// resolveAsset turns a generated image reference (data URL or remote URL)
// into raw bytes.
func (c *Client) resolveAsset(ctx context.Context, imageURL string) (*provider.Asset, error) {
	if strings.HasPrefix(imageURL, "data:") {
		data, mime, err := decodeDataURL(imageURL)
		if err != nil {
			return nil, err
		}
		return &provider.Asset{Data: data, MIME: mime}, nil
	}
	data, mime, err := c.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return &provider.Asset{URL: imageURL, Data: data, MIME: mime}, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("openrouter: invalid image url: %s", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("openrouter: build fetch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("openrouter: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("openrouter: fetch status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("openrouter: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

func decodeDataURL(dataURL string) ([]byte, string, error) {
	head, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, "", errors.New("openrouter: malformed data url")
	}
	mime := "image/png"
	if meta := strings.TrimPrefix(head, "data:"); meta != "" {
		if m, _, _ := strings.Cut(meta, ";"); m != "" {
			mime = m
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("openrouter: decode image payload: %w", err)
	}
	return data, mime, nil
}

func firstGeneratedImage(resp *completionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	message := resp.Choices[0].Message
	for _, img := range message.Images {
		if u := strings.TrimSpace(img.ImageURL.URL); u != "" {
			return u
		}
		if u := strings.TrimSpace(img.URL); u != "" {
			return u
		}
	}
	// Some models return the image as an inline content part instead.
	var parts []contentPart
	if err := json.Unmarshal(message.Content, &parts); err == nil {
		for _, part := range parts {
			if part.Type == "image_url" && part.ImageURL != nil && part.ImageURL.URL != "" {
				return part.ImageURL.URL
			}
		}
	}
	return ""
}

func firstTextContent(resp *completionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	raw := resp.Choices[0].Message.Content
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		var sb strings.Builder
		for _, part := range parts {
			if part.Type == "text" {
				sb.WriteString(part.Text)
			}
		}
		return strings.TrimSpace(sb.String())
	}
	return ""
}

var _ provider.Generator = (*Client)(nil)
