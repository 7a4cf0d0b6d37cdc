// Package openai implements the OpenAI images client used for GPT Image
// generation and reference-guided edits.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranjd/lumiere-studio/internal/infra"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("openai: api key is required")

const defaultModel = "gpt-image-1"

// Options configures the OpenAI images client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	RefFetcher     RefFetcher
}

// RefFetcher loads a reference image's bytes for the edits endpoint.
// The queue hands providers library-relative paths or absolute URLs; the
// fetcher hides which one it is.
type RefFetcher func(ctx context.Context, ref string) ([]byte, string, error)

// Client performs HTTP calls to the OpenAI images API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
	fetchRef   RefFetcher
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
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
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
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
		model:      model,
		httpClient: httpClient,
		logger:     logger,
		fetchRef:   opts.RefFetcher,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// AspectRatioSize maps a supported aspect ratio onto an OpenAI size string.
// Ratios the API does not offer fall back to square.
func AspectRatioSize(aspect string) string {
	switch provider.NormalizeAspectRatio(aspect) {
	case "16:9":
		return "1792x1024"
	case "9:16":
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

// Generate fulfils the image provider contract. Requests without references
// use images/generations; requests with references use images/edits.
func (c *Client) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.Asset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("openai: prompt is required")
	}
	if len(req.Refs) > 0 && c.fetchRef != nil {
		return c.edit(ctx, prompt, req)
	}
	return c.generate(ctx, prompt, req)
}

func (c *Client) generate(ctx context.Context, prompt string, req provider.GenerateRequest) (*provider.Asset, error) {
	payload := generationRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           AspectRatioSize(req.AspectRatio),
		Quality:        req.Quality.OpenAIQuality(),
		ResponseFormat: "b64_json",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(httpReq, req.RequestID)
}

// edit posts a multipart images/edits request with every fetchable reference
// attached. References that fail to load are logged and skipped.
func (c *Client) edit(ctx context.Context, prompt string, req provider.GenerateRequest) (*provider.Asset, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("openai: write form: %w", err)
	}
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("openai: write form: %w", err)
	}
	if err := form.WriteField("size", AspectRatioSize(req.AspectRatio)); err != nil {
		return nil, fmt.Errorf("openai: write form: %w", err)
	}

	attached := 0
	for i, ref := range req.Refs {
		data, _, err := c.fetchRef(ctx, ref)
		if err != nil {
			c.logger.Warn().Err(err).Str("ref", ref).Msg("openai: skipping reference image")
			continue
		}
		part, err := form.CreateFormFile("image[]", fmt.Sprintf("reference-%d.png", i))
		if err != nil {
			return nil, fmt.Errorf("openai: write form: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("openai: write form: %w", err)
		}
		attached++
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("openai: close form: %w", err)
	}
	if attached == 0 {
		// Nothing usable to edit against, fall back to plain generation.
		return c.generate(ctx, prompt, req)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(httpReq, req.RequestID)
}

func (c *Client) do(httpReq *http.Request, requestID string) (*provider.Asset, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	var decoded imageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, fmt.Errorf("openai: %s", decoded.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(decoded.Data) == 0 {
		return nil, errors.New("openai: no image in response")
	}

	item := decoded.Data[0]
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode image payload: %w", err)
		}
		c.logger.Debug().Str("model", c.model).Str("request_id", requestID).Msg("openai: generated image asset")
		return &provider.Asset{Data: data, MIME: "image/png"}, nil
	}
	if item.URL != "" {
		data, mime, err := c.download(httpReq.Context(), item.URL)
		if err != nil {
			return nil, err
		}
		return &provider.Asset{URL: item.URL, Data: data, MIME: mime}, nil
	}
	return nil, errors.New("openai: no image in response")
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("openai: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("openai: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("openai: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("openai: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

var _ provider.Generator = (*Client)(nil)
