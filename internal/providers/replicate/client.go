// Package replicate implements the Replicate predictions client used for the
// Z Image Turbo model.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranjd/lumiere-studio/internal/infra"
	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

const defaultModel = "prunaai/z-image-turbo"

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Replicate predictions API. Predictions
// run synchronously via the Prefer: wait header.
type Client struct {
	apiToken   string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type predictionInput struct {
	Prompt            string `json:"prompt"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	OutputFormat      string `json:"output_format"`
	OutputQuality     int    `json:"output_quality"`
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionResponse struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	Detail string          `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
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
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// AspectRatioDims maps a supported aspect ratio onto pixel dimensions.
func AspectRatioDims(aspect string) (width, height int) {
	switch provider.NormalizeAspectRatio(aspect) {
	case "16:9":
		return 1024, 576
	case "9:16":
		return 576, 1024
	case "4:3":
		return 1024, 768
	case "3:4":
		return 768, 1024
	default:
		return 768, 768
	}
}

// Generate fulfils the image provider contract: it creates a synchronous
// prediction and downloads the first output.
func (c *Client) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.Asset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("replicate: prompt is required")
	}

	width, height := AspectRatioDims(req.AspectRatio)
	payload := predictionRequest{Input: predictionInput{
		Prompt:            prompt,
		Width:             width,
		Height:            height,
		NumInferenceSteps: req.Quality.ReplicateSteps(),
		OutputFormat:      "jpg",
		OutputQuality:     95,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}

	endpoint := c.baseURL + "/models/" + c.model + "/predictions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}
	var decoded predictionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if msg := predictionError(decoded); msg != "" {
			return nil, fmt.Errorf("replicate: %s", msg)
		}
		return nil, fmt.Errorf("replicate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if msg := predictionError(decoded); msg != "" {
		return nil, fmt.Errorf("replicate: %s", msg)
	}

	outputURL := firstOutputURL(decoded.Output)
	if outputURL == "" {
		return nil, errors.New("replicate: no output in prediction")
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("status", decoded.Status).
		Str("request_id", req.RequestID).
		Msg("replicate: prediction complete")

	data, mime, err := c.download(ctx, outputURL)
	if err != nil {
		return nil, err
	}
	return &provider.Asset{URL: outputURL, Data: data, MIME: mime, Width: width, Height: height}, nil
}

func (c *Client) download(ctx context.Context, outputURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("replicate: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("replicate: download output: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("replicate: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("replicate: read output: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

// firstOutputURL handles both output shapes the API returns, a single URL
// string or an array of URLs.
func firstOutputURL(output json.RawMessage) string {
	if len(output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(output, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(output, &many); err == nil {
		for _, u := range many {
			if trimmed := strings.TrimSpace(u); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func predictionError(resp predictionResponse) string {
	if resp.Error != nil {
		if msg := strings.TrimSpace(fmt.Sprint(resp.Error)); msg != "" && msg != "<nil>" {
			return msg
		}
	}
	return strings.TrimSpace(resp.Detail)
}

var _ provider.Generator = (*Client)(nil)
