package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	provider "github.com/kiranjd/lumiere-studio/internal/providers/image"
)

func TestAspectRatioSize(t *testing.T) {
	cases := map[string]string{
		"1:1":     "1024x1024",
		"16:9":    "1792x1024",
		"9:16":    "1024x1792",
		"4:3":     "1024x1024",
		"3:4":     "1024x1024",
		"garbage": "1024x1024",
	}
	for aspect, want := range cases {
		if got := AspectRatioSize(aspect); got != want {
			t.Fatalf("AspectRatioSize(%q) = %q, want %q", aspect, got, want)
		}
	}
}

func TestGenerateBase64Response(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := NewClient(Options{APIKey: "test", HTTPClient: &http.Client{Transport: transport}})
	transport.setJSONResponse("/v1/images/generations", map[string]any{
		"data": []any{
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})},
		},
	})

	asset, err := client.Generate(context.Background(), provider.GenerateRequest{
		Prompt:      "naina in a hanbok",
		AspectRatio: "9:16",
		Quality:     provider.QualityHigh,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(asset.Data) != 4 || asset.MIME != "image/png" {
		t.Fatalf("asset = %+v", asset)
	}

	var body map[string]any
	if err := json.Unmarshal(transport.lastBody, &body); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if body["model"] != "gpt-image-1" {
		t.Fatalf("model = %v", body["model"])
	}
	if body["size"] != "1024x1792" {
		t.Fatalf("size = %v, want 1024x1792", body["size"])
	}
	if body["quality"] != "hd" {
		t.Fatalf("quality = %v, want hd", body["quality"])
	}
	if body["response_format"] != "b64_json" {
		t.Fatalf("response_format = %v", body["response_format"])
	}
	if body["n"] != float64(1) {
		t.Fatalf("n = %v", body["n"])
	}
}

func TestGenerateWithRefsUsesEditsEndpoint(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	fetcher := func(_ context.Context, ref string) ([]byte, string, error) {
		if ref == "specific/02-bad.png" {
			return nil, "", errors.New("not found")
		}
		return []byte{1, 2, 3}, "image/png", nil
	}
	client := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
		RefFetcher: fetcher,
	})
	transport.setJSONResponse("/v1/images/edits", map[string]any{
		"data": []any{
			map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte{7})},
		},
	})

	asset, err := client.Generate(context.Background(), provider.GenerateRequest{
		Prompt: "same pose, new outfit",
		Refs:   []string{"specific/01-happy.png", "specific/02-bad.png"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(asset.Data) != 1 {
		t.Fatalf("asset data len = %d", len(asset.Data))
	}

	mediaType, params, err := mime.ParseMediaType(transport.lastContentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q (%v)", transport.lastContentType, err)
	}
	reader := multipart.NewReader(bytes.NewReader(transport.lastBody), params["boundary"])
	fields := map[string]string{}
	images := 0
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read multipart: %v", err)
		}
		data, _ := io.ReadAll(part)
		if part.FormName() == "image[]" {
			images++
			continue
		}
		fields[part.FormName()] = string(data)
	}
	if images != 1 {
		t.Fatalf("attached images = %d, want 1 (unfetchable ref skipped)", images)
	}
	if fields["prompt"] != "same pose, new outfit" {
		t.Fatalf("prompt field = %q", fields["prompt"])
	}
	if fields["size"] != "1024x1024" {
		t.Fatalf("size field = %q", fields["size"])
	}
}

func TestGenerateAPIError(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := NewClient(Options{APIKey: "test", HTTPClient: &http.Client{Transport: transport}})
	transport.responses["/v1/images/generations"] = responseStub{
		status: http.StatusBadRequest,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   []byte(`{"error":{"message":"content policy violation","type":"invalid_request_error"}}`),
	}

	_, err := client.Generate(context.Background(), provider.GenerateRequest{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	client := NewClient(Options{})
	_, err := client.Generate(context.Background(), provider.GenerateRequest{Prompt: "p"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

type captureTransport struct {
	responses       map[string]responseStub
	lastBody        []byte
	lastContentType string
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
		c.lastContentType = req.Header.Get("Content-Type")
		if stub, ok := c.responses[req.URL.Path]; ok {
			return stub.toResponse(), nil
		}
	}
	if req.Method == http.MethodGet {
		if stub, ok := c.responses[req.URL.String()]; ok {
			return stub.toResponse(), nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
