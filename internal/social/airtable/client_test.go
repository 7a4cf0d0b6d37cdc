package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

func newTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		PAT:        "pat-test",
		BaseID:     "appBase",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Options{PAT: "pat"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("missing base id: %v", err)
	}
	if _, err := NewClient(Options{BaseID: "app"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("missing pat: %v", err)
	}
}

func TestListByStatusFormulaAndMapping(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("/v0/appBase/Content%20Calendar", map[string]any{
		"records": []any{
			map[string]any{
				"id":          "rec1",
				"createdTime": "2026-08-01T10:00:00.000Z",
				"fields": map[string]any{
					"Title":         "Morning post",
					"Prompt":        "naina with coffee",
					"Status":        "Idea",
					"Platforms":     []any{"Instagram", "X"},
					"ScheduledDate": "2026-09-01T08:00:00Z",
					"ReferenceImages": []any{
						map[string]any{"url": "https://dl.airtable.com/ref1.png"},
						map[string]any{"filename": "no-url.png"},
					},
				},
			},
			map[string]any{
				"id":     "rec2",
				"fields": map[string]any{"Title": "Bare"},
			},
		},
	})

	records, err := client.ListByStatus(context.Background(), domain.PostStatusIdea)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}

	if got := transport.lastQuery.Get("filterByFormula"); got != "{Status} = 'Idea'" {
		t.Fatalf("formula = %q", got)
	}
	if transport.lastAuth != "Bearer pat-test" {
		t.Fatalf("auth header = %q", transport.lastAuth)
	}

	first := records[0]
	if first.ID != "rec1" || first.Prompt != "naina with coffee" {
		t.Fatalf("first = %+v", first)
	}
	if len(first.Platforms) != 2 {
		t.Fatalf("platforms = %v", first.Platforms)
	}
	if first.ScheduledDate == nil || first.ScheduledDate.Hour() != 8 {
		t.Fatalf("scheduled date = %v", first.ScheduledDate)
	}
	if len(first.ReferenceImages) != 1 || first.ReferenceImages[0] != "https://dl.airtable.com/ref1.png" {
		t.Fatalf("reference images = %v", first.ReferenceImages)
	}

	// Empty fields fall back to usable defaults.
	second := records[1]
	if second.Status != domain.PostStatusIdea || second.Model != "Gemini 3" || second.Quality != "medium" {
		t.Fatalf("defaults = %+v", second)
	}
}

func TestListByStatusMultipleBuildsORFormula(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("/v0/appBase/Content%20Calendar", map[string]any{"records": []any{}})

	_, err := client.ListByStatus(context.Background(),
		domain.PostStatusReview, domain.PostStatusApproved, domain.PostStatusScheduled, domain.PostStatusPublished)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	want := "OR({Status} = 'Review', {Status} = 'Approved', {Status} = 'Scheduled', {Status} = 'Published')"
	if got := transport.lastQuery.Get("filterByFormula"); got != want {
		t.Fatalf("formula = %q, want %q", got, want)
	}
}

func TestSetImageMovesToReview(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("/v0/appBase/Content%20Calendar/rec1", map[string]any{"id": "rec1"})

	err := client.SetImage(context.Background(), "rec1", "https://studio.example.com/library/to-be-processed/x.png", "to-be-processed/x.png")
	if err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if transport.lastMethod != http.MethodPatch {
		t.Fatalf("method = %q", transport.lastMethod)
	}
	var body map[string]any
	if err := json.Unmarshal(transport.lastBody, &body); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	fields := body["fields"].(map[string]any)
	if fields["Status"] != "Review" {
		t.Fatalf("status = %v", fields["Status"])
	}
	if fields["LocalImagePath"] != "to-be-processed/x.png" {
		t.Fatalf("local path = %v", fields["LocalImagePath"])
	}
}

func TestSetErrorMarksFailed(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("/v0/appBase/Content%20Calendar/rec1", map[string]any{"id": "rec1"})

	if err := client.SetError(context.Background(), "rec1", "provider timeout"); err != nil {
		t.Fatalf("SetError: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(transport.lastBody, &body); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	fields := body["fields"].(map[string]any)
	if fields["Status"] != "Failed" || fields["Error"] != "provider timeout" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestCreateOmitsEmptyFields(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.setJSONResponse("/v0/appBase/Content%20Calendar", map[string]any{"id": "recNew"})

	id, err := client.Create(context.Background(), domain.ContentRecord{
		Title:     "Post",
		Status:    domain.PostStatusReview,
		Platforms: []string{"Instagram"},
		ImageURL:  "https://studio.example.com/img.png",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "recNew" {
		t.Fatalf("id = %q", id)
	}
	var body map[string]any
	if err := json.Unmarshal(transport.lastBody, &body); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	fields := body["fields"].(map[string]any)
	if _, ok := fields["Caption"]; ok {
		t.Fatalf("empty caption should be omitted")
	}
	if fields["ImageURL"] != "https://studio.example.com/img.png" {
		t.Fatalf("image url = %v", fields["ImageURL"])
	}
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.responses["/v0/appBase/Content%20Calendar/rec1"] = responseStub{
		status: http.StatusUnprocessableEntity,
		body:   []byte(`{"error":{"type":"INVALID_VALUE_FOR_COLUMN","message":"Unknown status"}}`),
	}

	err := client.SetError(context.Background(), "rec1", "x")
	if err == nil || !strings.Contains(err.Error(), "Unknown status") {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteMissingRecord(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)
	transport.responses["/v0/appBase/Content%20Calendar/gone"] = responseStub{
		status: http.StatusNotFound,
		body:   []byte(`{"error":{"type":"NOT_FOUND"}}`),
	}

	if err := client.Delete(context.Background(), "gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

type captureTransport struct {
	responses  map[string]responseStub
	lastBody   []byte
	lastMethod string
	lastAuth   string
	lastQuery  url.Values
}

type responseStub struct {
	status int
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastMethod = req.Method
	c.lastAuth = req.Header.Get("Authorization")
	c.lastQuery = req.URL.Query()
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.EscapedPath()]; ok {
		status := stub.status
		if status == 0 {
			status = http.StatusOK
		}
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(bytes.NewReader(stub.body)),
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"error":{"type":"NOT_FOUND"}}`)),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{status: http.StatusOK, body: body}
}
