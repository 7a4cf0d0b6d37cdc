// Package airtable implements the content calendar client over the
// Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiranjd/lumiere-studio/internal/domain"
	"github.com/kiranjd/lumiere-studio/internal/infra"
)

// ErrMissingCredentials indicates the client was configured without a
// personal access token or base id.
var ErrMissingCredentials = errors.New("airtable: pat and base id are required")

const defaultTable = "Content Calendar"

// Options configures the Airtable client.
type Options struct {
	PAT            string
	BaseID         string
	Table          string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to one Airtable table holding the content calendar.
type Client struct {
	pat        string
	baseID     string
	table      string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type apiRecord struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type recordList struct {
	Records []apiRecord `json:"records"`
	Offset  string      `json:"offset"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	pat := strings.TrimSpace(opts.PAT)
	baseID := strings.TrimSpace(opts.BaseID)
	if pat == "" || baseID == "" {
		return nil, ErrMissingCredentials
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.airtable.com/v0"
	}
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		table = defaultTable
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
		pat:        pat,
		baseID:     baseID,
		table:      table,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) tableURL() string {
	return c.baseURL + "/" + c.baseID + "/" + url.PathEscape(c.table)
}

// ListByStatus fetches every record whose Status matches one of the given
// values, following pagination offsets.
func (c *Client) ListByStatus(ctx context.Context, statuses ...domain.PostStatus) ([]domain.ContentRecord, error) {
	formula := statusFormula(statuses)
	var out []domain.ContentRecord
	offset := ""
	for {
		query := url.Values{}
		if formula != "" {
			query.Set("filterByFormula", formula)
		}
		if offset != "" {
			query.Set("offset", offset)
		}
		var page recordList
		if err := c.do(ctx, http.MethodGet, c.tableURL()+"?"+query.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			out = append(out, toContentRecord(rec))
		}
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

// ListAll fetches the whole table.
func (c *Client) ListAll(ctx context.Context) ([]domain.ContentRecord, error) {
	return c.ListByStatus(ctx)
}

// Create adds a record and returns its id.
func (c *Client) Create(ctx context.Context, record domain.ContentRecord) (string, error) {
	fields := map[string]any{
		"Title":     record.Title,
		"Prompt":    record.Prompt,
		"Status":    string(record.Status),
		"Platforms": record.Platforms,
	}
	setIfPresent(fields, "Caption", record.Caption)
	setIfPresent(fields, "Hashtags", record.Hashtags)
	setIfPresent(fields, "ImageURL", record.ImageURL)
	setIfPresent(fields, "LocalImagePath", record.LocalImagePath)
	setIfPresent(fields, "Model", record.Model)
	setIfPresent(fields, "AspectRatio", record.AspectRatio)
	setIfPresent(fields, "Quality", record.Quality)
	if record.ScheduledDate != nil {
		fields["ScheduledDate"] = record.ScheduledDate.Format(time.RFC3339)
	}

	var created apiRecord
	if err := c.do(ctx, http.MethodPost, c.tableURL(), apiRecord{Fields: fields}, &created); err != nil {
		return "", err
	}
	c.logger.Info().Str("record_id", created.ID).Msg("airtable: created record")
	return created.ID, nil
}

// UpdateStatus moves a record to the given status, optionally setting extra
// fields in the same call.
func (c *Client) UpdateStatus(ctx context.Context, recordID string, status domain.PostStatus, extra map[string]any) error {
	fields := map[string]any{"Status": string(status)}
	for key, value := range extra {
		fields[key] = value
	}
	return c.patch(ctx, recordID, fields)
}

// SetImage attaches the generated image to a record and moves it to Review.
func (c *Client) SetImage(ctx context.Context, recordID, imageURL, localPath string) error {
	return c.patch(ctx, recordID, map[string]any{
		"ImageURL":       imageURL,
		"LocalImagePath": localPath,
		"Status":         string(domain.PostStatusReview),
	})
}

// SetError marks a record as failed with its error message.
func (c *Client) SetError(ctx context.Context, recordID, message string) error {
	return c.patch(ctx, recordID, map[string]any{
		"Status": string(domain.PostStatusFailed),
		"Error":  message,
	})
}

// UpdateContent patches only the post-content fields that are non-nil.
func (c *Client) UpdateContent(ctx context.Context, recordID string, caption, hashtags *string, platforms []string, scheduledDate, status *string) error {
	fields := map[string]any{}
	if caption != nil {
		fields["Caption"] = *caption
	}
	if hashtags != nil {
		fields["Hashtags"] = *hashtags
	}
	if platforms != nil {
		fields["Platforms"] = platforms
	}
	if scheduledDate != nil {
		fields["ScheduledDate"] = *scheduledDate
	}
	if status != nil {
		fields["Status"] = *status
	}
	if len(fields) == 0 {
		return nil
	}
	return c.patch(ctx, recordID, fields)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, recordID string) error {
	return c.do(ctx, http.MethodDelete, c.tableURL()+"/"+recordID, nil, nil)
}

// StatusCounts tallies records per status across the whole table.
func (c *Client) StatusCounts(ctx context.Context) (map[string]int, error) {
	records, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, rec := range records {
		status := string(rec.Status)
		if status == "" {
			status = "Unknown"
		}
		counts[status]++
	}
	return counts, nil
}

func (c *Client) patch(ctx context.Context, recordID string, fields map[string]any) error {
	if strings.TrimSpace(recordID) == "" {
		return domain.ErrInvalidRequest
	}
	err := c.do(ctx, http.MethodPatch, c.tableURL()+"/"+recordID, apiRecord{Fields: fields}, nil)
	if err != nil {
		return err
	}
	c.logger.Info().Str("record_id", recordID).Msg("airtable: updated record")
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("airtable: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("airtable: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.pat)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("airtable: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("airtable: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var detail apiError
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
			return fmt.Errorf("airtable: %s (%s)", detail.Error.Message, detail.Error.Type)
		}
		return fmt.Errorf("airtable: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("airtable: decode response: %w", err)
	}
	return nil
}

func statusFormula(statuses []domain.PostStatus) string {
	switch len(statuses) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("{Status} = '%s'", statuses[0])
	default:
		clauses := make([]string, len(statuses))
		for i, status := range statuses {
			clauses[i] = fmt.Sprintf("{Status} = '%s'", status)
		}
		return "OR(" + strings.Join(clauses, ", ") + ")"
	}
}

func setIfPresent(fields map[string]any, key, value string) {
	if strings.TrimSpace(value) != "" {
		fields[key] = value
	}
}

func toContentRecord(rec apiRecord) domain.ContentRecord {
	out := domain.ContentRecord{
		ID:             rec.ID,
		Title:          getString(rec.Fields, "Title"),
		Prompt:         getString(rec.Fields, "Prompt"),
		Status:         domain.PostStatus(getString(rec.Fields, "Status")),
		Caption:        getString(rec.Fields, "Caption"),
		Hashtags:       getString(rec.Fields, "Hashtags"),
		ImageURL:       getString(rec.Fields, "ImageURL"),
		LocalImagePath: getString(rec.Fields, "LocalImagePath"),
		Model:          getString(rec.Fields, "Model"),
		AspectRatio:    getString(rec.Fields, "AspectRatio"),
		Quality:        getString(rec.Fields, "Quality"),
		Error:          getString(rec.Fields, "Error"),
		CreatedAt:      rec.CreatedTime,
	}
	if out.Status == "" {
		out.Status = domain.PostStatusIdea
	}
	if out.Model == "" {
		out.Model = "Gemini 3"
	}
	if out.AspectRatio == "" {
		out.AspectRatio = "1:1"
	}
	if out.Quality == "" {
		out.Quality = "medium"
	}
	out.Platforms = getStrings(rec.Fields, "Platforms")
	if raw := getString(rec.Fields, "ScheduledDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			out.ScheduledDate = &parsed
		}
	}
	// ReferenceImages is an attachment field; keep only the URLs.
	if attachments, ok := rec.Fields["ReferenceImages"].([]any); ok {
		for _, item := range attachments {
			if m, ok := item.(map[string]any); ok {
				if u, _ := m["url"].(string); u != "" {
					out.ReferenceImages = append(out.ReferenceImages, u)
				}
			}
		}
	}
	return out
}

func getString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func getStrings(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
