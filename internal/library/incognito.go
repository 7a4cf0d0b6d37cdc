package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const incognitoFile = "incognito.json"

type incognitoPayload struct {
	Images []string `json:"images"`
}

// Incognito returns the list of hidden image ids.
func (s *Store) Incognito(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, incognitoFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("library: read incognito list: %w", err)
	}
	var payload incognitoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("library: decode incognito list: %w", err)
	}
	if payload.Images == nil {
		payload.Images = []string{}
	}
	return payload.Images, nil
}

// SaveIncognito replaces the hidden image id list.
func (s *Store) SaveIncognito(ctx context.Context, images []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if images == nil {
		images = []string{}
	}
	data, err := json.MarshalIndent(incognitoPayload{Images: images}, "", "  ")
	if err != nil {
		return fmt.Errorf("library: encode incognito list: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.basePath, incognitoFile), data, 0o644); err != nil {
		return fmt.Errorf("library: write incognito list: %w", err)
	}
	return nil
}
