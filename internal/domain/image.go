package domain

// ImageMeta is the sidecar metadata written next to every saved generation.
type ImageMeta struct {
	Prompt    string   `json:"prompt,omitempty"`
	Model     string   `json:"model,omitempty"`
	Refs      []string `json:"refs,omitempty"`
	Aspect    string   `json:"aspect,omitempty"`
	Quality   string   `json:"quality,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// GeneratedImage is a to-be-processed or archived image plus its metadata.
type GeneratedImage struct {
	File      string   `json:"file"`
	Tags      []string `json:"tags"`
	Prompt    string   `json:"prompt,omitempty"`
	Model     string   `json:"model,omitempty"`
	Refs      []string `json:"refs,omitempty"`
	Aspect    string   `json:"aspect,omitempty"`
	Quality   string   `json:"quality,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// LibraryImage is an entry in the reference library (manifest, specific
// expressions, or loose files in the library root).
type LibraryImage struct {
	File   string   `json:"file"`
	Tags   []string `json:"tags"`
	Model  string   `json:"model,omitempty"`
	Prompt string   `json:"prompt,omitempty"`
}
