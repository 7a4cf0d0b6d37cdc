// Package queue persists generation requests in SQLite and fans claimed
// items out to provider clients.
package queue

import "time"

// Status enumerates the queue item lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Item is one tracked generation request.
type Item struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Model      string    `json:"model"`
	Refs       []string  `json:"refs"`
	Aspect     string    `json:"aspect"`
	Quality    string    `json:"quality"`
	Status     Status    `json:"status"`
	ResultFile string    `json:"resultFile,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Counts aggregates queue items per status for the UI badge.
type Counts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// InFlight is the number of items not yet settled.
func (c Counts) InFlight() int {
	return c.Pending + c.Processing
}
