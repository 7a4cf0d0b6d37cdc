package domain

import "time"

// PostStatus enumerates the content-calendar lifecycle.
type PostStatus string

const (
	PostStatusIdea       PostStatus = "Idea"
	PostStatusGenerating PostStatus = "Generating"
	PostStatusReview     PostStatus = "Review"
	PostStatusApproved   PostStatus = "Approved"
	PostStatusScheduled  PostStatus = "Scheduled"
	PostStatusPublished  PostStatus = "Published"
	PostStatusFailed     PostStatus = "Failed"
)

// ContentRecord is one row of the content calendar.
type ContentRecord struct {
	ID              string
	Title           string
	Prompt          string
	Status          PostStatus
	Platforms       []string
	Caption         string
	Hashtags        string
	ImageURL        string
	LocalImagePath  string
	ScheduledDate   *time.Time
	Model           string
	AspectRatio     string
	Quality         string
	ReferenceImages []string
	Error           string
	CreatedAt       string
}
