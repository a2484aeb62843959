package jobs

import "time"

// Job is a submitted job posting with its derived analysis.
type Job struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Title       string         `json:"title,omitempty"`
	Company     string         `json:"company,omitempty"`
	Content     string         `json:"content"`
	ContentHash string         `json:"-"`
	Analysis    map[string]any `json:"analysis,omitempty"`
	IsArchived  bool           `json:"isArchived,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
