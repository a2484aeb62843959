package generation

import (
	"time"

	"applyforge-backend/internal/llm"
)

// Kinds of generated material.
const (
	KindEmail  = "email"
	KindLetter = "letter"
)

// Artifact is one stored piece of generated content.
type Artifact struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CVID        string    `json:"cvId,omitempty"`
	JobID       string    `json:"jobId,omitempty"`
	ContentType string    `json:"contentType"`
	Kind        string    `json:"kind"`
	Language    string    `json:"language"`
	Subject     string    `json:"subject,omitempty"`
	Content     string    `json:"content"`
	Model       string    `json:"model,omitempty"`
	Usage       llm.Usage `json:"usage"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
