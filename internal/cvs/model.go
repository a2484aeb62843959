package cvs

import "time"

// Status is the lifecycle state of a CV record through the extraction
// pipeline.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// CanTransition reports whether a record may move from one status to another.
// The machine only moves forward: UPLOADED -> PROCESSING -> {COMPLETED,
// FAILED}. A FAILED record may re-enter PROCESSING; a COMPLETED record may
// re-enter PROCESSING only when the caller forces reprocessing.
func CanTransition(from, to Status, force bool) bool {
	switch to {
	case StatusProcessing:
		switch from {
		case StatusUploaded, StatusFailed:
			return true
		case StatusCompleted:
			return force
		default:
			return false
		}
	case StatusCompleted, StatusFailed:
		return from == StatusProcessing
	default:
		return false
	}
}

// Record is an uploaded CV and everything derived from it.
type Record struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	FileName         string         `json:"fileName"`
	ContentType      string         `json:"contentType,omitempty"`
	FileSize         int64          `json:"fileSize,omitempty"`
	StorageKey       string         `json:"-"`
	RawText          string         `json:"rawText,omitempty"`
	Extracted        map[string]any `json:"extracted,omitempty"`
	ProcessingStatus Status         `json:"processingStatus"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IsDeleted        bool           `json:"isDeleted,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// ExtractedSkills flattens the skill names out of the extracted field bag.
func (r Record) ExtractedSkills() []string {
	raw, ok := r.Extracted["skills"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case map[string]any:
			if name, ok := s["name"].(string); ok && name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
