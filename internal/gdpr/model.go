package gdpr

import (
	"time"

	"applyforge-backend/internal/activity"
	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
	"applyforge-backend/internal/users"
)

// DeleteOptions selects which data categories a deletion request covers.
type DeleteOptions struct {
	DeleteProfile        bool   `json:"deleteProfile"`
	DeleteCvData         bool   `json:"deleteCvData"`
	DeleteActivityLogs   bool   `json:"deleteActivityLogs"`
	DeleteCommunications bool   `json:"deleteCommunications"`
	DeleteSessions       bool   `json:"deleteSessions"`
	Reason               string `json:"reason"`
}

// normalized expands deleteProfile to cover every category; a profile cannot
// outlive its data nor the other way round.
func (o DeleteOptions) normalized() DeleteOptions {
	if o.DeleteProfile {
		o.DeleteCvData = true
		o.DeleteActivityLogs = true
		o.DeleteCommunications = true
		o.DeleteSessions = true
	}
	return o
}

func (o DeleteOptions) anySelected() bool {
	return o.DeleteProfile || o.DeleteCvData || o.DeleteActivityLogs || o.DeleteCommunications || o.DeleteSessions
}

// Counts reports per-table row counts for one user, both in the pre-deletion
// summary and in the deletion report.
type Counts struct {
	Profile          int `json:"profile"`
	Sessions         int `json:"sessions"`
	CVRecords        int `json:"cvRecords"`
	JobRecords       int `json:"jobRecords"`
	GeneratedContent int `json:"generatedContent"`
	ActivityLogs     int `json:"activityLogs"`
}

// Total sums all categories.
func (c Counts) Total() int {
	return c.Profile + c.Sessions + c.CVRecords + c.JobRecords + c.GeneratedContent + c.ActivityLogs
}

// ExportBundle is the full JSON export of a user's stored data.
type ExportBundle struct {
	ExportedAt time.Time             `json:"exportedAt"`
	User       *users.User           `json:"user,omitempty"`
	CVRecords  []cvs.Record          `json:"cvRecords"`
	JobRecords []jobs.Job            `json:"jobRecords"`
	Generated  []generation.Artifact `json:"generatedContent"`
	Activity   []activity.Entry      `json:"activityLogs"`
}
