package domain

import (
	"encoding/json"
	"math"
	"time"
)

// JobStatus represents the status of an analysis job.
// Values include JobStatusPending, JobStatusProcessing,
// JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// AnalysisJob is the durable progress record polled by clients.
// Status is a projection of (progress, total) except for the explicit
// failed escape hatch; jobs are retained after completion for auditing.
type AnalysisJob struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	Status       JobStatus `gorm:"type:text;default:pending;index" json:"status"`
	Progress     int       `gorm:"default:0" json:"progress"`
	Total        int       `gorm:"default:100" json:"total"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	Metadata     string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}

// ApplyProgress advances the job. A non-empty errMsg marks the job failed
// and records the message; otherwise progress is set, any message from an
// earlier failed attempt is cleared, and status derived: completed once
// progress reaches total, processing before that.
func (j *AnalysisJob) ApplyProgress(current int, errMsg string) {
	if errMsg != "" {
		j.Status = JobStatusFailed
		j.ErrorMessage = errMsg
		return
	}
	if current > j.Total {
		current = j.Total
	}
	j.Progress = current
	j.ErrorMessage = ""
	if j.Total > 0 && current >= j.Total {
		j.Status = JobStatusCompleted
	} else {
		j.Status = JobStatusProcessing
	}
}

// ProgressPercentage returns progress as a percentage rounded to two
// decimals, 0 when total is zero.
func (j *AnalysisJob) ProgressPercentage() float64 {
	if j.Total == 0 {
		return 0
	}
	pct := float64(j.Progress) / float64(j.Total) * 100
	return math.Round(pct*100) / 100
}

// SetMetadata serializes the metadata bag onto the record.
func (j *AnalysisJob) SetMetadata(meta map[string]string) error {
	if meta == nil {
		j.Metadata = ""
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	j.Metadata = string(raw)
	return nil
}

// MetadataMap deserializes the metadata bag; missing or malformed
// metadata yields an empty map.
func (j *AnalysisJob) MetadataMap() map[string]string {
	meta := map[string]string{}
	if j.Metadata == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(j.Metadata), &meta); err != nil {
		return map[string]string{}
	}
	return meta
}
