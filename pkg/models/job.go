package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Job represents the processing of a single dash-camera video
type Job struct {
	ID              string     `json:"id" db:"id"`
	VideoKey        string     `json:"video_key" db:"video_key"`
	VideoName       string     `json:"video_name" db:"video_name"`
	Status          string     `json:"status" db:"status"`
	Progress        float64    `json:"progress" db:"progress"`
	ErrorMsg        string     `json:"error_msg,omitempty" db:"error_msg"`
	RetryCount      int        `json:"retry_count" db:"retry_count"`
	WorkerID        string     `json:"worker_id,omitempty" db:"worker_id"`
	FrameCount      int        `json:"frame_count" db:"frame_count"`
	FirstFrame      int        `json:"first_frame" db:"first_frame"`
	CaptionedFrames int        `json:"captioned_frames" db:"captioned_frames"`
	ResultCount     int        `json:"result_count" db:"result_count"`
	ResultsKey      string     `json:"results_key,omitempty" db:"results_key"`
	Video           VideoInfo  `json:"video" db:"video"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the job has finished, successfully or not
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobStatus constants
const (
	JobStatusPending    = "pending"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Value implements driver.Valuer for database storage
func (v VideoInfo) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements sql.Scanner for database retrieval
func (v *VideoInfo) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return nil
	}
}
