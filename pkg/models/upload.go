package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadStatus is the lifecycle status of a survey video analysis job.
type UploadStatus string

const (
	UploadStatusQueued     UploadStatus = "Queued"
	UploadStatusPending    UploadStatus = "Pending"
	UploadStatusProcessing UploadStatus = "Processing"
	UploadStatusCompleted  UploadStatus = "Completed"
	UploadStatusFailed     UploadStatus = "Failed"
)

var uploadStatuses = []UploadStatus{
	UploadStatusQueued,
	UploadStatusPending,
	UploadStatusProcessing,
	UploadStatusCompleted,
	UploadStatusFailed,
}

// ParseUploadStatus parses a wire status, ignoring case and surrounding space.
func ParseUploadStatus(s string) (UploadStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range uploadStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown upload status %q", s)
}

// Terminal reports whether no further transition is expected from s.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// Polling reports whether a job in status s is still polled.
// The polling set is exactly {Queued, Pending, Processing}.
func (s UploadStatus) Polling() bool {
	switch s {
	case UploadStatusQueued, UploadStatusPending, UploadStatusProcessing:
		return true
	}
	return false
}

// UploadJob is the client-side copy of a backend analysis job. The backend owns it;
// the portal replaces its copy with each polled status.
type UploadJob struct {
	UploadID    string       `db:"upload_id"    json:"upload_id"`
	PartnerID   uuid.UUID    `db:"partner_id"   json:"partner_id"`
	Status      UploadStatus `db:"status"       json:"status"`
	Message     string       `db:"message"      json:"message"`
	FileName    string       `db:"file_name"    json:"file_name"`
	ContentType string       `db:"content_type" json:"content_type,omitempty"`
	SizeBytes   int64        `db:"size_bytes"   json:"size_bytes,omitempty"`
	S3Key       string       `db:"s3_key"       json:"s3_key,omitempty"`
	CreatedAt   time.Time    `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"   json:"updated_at"`
}
