package dto

import "github.com/noah-isme/tutor-center-api/internal/models"

// StatementJobRequest captures POST /statements/jobs payload.
type StatementJobRequest struct {
	Kind  models.StatementKind `json:"kind" validate:"required,oneof=student teacher"`
	Month string               `json:"month" validate:"required"`
}

// StatementJobResponse is returned after enqueueing a statement job.
type StatementJobResponse struct {
	ID       string                    `json:"id"`
	Status   models.StatementJobStatus `json:"status"`
	Progress int                       `json:"progress"`
}

// StatementJobStatusResponse exposes job progress and the final tally.
type StatementJobStatusResponse struct {
	ID           string                    `json:"id"`
	Kind         models.StatementKind      `json:"kind"`
	Month        string                    `json:"month"`
	Status       models.StatementJobStatus `json:"status"`
	Progress     int                       `json:"progress"`
	SuccessCount int                       `json:"successCount"`
	FailureCount int                       `json:"failureCount"`
	Failures     models.StatementFailures  `json:"failures"`
	DownloadURL  *string                   `json:"downloadUrl,omitempty"`
	Error        *string                   `json:"error,omitempty"`
}
