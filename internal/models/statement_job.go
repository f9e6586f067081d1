package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StatementKind selects which party a bulk statement job renders for.
type StatementKind string

const (
	StatementKindStudent StatementKind = "student"
	StatementKindTeacher StatementKind = "teacher"
)

// StatementJobStatus captures background job lifecycle states.
type StatementJobStatus string

const (
	StatementJobQueued     StatementJobStatus = "QUEUED"
	StatementJobProcessing StatementJobStatus = "PROCESSING"
	StatementJobFinished   StatementJobStatus = "FINISHED"
	StatementJobFailed     StatementJobStatus = "FAILED"
)

// StatementJob is the persisted state of one bulk statement archive.
type StatementJob struct {
	ID           string             `db:"id" json:"id"`
	Kind         StatementKind      `db:"kind" json:"kind"`
	Month        string             `db:"month" json:"month"`
	Status       StatementJobStatus `db:"status" json:"status"`
	Progress     int                `db:"progress" json:"progress"`
	SuccessCount int                `db:"success_count" json:"successCount"`
	FailureCount int                `db:"failure_count" json:"failureCount"`
	Failures     StatementFailures  `db:"failures" json:"failures"`
	ResultURL    *string            `db:"result_url" json:"resultUrl,omitempty"`
	CreatedBy    string             `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time          `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time         `db:"finished_at" json:"finishedAt,omitempty"`
	ErrorMessage *string            `db:"error_message" json:"errorMessage,omitempty"`
}

// StatementFailure names a group whose statement could not be produced.
type StatementFailure struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
}

// StatementFailures is persisted as JSONB.
type StatementFailures []StatementFailure

// Value marshals failures to JSON for persistence.
func (f StatementFailures) Value() (driver.Value, error) {
	if f == nil {
		f = StatementFailures{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal statement failures: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB column.
func (f *StatementFailures) Scan(value interface{}) error {
	if value == nil {
		*f = StatementFailures{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StatementFailures", value)
	}
	if len(data) == 0 {
		*f = StatementFailures{}
		return nil
	}
	if err := json.Unmarshal(data, f); err != nil {
		return fmt.Errorf("unmarshal statement failures: %w", err)
	}
	return nil
}
