package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

const statementJobColumns = "id, kind, month, status, progress, success_count, failure_count, failures, result_url, created_by, created_at, finished_at, error_message"

// StatementJobRepository persists bulk statement job metadata.
type StatementJobRepository struct {
	db *sqlx.DB
}

// NewStatementJobRepository constructs the repository.
func NewStatementJobRepository(db *sqlx.DB) *StatementJobRepository {
	return &StatementJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *StatementJobRepository) Create(ctx context.Context, job *models.StatementJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.StatementJobQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO statement_jobs (id, kind, month, status, progress, success_count, failure_count, failures, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :kind, :month, :status, :progress, :success_count, :failure_count, :failures, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create statement job: %w", err)
	}
	return nil
}

// GetByID returns a job row. sql.ErrNoRows is returned unwrapped.
func (r *StatementJobRepository) GetByID(ctx context.Context, id string) (*models.StatementJob, error) {
	const query = "SELECT " + statementJobColumns + " FROM statement_jobs WHERE id = $1"
	var job models.StatementJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatementJobParams defines the mutable fields.
type UpdateStatementJobParams struct {
	Status       *models.StatementJobStatus
	Progress     *int
	SuccessCount *int
	FailureCount *int
	Failures     *models.StatementFailures
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *StatementJobRepository) Update(ctx context.Context, id string, params UpdateStatementJobParams) error {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.SuccessCount != nil {
		add("success_count", *params.SuccessCount)
	}
	if params.FailureCount != nil {
		add("failure_count", *params.FailureCount)
	}
	if params.Failures != nil {
		add("failures", *params.Failures)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE statement_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update statement job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs for cold start recovery.
func (r *StatementJobRepository) ListQueued(ctx context.Context, limit int) ([]models.StatementJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = "SELECT " + statementJobColumns + " FROM statement_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2"
	jobs := []models.StatementJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, models.StatementJobQueued, limit); err != nil {
		return nil, fmt.Errorf("list queued statement jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *StatementJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.StatementJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = "SELECT " + statementJobColumns + " FROM statement_jobs WHERE status = $1 AND finished_at IS NOT NULL AND finished_at < $2 ORDER BY finished_at ASC LIMIT $3"
	jobs := []models.StatementJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, models.StatementJobFinished, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished statement jobs: %w", err)
	}
	return jobs, nil
}
