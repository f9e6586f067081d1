package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

var statementJobRowColumns = []string{"id", "kind", "month", "status", "progress", "success_count", "failure_count", "failures", "result_url", "created_by", "created_at", "finished_at", "error_message"}

func TestStatementJobRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStatementJobRepository(db)

	mock.ExpectExec("INSERT INTO statement_jobs").WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.StatementJob{Kind: models.StatementKindStudent, Month: "2025-07", CreatedBy: "admin"}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.StatementJobQueued, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementJobRepositoryGetByIDDecodesFailures(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStatementJobRepository(db)

	rows := sqlmock.NewRows(statementJobRowColumns).
		AddRow("job-1", "student", "2025-07", "FINISHED", 100, 2, 1, []byte(`[{"groupId":"S3","name":"Amy","reason":"render failed"}]`), "token", "admin", time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM statement_jobs WHERE id = $1")).WithArgs("job-1").WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, job.Failures, 1)
	assert.Equal(t, "S3", job.Failures[0].GroupID)
	assert.Equal(t, 2, job.SuccessCount)
	require.NotNil(t, job.ResultURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStatementJobRepository(db)

	status := models.StatementJobProcessing
	progress := 50
	mock.ExpectExec(regexp.QuoteMeta("UPDATE statement_jobs SET status = $1, progress = $2 WHERE id = $3")).
		WithArgs(status, progress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateStatementJobParams{Status: &status, Progress: &progress}))
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateStatementJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
