package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/jobs"
	"github.com/noah-isme/tutor-center-api/pkg/storage"
)

type memoryJobStore struct {
	jobs map[string]*models.StatementJob
	seq  int
}

func (m *memoryJobStore) Create(_ context.Context, job *models.StatementJob) error {
	if m.jobs == nil {
		m.jobs = make(map[string]*models.StatementJob)
	}
	m.seq++
	job.ID = fmt.Sprintf("job%d", m.seq)
	stored := *job
	m.jobs[job.ID] = &stored
	return nil
}

func (m *memoryJobStore) GetByID(_ context.Context, id string) (*models.StatementJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	loaded := *job
	return &loaded, nil
}

func (m *memoryJobStore) Update(_ context.Context, id string, params repository.UpdateStatementJobParams) error {
	job := m.jobs[id]
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.SuccessCount != nil {
		job.SuccessCount = *params.SuccessCount
	}
	if params.FailureCount != nil {
		job.FailureCount = *params.FailureCount
	}
	if params.Failures != nil {
		job.Failures = *params.Failures
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *memoryJobStore) ListQueued(_ context.Context, _ int) ([]models.StatementJob, error) {
	var out []models.StatementJob
	for _, job := range m.jobs {
		if job.Status == models.StatementJobQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryJobStore) ListFinishedBefore(_ context.Context, _ time.Time, _ int) ([]models.StatementJob, error) {
	return nil, nil
}

type recordingDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

type stubGenerator struct {
	archive *StatementArchive
	err     error
}

func (g *stubGenerator) Generate(_ context.Context, _ *models.StatementJob) (*StatementArchive, error) {
	return g.archive, g.err
}

type recordingMarker struct {
	ids    []string
	month  string
	status string
}

func (m *recordingMarker) MarkStatementStatus(_ context.Context, ids []string, month, status string) error {
	m.ids, m.month, m.status = ids, month, status
	return nil
}

type stubArchiveStore struct {
	grant storage.Grant
	err   error
}

func (s *stubArchiveStore) ParseToken(_ string, _ bool) (storage.Grant, error) {
	return s.grant, s.err
}

func (s *stubArchiveStore) Open(relPath string) (*os.File, int64, error) {
	f, err := os.CreateTemp("", "archive-*.zip")
	return f, 0, err
}

func (s *stubArchiveStore) Delete(string) error { return nil }

func (s *stubArchiveStore) Cleanup(time.Duration) ([]string, error) { return nil, nil }

func TestStatementJobServiceCreateJob(t *testing.T) {
	store := &memoryJobStore{}
	queue := &recordingDispatcher{}
	svc := NewStatementJobService(store, queue, &stubArchiveStore{}, validator.New(), zap.NewNop(), StatementJobConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.StatementJobRequest{Kind: models.StatementKindStudent, Month: "2025-03"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatementJobQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Equal(t, "admin", store.jobs[resp.ID].CreatedBy)
}

func TestStatementJobServiceCreateJobValidates(t *testing.T) {
	svc := NewStatementJobService(&memoryJobStore{}, &recordingDispatcher{}, &stubArchiveStore{}, validator.New(), zap.NewNop(), StatementJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.StatementJobRequest{Kind: "parent", Month: "2025-03"}, "admin")
	require.Error(t, err)
	_, err = svc.CreateJob(context.Background(), dto.StatementJobRequest{Kind: models.StatementKindTeacher, Month: "2025-3"}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatementJobServiceCreateJobEnqueueFailure(t *testing.T) {
	store := &memoryJobStore{}
	svc := NewStatementJobService(store, &recordingDispatcher{err: errors.New("queue full")}, &stubArchiveStore{}, validator.New(), zap.NewNop(), StatementJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.StatementJobRequest{Kind: models.StatementKindTeacher, Month: "2025-03"}, "admin")
	require.Error(t, err)
	for _, job := range store.jobs {
		assert.Equal(t, models.StatementJobFailed, job.Status)
	}
}

func TestStatementWorkerMarksGeneratedStatements(t *testing.T) {
	store := &memoryJobStore{jobs: map[string]*models.StatementJob{
		"job1": {ID: "job1", Kind: models.StatementKindStudent, Month: "2025-03", Status: models.StatementJobQueued},
	}}
	generator := &stubGenerator{archive: &StatementArchive{
		URL:       "/api/statements/download/tok",
		Succeeded: []string{"S001", "S002"},
		Failures:  models.StatementFailures{{GroupID: "S003", Reason: "render"}},
	}}
	marker := &recordingMarker{}
	cacheRepo := &stubCacheRepo{store: map[string][]byte{"billing:students:2025-03": []byte(`{}`)}}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	worker := NewStatementWorker(store, generator, marker, cache, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job1", Attempt: 1}))

	job := store.jobs["job1"]
	assert.Equal(t, models.StatementJobFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 1, job.FailureCount)
	assert.Equal(t, "/api/statements/download/tok", *job.ResultURL)
	assert.Equal(t, []string{"S001", "S002"}, marker.ids)
	assert.Equal(t, models.StatementStatusCreated, marker.status)
	assert.Empty(t, cacheRepo.store)
}

func TestStatementWorkerTeacherJobLeavesStatusesAlone(t *testing.T) {
	store := &memoryJobStore{jobs: map[string]*models.StatementJob{
		"job1": {ID: "job1", Kind: models.StatementKindTeacher, Month: "2025-03"},
	}}
	marker := &recordingMarker{}
	worker := NewStatementWorker(store, &stubGenerator{archive: &StatementArchive{Succeeded: []string{"T1"}}}, marker, nil, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job1", Attempt: 1}))
	assert.Nil(t, marker.ids)
}

func TestStatementWorkerRetriesThenFails(t *testing.T) {
	store := &memoryJobStore{jobs: map[string]*models.StatementJob{
		"job1": {ID: "job1", Kind: models.StatementKindStudent, Month: "2025-03"},
	}}
	worker := NewStatementWorker(store, &stubGenerator{err: errors.New("db down")}, &recordingMarker{}, nil, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job1", Attempt: 1}))
	assert.Equal(t, models.StatementJobQueued, store.jobs["job1"].Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job1", Attempt: 2}))
	assert.Equal(t, models.StatementJobFailed, store.jobs["job1"].Status)
	assert.Equal(t, "db down", *store.jobs["job1"].ErrorMessage)
}

func TestStatementJobServiceStatusAndDownload(t *testing.T) {
	url := "/api/statements/download/tok"
	store := &memoryJobStore{jobs: map[string]*models.StatementJob{
		"job1": {ID: "job1", Kind: models.StatementKindStudent, Month: "2025-03", Status: models.StatementJobFinished, Progress: 100, SuccessCount: 2, ResultURL: &url},
		"job2": {ID: "job2", Kind: models.StatementKindStudent, Month: "2025-03", Status: models.StatementJobProcessing, ResultURL: &url},
	}}
	archives := &stubArchiveStore{grant: storage.Grant{JobID: "job1", Path: "statements.zip"}}
	svc := NewStatementJobService(store, &recordingDispatcher{}, archives, validator.New(), zap.NewNop(), StatementJobConfig{})

	status, err := svc.GetStatus(context.Background(), "job1")
	require.NoError(t, err)
	require.NotNil(t, status.DownloadURL)
	assert.Equal(t, url, *status.DownloadURL)
	assert.NotNil(t, status.Failures)

	download, err := svc.ResolveDownload(context.Background(), "tok")
	require.NoError(t, err)
	defer os.Remove(download.File.Name())
	defer download.File.Close()
	assert.Equal(t, "statements.zip", download.Filename)

	_, err = svc.ResolveDownload(context.Background(), "other")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	archives.grant.JobID = "job2"
	_, err = svc.ResolveDownload(context.Background(), "tok")
	require.Error(t, err)

	archives.err = errors.New("bad signature")
	_, err = svc.ResolveDownload(context.Background(), "tok")
	require.Error(t, err)
}

func TestStatementJobServiceRecoverPendingJobs(t *testing.T) {
	store := &memoryJobStore{jobs: map[string]*models.StatementJob{
		"job1": {ID: "job1", Kind: models.StatementKindStudent, Status: models.StatementJobQueued},
		"job2": {ID: "job2", Kind: models.StatementKindStudent, Status: models.StatementJobFinished},
	}}
	queue := &recordingDispatcher{}
	svc := NewStatementJobService(store, queue, &stubArchiveStore{}, validator.New(), zap.NewNop(), StatementJobConfig{})

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job1", queue.enqueued[0].ID)
}
