package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/jobs"
	"github.com/noah-isme/tutor-center-api/pkg/storage"
)

type statementJobStore interface {
	Create(ctx context.Context, job *models.StatementJob) error
	GetByID(ctx context.Context, id string) (*models.StatementJob, error)
	Update(ctx context.Context, id string, params repository.UpdateStatementJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.StatementJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.StatementJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type archiveGenerator interface {
	Generate(ctx context.Context, job *models.StatementJob) (*StatementArchive, error)
}

type archiveStore interface {
	ParseToken(token string, allowExpired bool) (storage.Grant, error)
	Open(relPath string) (*os.File, int64, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

type statementStatusMarker interface {
	MarkStatementStatus(ctx context.Context, studentIDs []string, month, statementStatus string) error
}

// StatementJobConfig governs queue recovery and cleanup.
type StatementJobConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// StatementDownload is an opened archive ready to stream.
type StatementDownload struct {
	File      *os.File
	Size      int64
	Filename  string
	ExpiresAt time.Time
}

// StatementJobService manages the lifecycle of bulk statement archives.
type StatementJobService struct {
	repo      statementJobStore
	queue     jobDispatcher
	archives  archiveStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StatementJobConfig
}

// NewStatementJobService constructs the job service.
func NewStatementJobService(repo statementJobStore, queue jobDispatcher, archives archiveStore, validate *validator.Validate, logger *zap.Logger, cfg StatementJobConfig) *StatementJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &StatementJobService{repo: repo, queue: queue, archives: archives, validator: validate, logger: logger, cfg: cfg}
}

// CreateJob persists a queued job and hands it to the worker queue.
func (s *StatementJobService) CreateJob(ctx context.Context, req dto.StatementJobRequest, actor string) (*dto.StatementJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid statement job payload")
	}
	month, err := billing.ParseMonth(req.Month)
	if err != nil {
		return nil, appErrors.Validation(err, "month must use YYYY-MM")
	}
	job := &models.StatementJob{
		Kind:      req.Kind,
		Month:     month.String(),
		Status:    models.StatementJobQueued,
		CreatedBy: actor,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create statement job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Kind)}); err != nil {
		status := models.StatementJobFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateStatementJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Internal(err, "failed to enqueue statement job")
	}
	return &dto.StatementJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus reports progress, the tally and the download link once finished.
func (s *StatementJobService) GetStatus(ctx context.Context, id string) (*dto.StatementJobStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "statement job not found")
		}
		return nil, appErrors.Internal(err, "failed to load statement job")
	}
	resp := &dto.StatementJobStatusResponse{
		ID:           job.ID,
		Kind:         job.Kind,
		Month:        job.Month,
		Status:       job.Status,
		Progress:     job.Progress,
		SuccessCount: job.SuccessCount,
		FailureCount: job.FailureCount,
		Failures:     job.Failures,
	}
	if resp.Failures == nil {
		resp.Failures = models.StatementFailures{}
	}
	if job.Status == models.StatementJobFinished && job.ResultURL != nil {
		resp.DownloadURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored archive.
func (s *StatementJobService) ResolveDownload(ctx context.Context, token string) (*StatementDownload, error) {
	grant, err := s.archives.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, grant.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "statement job not found")
		}
		return nil, appErrors.Internal(err, "failed to load statement job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.StatementJobFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "archive not ready")
	}
	file, size, err := s.archives.Open(grant.Path)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open statement archive")
	}
	return &StatementDownload{File: file, Size: size, Filename: filepath.Base(grant.Path), ExpiresAt: grant.ExpiresAt}, nil
}

// RecoverPendingJobs re-enqueues jobs left queued by a previous process.
func (s *StatementJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued statement jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Kind)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Sugar().Infow("requeued statement jobs", "count", len(pending))
	}
}

// StartCleanup purges expired archives on a ticker until ctx is done.
func (s *StatementJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *StatementJobService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		finished, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range finished {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			grant, err := s.archives.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.archives.Delete(grant.Path); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(finished) < 100 {
			break
		}
	}
	if _, err := s.archives.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// StatementWorker bridges queue jobs to StatementService.
type StatementWorker struct {
	repo       statementJobStore
	generator  archiveGenerator
	statuses   statementStatusMarker
	cache      *CacheService
	logger     *zap.Logger
	maxRetries int
}

// NewStatementWorker constructs a worker.
func NewStatementWorker(repo statementJobStore, generator archiveGenerator, statuses statementStatusMarker, cache *CacheService, maxRetries int, logger *zap.Logger) *StatementWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &StatementWorker{
		repo:       repo,
		generator:  generator,
		statuses:   statuses,
		cache:      cache,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *StatementWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.StatementJobProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateStatementJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.generator.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.StatementJobFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateStatementJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
		} else {
			queued := models.StatementJobQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateStatementJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	if record.Kind == models.StatementKindStudent && len(result.Succeeded) > 0 {
		if err := w.statuses.MarkStatementStatus(ctx, result.Succeeded, record.Month, models.StatementStatusCreated); err != nil {
			w.logger.Sugar().Warnw("failed to mark statements generated", "job_id", job.ID, "error", err)
		} else if err := w.cache.Invalidate(ctx, billingMonthPattern(record.Month)); err != nil {
			w.logger.Sugar().Warnw("failed to invalidate billing cache", "month", record.Month, "error", err)
		}
	}

	finished := models.StatementJobFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	successCount := len(result.Succeeded)
	failureCount := len(result.Failures)
	failures := result.Failures
	if err := w.repo.Update(ctx, job.ID, repository.UpdateStatementJobParams{
		Status:       &finished,
		Progress:     &progress,
		SuccessCount: &successCount,
		FailureCount: &failureCount,
		Failures:     &failures,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.logger.Sugar().Infow("statement job finished", "job_id", job.ID, "kind", record.Kind, "month", record.Month, "succeeded", successCount, "failed", failureCount)
	return nil
}

// GiveUp marks a job failed once the queue stops retrying it.
func (w *StatementWorker) GiveUp(ctx context.Context, job jobs.Job, err error) {
	failed := models.StatementJobFailed
	progress := 100
	now := time.Now().UTC()
	msg := err.Error()
	if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateStatementJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); updateErr != nil {
		w.logger.Sugar().Warnw("failed to mark job abandoned", "job_id", job.ID, "error", updateErr)
	}
}
