package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
	"github.com/noah-isme/tutor-center-api/pkg/tasks"
)

// DeleteConfirmationPhrase must be typed to confirm a bulk delete.
const DeleteConfirmationPhrase = "確認刪除"

// BulkConfig bounds the fan-out of bulk mutations.
type BulkConfig struct {
	Concurrency int
}

// mutationSupport carries what every entity service needs around writes:
// derived-view invalidation, bulk fan-out and their instrumentation.
type mutationSupport struct {
	entity  string
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	bulk    BulkConfig
}

func newMutationSupport(entity string, cache *CacheService, metrics *MetricsService, logger *zap.Logger, bulk BulkConfig) mutationSupport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bulk.Concurrency <= 0 {
		bulk.Concurrency = 8
	}
	return mutationSupport{entity: entity, cache: cache, metrics: metrics, logger: logger, bulk: bulk}
}

// invalidate drops every cached billing and revenue view. Entity edits can
// move classes between groups and months, so nothing narrower is safe.
func (m mutationSupport) invalidate(ctx context.Context) {
	for _, pattern := range []string{billingCachePattern, revenueCachePattern} {
		if err := m.cache.Invalidate(ctx, pattern); err != nil {
			m.logger.Warn("failed to invalidate derived views", zap.String("entity", m.entity), zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func (m mutationSupport) bulkDelete(ctx context.Context, req dto.BulkDeleteRequest, validate func(interface{}) error, remove func(context.Context, string) error) (*dto.BulkDeleteResponse, error) {
	if err := validate(req); err != nil {
		return nil, appErrors.Validation(err, "invalid bulk delete payload")
	}
	if req.Confirmation != DeleteConfirmationPhrase {
		return nil, appErrors.ErrConfirmationMismatch
	}

	outcomes := tasks.Run(ctx, req.IDs, m.bulk.Concurrency, remove)
	resp := &dto.BulkDeleteResponse{Results: make([]dto.BulkItemResult, 0, len(outcomes))}
	for _, outcome := range outcomes {
		item := dto.BulkItemResult{ID: outcome.Item, OK: outcome.OK()}
		if outcome.OK() {
			resp.SuccessCount++
		} else {
			resp.ErrorCount++
			item.Error = describeItemError(outcome.Err)
			m.logger.Sugar().Warnw("bulk delete item failed", "entity", m.entity, "id", outcome.Item, "error", outcome.Err)
		}
		resp.Results = append(resp.Results, item)
	}
	m.metrics.RecordBulkOperation(m.entity, "delete", resp.SuccessCount, resp.ErrorCount)
	if resp.SuccessCount > 0 {
		m.invalidate(ctx)
	}
	return resp, nil
}

// importRecords creates one entity per CSV record. A bad record is reported
// with its line number and never stops the batch.
func (m mutationSupport) importRecords(ctx context.Context, records []export.Record, create func(context.Context, export.Record) error) *dto.ImportResult {
	result := &dto.ImportResult{Errors: []dto.ImportRowError{}}
	for _, record := range records {
		err := record.Err
		if err != nil {
			err = appErrors.Validation(err, fmt.Sprintf("malformed row: %v", err))
		} else {
			err = create(ctx, record)
		}
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, dto.ImportRowError{Line: record.Line, Reason: describeItemError(err)})
			m.logger.Sugar().Warnw("import row rejected", "entity", m.entity, "line", record.Line, "error", err)
			continue
		}
		result.SuccessCount++
	}
	m.metrics.RecordBulkOperation(m.entity, "import", result.SuccessCount, result.ErrorCount)
	if result.SuccessCount > 0 {
		m.invalidate(ctx)
	}
	return result
}

func requireColumns(record export.Record, columns ...string) error {
	if missing := record.Missing(columns...); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required fields: %v", missing))
	}
	return nil
}

func describeItemError(err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound.Message
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func notFoundOrInternal(err error, entity, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Internal(err, fmt.Sprintf("failed to %s %s", action, entity))
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = total
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
