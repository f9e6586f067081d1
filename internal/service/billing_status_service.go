package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type studentStatusRepository interface {
	ListByMonth(ctx context.Context, month string) ([]models.StudentBillingStatus, error)
	Upsert(ctx context.Context, patch models.StudentStatusPatch) (*models.StudentBillingStatus, error)
}

type teacherStatusRepository interface {
	ListByMonth(ctx context.Context, month string) ([]models.TeacherBillingStatus, error)
	Upsert(ctx context.Context, patch models.TeacherStatusPatch) (*models.TeacherBillingStatus, error)
}

// BillingStatusService records payment and statement progress per month.
type BillingStatusService struct {
	students  studentStatusRepository
	teachers  teacherStatusRepository
	validator *validator.Validate
	cache     *CacheService
	logger    *zap.Logger
}

// NewBillingStatusService constructs a BillingStatusService.
func NewBillingStatusService(students studentStatusRepository, teachers teacherStatusRepository, validate *validator.Validate, cache *CacheService, logger *zap.Logger) *BillingStatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingStatusService{students: students, teachers: teachers, validator: validate, cache: cache, logger: logger}
}

// ListStudentStatuses returns the stored student statuses of a month.
func (s *BillingStatusService) ListStudentStatuses(ctx context.Context, month string) ([]models.StudentBillingStatus, error) {
	parsed, err := billing.ParseMonth(month)
	if err != nil {
		return nil, appErrors.Validation(err, "month must use YYYY-MM")
	}
	statuses, err := s.students.ListByMonth(ctx, parsed.String())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load student statuses")
	}
	return statuses, nil
}

// ListTeacherStatuses returns the stored teacher statuses of a month.
func (s *BillingStatusService) ListTeacherStatuses(ctx context.Context, month string) ([]models.TeacherBillingStatus, error) {
	parsed, err := billing.ParseMonth(month)
	if err != nil {
		return nil, appErrors.Validation(err, "month must use YYYY-MM")
	}
	statuses, err := s.teachers.ListByMonth(ctx, parsed.String())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load teacher statuses")
	}
	return statuses, nil
}

// UpsertStudentStatus creates or patches the (student, month) status. Only the
// fields present in the patch change.
func (s *BillingStatusService) UpsertStudentStatus(ctx context.Context, patch models.StudentStatusPatch) (*models.StudentBillingStatus, error) {
	patch.StudentID = strings.TrimSpace(patch.StudentID)
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	month, err := billing.ParseMonth(patch.Month)
	if err != nil {
		return nil, appErrors.Validation(err, "month must use YYYY-MM")
	}
	patch.Month = month.String()
	if patch.PaymentStatus != nil {
		switch *patch.PaymentStatus {
		case models.PaymentStatusUnpaid, models.PaymentStatusPaid:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
		}
	}
	if patch.StatementStatus != nil {
		switch *patch.StatementStatus {
		case models.StatementStatusPending, models.StatementStatusCreated:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown statement status")
		}
	}

	status, err := s.students.Upsert(ctx, patch)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save student status")
	}
	s.invalidateMonth(ctx, patch.Month)
	return status, nil
}

// UpsertTeacherStatus creates or patches the (teacher, month) status.
func (s *BillingStatusService) UpsertTeacherStatus(ctx context.Context, patch models.TeacherStatusPatch) (*models.TeacherBillingStatus, error) {
	patch.TeacherID = strings.TrimSpace(patch.TeacherID)
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	month, err := billing.ParseMonth(patch.Month)
	if err != nil {
		return nil, appErrors.Validation(err, "month must use YYYY-MM")
	}
	patch.Month = month.String()

	status, err := s.teachers.Upsert(ctx, patch)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save teacher status")
	}
	s.invalidateMonth(ctx, patch.Month)
	return status, nil
}

func (s *BillingStatusService) invalidateMonth(ctx context.Context, month string) {
	if err := s.cache.Invalidate(ctx, billingMonthPattern(month)); err != nil {
		s.logger.Warn("failed to invalidate billing cache", zap.String("month", month), zap.Error(err))
	}
}
