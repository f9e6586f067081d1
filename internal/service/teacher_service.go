package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// TeacherRequest represents payload for creating or replacing a teacher.
type TeacherRequest struct {
	TeacherID string `json:"teacherId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Phone     string `json:"phone"`
}

// TeacherService exposes business logic for teachers.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	mutations mutationSupport
}

// NewTeacherService builds a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger, bulk BulkConfig) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{repo: repo, validator: validate, mutations: newMutationSupport("teacher", cache, metrics, logger, bulk)}
}

// List returns teachers with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list teachers")
	}
	return teachers, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "teacher", "load")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	teacher, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.mutations.invalidate(ctx)
	return teacher, nil
}

func (s *TeacherService) create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		TeacherID: strings.TrimSpace(req.TeacherID),
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies a teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "teacher", "load")
	}
	teacher.TeacherID = strings.TrimSpace(req.TeacherID)
	teacher.Name = strings.TrimSpace(req.Name)
	teacher.Phone = req.Phone
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	s.mutations.invalidate(ctx)
	return teacher, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "teacher", "delete")
	}
	s.mutations.invalidate(ctx)
	return nil
}

// BulkDelete removes many teachers, reporting each outcome.
func (s *TeacherService) BulkDelete(ctx context.Context, req dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	return s.mutations.bulkDelete(ctx, req, s.validator.Struct, s.repo.Delete)
}

// Import creates teachers from CSV records.
func (s *TeacherService) Import(ctx context.Context, records []export.Record) *dto.ImportResult {
	return s.mutations.importRecords(ctx, records, func(ctx context.Context, record export.Record) error {
		if err := requireColumns(record, "teacherId", "name"); err != nil {
			return err
		}
		_, err := s.create(ctx, TeacherRequest{
			TeacherID: record.Get("teacherId"),
			Name:      record.Get("name"),
			Phone:     record.Get("phone"),
		})
		return err
	})
}
