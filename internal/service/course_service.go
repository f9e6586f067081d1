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

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseRequest is the payload for creating or replacing a course. TeacherID
// is a human teacher key and is not checked for existence.
type CourseRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required"`
	Grade     string `json:"grade"`
	Subject   string `json:"subject" validate:"required"`
}

func (r CourseRequest) apply(course *models.Course) {
	course.CourseID = strings.TrimSpace(r.CourseID)
	course.TeacherID = strings.TrimSpace(r.TeacherID)
	course.Grade = strings.TrimSpace(r.Grade)
	course.Subject = strings.TrimSpace(r.Subject)
}

// CourseService manages courses.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	mutations mutationSupport
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger, bulk BulkConfig) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, validator: validate, mutations: newMutationSupport("course", cache, metrics, logger, bulk)}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "course", "load")
	}
	return course, nil
}

// Create registers a course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	course, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.mutations.invalidate(ctx)
	return course, nil
}

func (s *CourseService) create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	course := &models.Course{}
	req.apply(course)
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Internal(err, "failed to create course")
	}
	return course, nil
}

// Update modifies a course.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "course", "load")
	}
	req.apply(course)
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Internal(err, "failed to update course")
	}
	s.mutations.invalidate(ctx)
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "course", "delete")
	}
	s.mutations.invalidate(ctx)
	return nil
}

// BulkDelete removes many courses, reporting each outcome.
func (s *CourseService) BulkDelete(ctx context.Context, req dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	return s.mutations.bulkDelete(ctx, req, s.validator.Struct, s.repo.Delete)
}

// Import creates courses from CSV records.
func (s *CourseService) Import(ctx context.Context, records []export.Record) *dto.ImportResult {
	return s.mutations.importRecords(ctx, records, func(ctx context.Context, record export.Record) error {
		if err := requireColumns(record, "courseId", "teacherId", "subject"); err != nil {
			return err
		}
		_, err := s.create(ctx, CourseRequest{
			CourseID:  record.Get("courseId"),
			TeacherID: record.Get("teacherId"),
			Grade:     record.Get("grade"),
			Subject:   record.Get("subject"),
		})
		return err
	})
}
