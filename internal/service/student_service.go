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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest holds the payload for creating or replacing a student.
type StudentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	NameZh    string `json:"nameZh" validate:"required_without=NameEn"`
	NameEn    string `json:"nameEn" validate:"required_without=NameZh"`
	Grade     string `json:"grade"`
	Nickname  string `json:"nickname"`
	Phone     string `json:"phone"`
	Wechat    string `json:"wechat"`
	School    string `json:"school"`
	Notes     string `json:"notes"`
}

func (r StudentRequest) apply(student *models.Student) {
	student.StudentID = strings.TrimSpace(r.StudentID)
	student.NameZh = strings.TrimSpace(r.NameZh)
	student.NameEn = strings.TrimSpace(r.NameEn)
	student.Grade = strings.TrimSpace(r.Grade)
	student.Nickname = r.Nickname
	student.Phone = r.Phone
	student.Wechat = r.Wechat
	student.School = r.School
	student.Notes = r.Notes
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	mutations mutationSupport
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger, bulk BulkConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, validator: validate, mutations: newMutationSupport("student", cache, metrics, logger, bulk)}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "student", "load")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	student, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.mutations.invalidate(ctx)
	return student, nil
}

func (s *StudentService) create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student := &models.Student{}
	req.apply(student)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	return student, nil
}

// Update replaces the editable fields of a student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "student", "load")
	}
	req.apply(student)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	s.mutations.invalidate(ctx)
	return student, nil
}

// Delete removes a student. Classes referring to it are left dangling.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "student", "delete")
	}
	s.mutations.invalidate(ctx)
	return nil
}

// BulkDelete removes many students, reporting each outcome.
func (s *StudentService) BulkDelete(ctx context.Context, req dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	return s.mutations.bulkDelete(ctx, req, s.validator.Struct, s.repo.Delete)
}

// Import creates students from CSV records.
func (s *StudentService) Import(ctx context.Context, records []export.Record) *dto.ImportResult {
	return s.mutations.importRecords(ctx, records, func(ctx context.Context, record export.Record) error {
		if err := requireColumns(record, "studentId"); err != nil {
			return err
		}
		_, err := s.create(ctx, StudentRequest{
			StudentID: record.Get("studentId"),
			NameZh:    record.Get("nameZh"),
			NameEn:    record.Get("nameEn"),
			Grade:     record.Get("grade"),
			Nickname:  record.Get("nickname"),
			Phone:     record.Get("phone"),
			Wechat:    record.Get("wechat"),
			School:    record.Get("school"),
			Notes:     record.Get("notes"),
		})
		return err
	})
}
