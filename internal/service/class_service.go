package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

// ClassRequest is the payload for scheduling or editing one class.
type ClassRequest struct {
	CourseID  string      `json:"courseId" validate:"required"`
	StudentID string      `json:"studentId" validate:"required"`
	Date      models.Date `json:"date"`
	Price     *float64    `json:"price" validate:"required"`
}

func (r ClassRequest) check() error {
	if r.Date.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if r.Price != nil && (math.IsNaN(*r.Price) || math.IsInf(*r.Price, 0) || *r.Price < 0) {
		return appErrors.Clone(appErrors.ErrValidation, "price must be a non-negative number")
	}
	return nil
}

// ClassService manages scheduled classes.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	mutations mutationSupport
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger, bulk BulkConfig) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, validator: validate, mutations: newMutationSupport("class", cache, metrics, logger, bulk)}
}

// List returns classes filtered by student, course or month.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	if filter.Month != "" {
		month, err := billing.ParseMonth(filter.Month)
		if err != nil {
			return nil, nil, appErrors.Validation(err, "month must use YYYY-MM")
		}
		from, to := month.Range()
		filter.From, filter.To = &from, &to
	}
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "class", "load")
	}
	return class, nil
}

// Create schedules a class.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	class, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.mutations.invalidate(ctx)
	return class, nil
}

func (s *ClassService) create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid class payload")
	}
	if err := req.check(); err != nil {
		return nil, err
	}
	class := &models.Class{
		CourseID:  strings.TrimSpace(req.CourseID),
		StudentID: strings.TrimSpace(req.StudentID),
		Date:      req.Date,
		Price:     *req.Price,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to create class")
	}
	return class, nil
}

// Update edits a class.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid class payload")
	}
	if err := req.check(); err != nil {
		return nil, err
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "class", "load")
	}
	class.CourseID = strings.TrimSpace(req.CourseID)
	class.StudentID = strings.TrimSpace(req.StudentID)
	class.Date = req.Date
	class.Price = *req.Price
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to update class")
	}
	s.mutations.invalidate(ctx)
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "class", "delete")
	}
	s.mutations.invalidate(ctx)
	return nil
}

// BulkDelete removes many classes. A failed delete does not stop the others.
func (s *ClassService) BulkDelete(ctx context.Context, req dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	return s.mutations.bulkDelete(ctx, req, s.validator.Struct, s.repo.Delete)
}

// Import creates classes from CSV records with studentId, courseId, date and
// price columns.
func (s *ClassService) Import(ctx context.Context, records []export.Record) *dto.ImportResult {
	return s.mutations.importRecords(ctx, records, func(ctx context.Context, record export.Record) error {
		if err := requireColumns(record, "studentId", "courseId", "date", "price"); err != nil {
			return err
		}
		date, err := models.ParseDate(record.Get("date"))
		if err != nil {
			return appErrors.Validation(err, fmt.Sprintf("invalid date %q", record.Get("date")))
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(record.Get("price"), ",", ""), 64)
		if err != nil {
			return appErrors.Validation(err, fmt.Sprintf("invalid price %q", record.Get("price")))
		}
		_, err = s.create(ctx, ClassRequest{
			CourseID:  record.Get("courseId"),
			StudentID: record.Get("studentId"),
			Date:      date,
			Price:     &price,
		})
		return err
	})
}
