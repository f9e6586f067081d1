package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
)

type studentStatusLister interface {
	ListByMonth(ctx context.Context, month string) ([]models.StudentBillingStatus, error)
}

type teacherStatusLister interface {
	ListByMonth(ctx context.Context, month string) ([]models.TeacherBillingStatus, error)
}

type catalogLoader interface {
	Load(ctx context.Context, month *billing.Month) (*Snapshot, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// BillingConfig tunes billing view caching.
type BillingConfig struct {
	CacheTTL time.Duration
}

// BillingService serves the monthly student and teacher billing tables.
type BillingService struct {
	catalog         catalogLoader
	studentStatuses studentStatusLister
	teacherStatuses teacherStatusLister
	cache           *CacheService
	csv             csvRenderer
	logger          *zap.Logger
	cfg             BillingConfig
}

// NewBillingService constructs a BillingService.
func NewBillingService(catalog catalogLoader, studentStatuses studentStatusLister, teacherStatuses teacherStatusLister, cache *CacheService, logger *zap.Logger, cfg BillingConfig) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		catalog:         catalog,
		studentStatuses: studentStatuses,
		teacherStatuses: teacherStatuses,
		cache:           cache,
		csv:             export.NewCSVExporter(),
		logger:          logger,
		cfg:             cfg,
	}
}

// StudentBilling aggregates the month's classes per student. The bool reports
// whether the result came from cache.
func (s *BillingService) StudentBilling(ctx context.Context, query dto.BillingQuery) (*dto.StudentBillingResponse, bool, error) {
	month, err := parseBillingQuery(query)
	if err != nil {
		return nil, false, err
	}
	key := billingCacheKey("students", month.String())
	var resp dto.StudentBillingResponse
	hit, cacheErr := s.cache.Get(ctx, key, &resp)
	if cacheErr != nil {
		s.logger.Debug("billing cache unavailable", zap.Error(cacheErr))
	}
	if !hit {
		var (
			snapshot *Snapshot
			statuses []models.StudentBillingStatus
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			snapshot, err = s.catalog.Load(gctx, &month)
			return err
		})
		g.Go(func() (err error) {
			statuses, err = s.studentStatuses.ListByMonth(gctx, month.String())
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, false, appErrors.Internal(err, "failed to load billing data")
		}
		rows := billing.AggregateByStudent(snapshot.Classes, month, snapshot.Lookup, statuses)
		resp = dto.StudentBillingResponse{Month: month.String(), Rows: rows, TotalAmount: billing.SumStudentRows(rows)}
		for _, row := range rows {
			resp.ClassCount += row.ClassCount
		}
		_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	sortStudentRows(resp.Rows, query.Sort, query.Order)
	return &resp, hit, nil
}

// TeacherBilling aggregates the month's classes per teacher.
func (s *BillingService) TeacherBilling(ctx context.Context, query dto.BillingQuery) (*dto.TeacherBillingResponse, bool, error) {
	month, err := parseBillingQuery(query)
	if err != nil {
		return nil, false, err
	}
	key := billingCacheKey("teachers", month.String())
	var resp dto.TeacherBillingResponse
	hit, cacheErr := s.cache.Get(ctx, key, &resp)
	if cacheErr != nil {
		s.logger.Debug("billing cache unavailable", zap.Error(cacheErr))
	}
	if !hit {
		var (
			snapshot *Snapshot
			statuses []models.TeacherBillingStatus
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			snapshot, err = s.catalog.Load(gctx, &month)
			return err
		})
		g.Go(func() (err error) {
			statuses, err = s.teacherStatuses.ListByMonth(gctx, month.String())
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, false, appErrors.Internal(err, "failed to load billing data")
		}
		rows := billing.AggregateByTeacher(snapshot.Classes, month, snapshot.Lookup, statuses)
		resp = dto.TeacherBillingResponse{Month: month.String(), Rows: rows, TotalAmount: billing.SumTeacherRows(rows)}
		for _, row := range rows {
			resp.ClassCount += row.ClassCount
		}
		_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	sortTeacherRows(resp.Rows, query.Sort, query.Order)
	return &resp, hit, nil
}

// ExportStudentBilling renders the student table as CSV.
func (s *BillingService) ExportStudentBilling(ctx context.Context, query dto.BillingQuery) ([]byte, string, error) {
	resp, _, err := s.StudentBilling(ctx, query)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{Headers: []string{"studentId", "name", "grade", "classCount", "totalAmount", "paymentStatus", "paymentMethod", "statementStatus", "notes"}}
	for _, row := range resp.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"studentId":       row.StudentID,
			"name":            displayOrUnknown(row.StudentName, row.Resolved),
			"grade":           row.Grade,
			"classCount":      strconv.Itoa(row.ClassCount),
			"totalAmount":     formatAmount(row.TotalAmount),
			"paymentStatus":   row.PaymentStatus,
			"paymentMethod":   row.PaymentMethod,
			"statementStatus": row.StatementStatus,
			"notes":           row.Notes,
		})
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render billing csv")
	}
	return payload, fmt.Sprintf("student_billing_%s.csv", resp.Month), nil
}

// ExportTeacherBilling renders the teacher table as CSV.
func (s *BillingService) ExportTeacherBilling(ctx context.Context, query dto.BillingQuery) ([]byte, string, error) {
	resp, _, err := s.TeacherBilling(ctx, query)
	if err != nil {
		return nil, "", err
	}
	dataset := export.Dataset{Headers: []string{"teacherId", "name", "classCount", "totalAmount", "isVerified", "isPaid", "notes"}}
	for _, row := range resp.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"teacherId":   row.TeacherID,
			"name":        displayOrUnknown(row.TeacherName, row.Resolved),
			"classCount":  strconv.Itoa(row.ClassCount),
			"totalAmount": formatAmount(row.TotalAmount),
			"isVerified":  strconv.FormatBool(row.IsVerified),
			"isPaid":      strconv.FormatBool(row.IsPaid),
			"notes":       row.Notes,
		})
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render billing csv")
	}
	return payload, fmt.Sprintf("teacher_billing_%s.csv", resp.Month), nil
}

func parseBillingQuery(query dto.BillingQuery) (billing.Month, error) {
	month, err := billing.ParseMonth(query.Month)
	if err != nil {
		return billing.Month{}, appErrors.Validation(err, "month must use YYYY-MM")
	}
	switch query.Sort {
	case "", "totalAmount", "classCount", "id":
	default:
		return billing.Month{}, appErrors.Clone(appErrors.ErrValidation, "sort must be one of totalAmount, classCount, id")
	}
	switch query.Order {
	case "", "asc", "desc":
	default:
		return billing.Month{}, appErrors.Clone(appErrors.ErrValidation, "order must be asc or desc")
	}
	return month, nil
}

// An empty sort keeps first-appearance order.
func sortStudentRows(rows []billing.StudentRow, by, order string) {
	if by == "" {
		return
	}
	desc := order == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareRows(by, rows[i].TotalAmount, rows[j].TotalAmount, rows[i].ClassCount, rows[j].ClassCount, rows[i].StudentID, rows[j].StudentID)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func sortTeacherRows(rows []billing.TeacherRow, by, order string) {
	if by == "" {
		return
	}
	desc := order == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareRows(by, rows[i].TotalAmount, rows[j].TotalAmount, rows[i].ClassCount, rows[j].ClassCount, rows[i].TeacherID, rows[j].TeacherID)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareRows(by string, amountA, amountB float64, countA, countB int, idA, idB string) int {
	switch by {
	case "totalAmount":
		switch {
		case amountA < amountB:
			return -1
		case amountA > amountB:
			return 1
		}
		return 0
	case "classCount":
		return countA - countB
	default:
		return billing.CompareKeys(idA, idB)
	}
}

func displayOrUnknown(name string, resolved bool) string {
	if !resolved || name == "" {
		return "unknown"
	}
	return name
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
