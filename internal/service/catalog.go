package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/models"
)

type studentLister interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type teacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type courseLister interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

type classLister interface {
	ListAll(ctx context.Context) ([]models.Class, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Class, error)
}

// Snapshot is a consistent-enough read of the four collections the billing
// views are computed from.
type Snapshot struct {
	Classes []models.Class
	Lookup  *billing.Lookup
}

// Catalog loads the collections behind billing, revenue and statements.
type Catalog struct {
	students studentLister
	teachers teacherLister
	courses  courseLister
	classes  classLister
	metrics  *MetricsService
}

// NewCatalog constructs a Catalog.
func NewCatalog(students studentLister, teachers teacherLister, courses courseLister, classes classLister, metrics *MetricsService) *Catalog {
	return &Catalog{students: students, teachers: teachers, courses: courses, classes: classes, metrics: metrics}
}

// Load fetches the collections concurrently. When month is set only that
// month's classes are read. Any failed read fails the whole load.
func (c *Catalog) Load(ctx context.Context, month *billing.Month) (*Snapshot, error) {
	start := time.Now()
	var (
		students []models.Student
		teachers []models.Teacher
		courses  []models.Course
		classes  []models.Class
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = c.students.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		teachers, err = c.teachers.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		courses, err = c.courses.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		if month != nil {
			from, to := month.Range()
			classes, err = c.classes.ListBetween(gctx, from, to)
			return err
		}
		classes, err = c.classes.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.metrics.ObserveDBQuery("catalog_load", time.Since(start))
	return &Snapshot{Classes: classes, Lookup: billing.NewLookup(students, teachers, courses)}, nil
}
