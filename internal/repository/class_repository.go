package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

const classColumns = "id, course_id, student_id, class_date, price, created_at, updated_at"

// ClassRepository handles persistence for scheduled classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching the provided filters.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	query := "FROM classes WHERE 1=1"
	args := []interface{}{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND class_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND class_date < $%d", len(args))
	}

	allowedSorts := map[string]string{
		"date":      "class_date",
		"price":     "price",
		"studentId": "student_id",
		"courseId":  "course_id",
		"createdAt": "created_at",
	}
	selectQuery := "SELECT " + classColumns + " " + query +
		orderClause(filter.SortBy, filter.SortOrder, allowedSorts, "created_at") +
		pageClause(filter.Page, filter.PageSize)

	classes := []models.Class{}
	if err := r.db.SelectContext(ctx, &classes, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+query, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// ListAll returns every class ordered by creation, which is the order the
// aggregations treat as "first appearance".
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	classes := []models.Class{}
	if err := r.db.SelectContext(ctx, &classes, "SELECT "+classColumns+" FROM classes ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("list all classes: %w", err)
	}
	return classes, nil
}

// ListBetween returns classes dated in [from, to) in creation order.
func (r *ClassRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Class, error) {
	const query = "SELECT " + classColumns + " FROM classes WHERE class_date >= $1 AND class_date < $2 ORDER BY created_at, id"
	classes := []models.Class{}
	if err := r.db.SelectContext(ctx, &classes, query, from, to); err != nil {
		return nil, fmt.Errorf("list classes between: %w", err)
	}
	return classes, nil
}

// FindByID retrieves a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, course_id, student_id, class_date, price, created_at, updated_at)
        VALUES (:id, :course_id, :student_id, :class_date, :price, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies class metadata.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET course_id = :course_id, student_id = :student_id, class_date = :class_date, price = :price, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class row.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "classes", id)
}
