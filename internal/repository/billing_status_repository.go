package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

const (
	studentStatusColumns = "id, student_id, month, payment_status, payment_method, statement_status, notes, created_at, updated_at"
	teacherStatusColumns = "id, teacher_id, month, is_verified, is_paid, notes, created_at, updated_at"
)

// StudentBillingStatusRepository persists one status row per (student, month).
type StudentBillingStatusRepository struct {
	db *sqlx.DB
}

// NewStudentBillingStatusRepository constructs the repository.
func NewStudentBillingStatusRepository(db *sqlx.DB) *StudentBillingStatusRepository {
	return &StudentBillingStatusRepository{db: db}
}

// ListByMonth returns every status row of a month.
func (r *StudentBillingStatusRepository) ListByMonth(ctx context.Context, month string) ([]models.StudentBillingStatus, error) {
	const query = "SELECT " + studentStatusColumns + " FROM student_billing_statuses WHERE month = $1 ORDER BY student_id"
	statuses := []models.StudentBillingStatus{}
	if err := r.db.SelectContext(ctx, &statuses, query, month); err != nil {
		return nil, fmt.Errorf("list student billing statuses: %w", err)
	}
	return statuses, nil
}

// Upsert inserts the row or updates only the fields present in the patch.
func (r *StudentBillingStatusRepository) Upsert(ctx context.Context, patch models.StudentStatusPatch) (*models.StudentBillingStatus, error) {
	const query = `INSERT INTO student_billing_statuses (id, student_id, month, payment_status, payment_method, statement_status, notes, created_at, updated_at)
VALUES ($1, $2, $3, COALESCE($4::text, '` + models.PaymentStatusUnpaid + `'), COALESCE($5::text, '` + models.PaymentMethodNone + `'), COALESCE($6::text, '` + models.StatementStatusPending + `'), COALESCE($7::text, ''), $8, $8)
ON CONFLICT (student_id, month) DO UPDATE SET
    payment_status = COALESCE($4::text, student_billing_statuses.payment_status),
    payment_method = COALESCE($5::text, student_billing_statuses.payment_method),
    statement_status = COALESCE($6::text, student_billing_statuses.statement_status),
    notes = COALESCE($7::text, student_billing_statuses.notes),
    updated_at = $8
RETURNING ` + studentStatusColumns
	var status models.StudentBillingStatus
	err := r.db.GetContext(ctx, &status, query,
		uuid.NewString(), patch.StudentID, patch.Month,
		patch.PaymentStatus, patch.PaymentMethod, patch.StatementStatus, patch.Notes,
		time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert student billing status: %w", err)
	}
	return &status, nil
}

// MarkStatementStatus sets the statement status of many students for a month.
// Row ids for newly created rows are generated here like every other insert.
func (r *StudentBillingStatusRepository) MarkStatementStatus(ctx context.Context, studentIDs []string, month, statementStatus string) error {
	studentIDs = uniqueKeys(studentIDs)
	if len(studentIDs) == 0 {
		return nil
	}
	ids := make([]string, len(studentIDs))
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	const query = `INSERT INTO student_billing_statuses (id, student_id, month, payment_status, payment_method, statement_status, notes, created_at, updated_at)
SELECT t.id::uuid, t.sid, $2, '` + models.PaymentStatusUnpaid + `', '` + models.PaymentMethodNone + `', $3, '', $4, $4 FROM unnest($1::text[], $5::text[]) AS t(sid, id)
ON CONFLICT (student_id, month) DO UPDATE SET statement_status = EXCLUDED.statement_status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(studentIDs), month, statementStatus, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark statement status: %w", err)
	}
	return nil
}

// uniqueKeys drops empty and repeated keys, keeping first-seen order. A
// repeated key would make the upsert touch the same row twice.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok || key == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// TeacherBillingStatusRepository persists one status row per (teacher, month).
type TeacherBillingStatusRepository struct {
	db *sqlx.DB
}

// NewTeacherBillingStatusRepository constructs the repository.
func NewTeacherBillingStatusRepository(db *sqlx.DB) *TeacherBillingStatusRepository {
	return &TeacherBillingStatusRepository{db: db}
}

// ListByMonth returns every status row of a month.
func (r *TeacherBillingStatusRepository) ListByMonth(ctx context.Context, month string) ([]models.TeacherBillingStatus, error) {
	const query = "SELECT " + teacherStatusColumns + " FROM teacher_billing_statuses WHERE month = $1 ORDER BY teacher_id"
	statuses := []models.TeacherBillingStatus{}
	if err := r.db.SelectContext(ctx, &statuses, query, month); err != nil {
		return nil, fmt.Errorf("list teacher billing statuses: %w", err)
	}
	return statuses, nil
}

// Upsert inserts the row or updates only the fields present in the patch.
func (r *TeacherBillingStatusRepository) Upsert(ctx context.Context, patch models.TeacherStatusPatch) (*models.TeacherBillingStatus, error) {
	const query = `INSERT INTO teacher_billing_statuses (id, teacher_id, month, is_verified, is_paid, notes, created_at, updated_at)
VALUES ($1, $2, $3, COALESCE($4::boolean, false), COALESCE($5::boolean, false), COALESCE($6::text, ''), $7, $7)
ON CONFLICT (teacher_id, month) DO UPDATE SET
    is_verified = COALESCE($4::boolean, teacher_billing_statuses.is_verified),
    is_paid = COALESCE($5::boolean, teacher_billing_statuses.is_paid),
    notes = COALESCE($6::text, teacher_billing_statuses.notes),
    updated_at = $7
RETURNING ` + teacherStatusColumns
	var status models.TeacherBillingStatus
	err := r.db.GetContext(ctx, &status, query,
		uuid.NewString(), patch.TeacherID, patch.Month,
		patch.IsVerified, patch.IsPaid, patch.Notes,
		time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert teacher billing status: %w", err)
	}
	return &status, nil
}
